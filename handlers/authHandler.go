package handlers

import (
	"ClinicHub/models"
	"ClinicHub/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	UserService services.UserService
}

func NewAuthHandler(userService services.UserService) *AuthHandler {
	return &AuthHandler{
		UserService: userService,
	}
}

// Register handles new team member registration
func (h *AuthHandler) Register(c *gin.Context) {
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.Register(c.Request.Context(), &user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login authenticates the user and returns an access token with the session
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.UserService.Login(c.Request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Session returns the caller's decoded session.
func (h *AuthHandler) Session(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s})
}

// GetUserProfile retrieves the current user's profile
func (h *AuthHandler) GetUserProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	user, err := h.UserService.GetUserByID(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUserProfile updates the user's username and email
func (h *AuthHandler) UpdateUserProfile(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var updateData struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.UpdateUserProfile(c.Request.Context(), s.UserID, updateData.Username, updateData.Email); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// ChangePassword replaces the password of a signed-in user
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var data struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.ChangePassword(c.Request.Context(), s.UserID, data.CurrentPassword, data.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// SendResetCode sends a password reset code to the user's email
func (h *AuthHandler) SendResetCode(c *gin.Context) {
	var data struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.SendResetCode(c.Request.Context(), data.Email); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// ResetPassword sets a new password from an emailed reset code
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var data struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.ResetPassword(c.Request.Context(), data.Email, data.Code, data.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// ListTeam lists every team member
func (h *AuthHandler) ListTeam(c *gin.Context) {
	users, err := h.UserService.GetAllUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

// UpdateRole changes a team member's role
func (h *AuthHandler) UpdateRole(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	var data struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&data); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.UserService.UpdateUserRole(c.Request.Context(), s, c.Param("id"), data.Role); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// DeleteMember removes a team member's account
func (h *AuthHandler) DeleteMember(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}

	if err := h.UserService.DeleteUser(c.Request.Context(), s, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

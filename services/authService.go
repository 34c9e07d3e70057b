package services

import (
	"ClinicHub/database"
	"ClinicHub/models"
	"ClinicHub/repositories"
	"ClinicHub/utils"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string         `json:"access_token"`
	Session models.Session `json:"session"`
	User    *models.User   `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, user *models.User) error
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID, username, email string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	SendResetCode(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, session models.Session, userID, role string) error
	DeleteUser(ctx context.Context, session models.Session, userID string) error
}

type userService struct {
	userRepo repositories.UserRepository
	locker   *database.Locker
	tokens   *utils.TokenMaker
	codes    *utils.ResetCodes
	mailer   utils.ResetCodeSender
}

func NewUserService(userRepo repositories.UserRepository, locker *database.Locker, tokens *utils.TokenMaker, codes *utils.ResetCodes, mailer utils.ResetCodeSender) UserService {
	return &userService{userRepo: userRepo, locker: locker, tokens: tokens, codes: codes, mailer: mailer}
}

func userLockKey(identifier string) string {
	return fmt.Sprintf("user_lock:%s", identifier)
}

// Register creates a team account. The first account becomes Admin, later
// ones start as Receptionist until an Admin changes their role.
func (s *userService) Register(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := utils.ValidateUserData(*user); err != nil {
		return invalid(fmt.Errorf("invalid user data: %w", err))
	}

	return s.locker.WithLock(ctx, userLockKey(user.Email), func() error {
		exists, err := s.userRepo.EmailExists(ctx, user.Email)
		if err != nil {
			return err
		}
		if exists {
			return invalid(ErrEmailTaken)
		}

		count, err := s.userRepo.CountUsers(ctx)
		if err != nil {
			return err
		}
		roleName := models.RoleReceptionist
		if count == 0 {
			roleName = models.RoleAdmin
		}
		role, err := s.userRepo.GetRoleByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("failed to resolve role %s: %w", roleName, err)
		}

		hashedPassword, err := utils.HashPassword(user.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashedPassword
		user.RoleID = role.ID
		if err := s.userRepo.CreateUser(ctx, user); err != nil {
			return err
		}
		user.Role = *role
		user.Password = ""
		return nil
	})
}

func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetUserWithPassword(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredential
	}
	user.Password = ""

	token, expiry, err := s.tokens.GenerateAccessToken(user.ID, user.Role.Name)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:   token,
		Session: models.Session{UserID: user.ID, Role: user.Role.Name, ExpiresAt: expiry},
		User:    user,
	}, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

func (s *userService) UpdateUserProfile(ctx context.Context, userID, username, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := utils.ValidateProfile(username, email); err != nil {
		return invalid(err)
	}

	return s.locker.WithLock(ctx, userLockKey(userID), func() error {
		user, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if email != user.Email {
			exists, err := s.userRepo.EmailExists(ctx, email)
			if err != nil {
				return err
			}
			if exists {
				return invalid(ErrEmailTaken)
			}
		}
		if err := s.userRepo.UpdateUserProfile(ctx, userID, username, email); err != nil {
			return fmt.Errorf("failed to update user profile: %w", err)
		}
		return s.userRepo.DeleteUserCache(ctx, user)
	})
}

func (s *userService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return invalid(err)
	}
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	withPassword, err := s.userRepo.GetUserWithPassword(ctx, user.Email)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(withPassword.Password, currentPassword) {
		return ErrInvalidCredential
	}
	return s.setPassword(ctx, user, newPassword)
}

// SendResetCode mails a six digit code valid for utils.ResetCodeTTL. Unknown
// emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *userService) SendResetCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		log.Info().Str("email", email).Msg("reset code requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, user.Email, code); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	return s.mailer.SendResetCode(user.Email, code)
}

func (s *userService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := utils.ValidatePasswordReset(code, newPassword); err != nil {
		return invalid(err)
	}

	stored, err := s.codes.Get(ctx, email)
	if err != nil {
		return err
	}
	if stored == "" || stored != code {
		return invalid(utils.ErrInvalidResetCode)
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("failed to delete reset code")
	}
	return nil
}

func (s *userService) setPassword(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.locker.WithLock(ctx, userLockKey(user.ID), func() error {
		if err := s.userRepo.UpdateUserPassword(ctx, user.ID, hashedPassword); err != nil {
			return fmt.Errorf("failed to update user password: %w", err)
		}
		return s.userRepo.DeleteUserCache(ctx, user)
	})
}

func (s *userService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.GetAllUsers(ctx)
}

// UpdateUserRole is Admin only. Admins cannot demote themselves, which keeps
// at least one Admin on the team.
func (s *userService) UpdateUserRole(ctx context.Context, session models.Session, userID, role string) error {
	if !session.IsAdmin() {
		return ErrForbidden
	}
	if session.UserID == userID && role != models.RoleAdmin {
		return invalid(errors.New("admins cannot change their own role"))
	}
	target, err := s.userRepo.GetRoleByName(ctx, role)
	if errors.Is(err, repositories.ErrNotFound) {
		return invalid(fmt.Errorf("unknown role %q", role))
	}
	if err != nil {
		return err
	}

	return s.locker.WithLock(ctx, userLockKey(userID), func() error {
		user, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.userRepo.UpdateUserRole(ctx, userID, target.ID); err != nil {
			return err
		}
		return s.userRepo.DeleteUserCache(ctx, user)
	})
}

func (s *userService) DeleteUser(ctx context.Context, session models.Session, userID string) error {
	if !session.IsAdmin() && session.UserID != userID {
		return ErrForbidden
	}
	if session.IsAdmin() && session.UserID == userID {
		return invalid(errors.New("admins cannot delete their own account"))
	}

	return s.locker.WithLock(ctx, userLockKey(userID), func() error {
		user, err := s.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.userRepo.DeleteUserCache(ctx, user); err != nil {
			return fmt.Errorf("failed to delete user cache: %w", err)
		}
		return s.userRepo.DeleteUser(ctx, userID)
	})
}

package repositories

import (
	"ClinicHub/cache"
	"ClinicHub/models"
	"context"
	"fmt"

	"gorm.io/gorm"
)

type UserRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserWithPassword(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error
	UpdateUserProfile(ctx context.Context, userID string, username, email string) error
	UpdateUserRole(ctx context.Context, userID string, roleID int64) error
	GetAllUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteUserCache(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewUserRepository(db *gorm.DB, cache *cache.Cache) UserRepository {
	return &userRepository{db: db, cache: cache}
}

// publicUser selects every column except the password hash.
func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id, username, email, role_id, created_at").
		Preload("Role", func(db *gorm.DB) *gorm.DB {
			return db.Select("id, name, description")
		})
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) lookup(ctx context.Context, identifier, column string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	user, err := cache.Remember(ctx, r.cache, r.getUserCacheKey(identifier), func(ctx context.Context) (models.User, error) {
		var user models.User
		err := publicUser(r.db.WithContext(ctx)).Where(column+" = ?", identifier).First(&user).Error
		return user, wrap(err, "failed to get user by %s", column)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.lookup(ctx, username, "username")
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.lookup(ctx, email, "email")
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return r.lookup(ctx, userID, "id")
}

// GetUserWithPassword loads the user including the password hash. Never cached.
func (r *userRepository) GetUserWithPassword(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, wrap(err, "failed to load credentials")
	}
	return &user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit("Role").Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, wrap(err, "failed to get role")
	}
	return &role, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hashedPassword)
	return affected(res, "failed to update password")
}

func (r *userRepository) UpdateUserProfile(ctx context.Context, userID string, username, email string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"username": username,
		"email":    email,
	})
	return affected(res, "failed to update profile")
}

func (r *userRepository) UpdateUserRole(ctx context.Context, userID string, roleID int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("role_id", roleID)
	return affected(res, "failed to update role")
}

func (r *userRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var users []models.User
	if err := publicUser(r.db.WithContext(ctx)).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) DeleteUser(ctx context.Context, userID string) error {
	return affected(r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID), "failed to delete user")
}

// DeleteUserCache drops every cache entry the user can be looked up by.
func (r *userRepository) DeleteUserCache(ctx context.Context, user *models.User) error {
	return r.cache.Delete(ctx,
		r.getUserCacheKey(user.ID),
		r.getUserCacheKey(user.Email),
		r.getUserCacheKey(user.Username),
	)
}

func (r *userRepository) getUserCacheKey(identifier string) string {
	return fmt.Sprintf("user_cache:%s", identifier)
}

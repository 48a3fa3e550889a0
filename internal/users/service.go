package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rootword-dev/rootword/internal/auth"
	"github.com/rootword-dev/rootword/internal/models"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrUsernameTaken   = errors.New("username already exists")
	ErrInvalidRole     = errors.New("role must be user or admin")
	ErrSelfDelete      = errors.New("cannot delete yourself")
	ErrInvalidPassword = errors.New("invalid username or password")
	ErrPasswordLength  = errors.New("password must be between 6 and 32 characters")
)

type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "users_service").Logger(),
	}
}

// Create adds a local account
func (s *Service) Create(ctx context.Context, username, password, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, ErrInvalidRole
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash, Role: role}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", username).Str("role", role).Msg("User created")
	return user, nil
}

// Authenticate checks credentials and returns the matching user
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidPassword
	}
	return &user, nil
}

// Get returns a user by ID
func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := models.FindByID(s.db.WithContext(ctx), id, &user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// ListParams filters a page of users
type ListParams struct {
	PageNum  int
	PageSize int
	Username string
}

// Page is one page of users
type Page struct {
	List     []models.User `json:"list"`
	Total    int64         `json:"total"`
	PageNum  int           `json:"page_num"`
	PageSize int           `json:"page_size"`
}

// List returns users newest first
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.PageNum < 1 {
		params.PageNum = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 10
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if name := strings.TrimSpace(params.Username); name != "" {
		query = query.Where("username LIKE ?", "%"+name+"%")
	}

	page := &Page{List: []models.User{}, PageNum: params.PageNum, PageSize: params.PageSize}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := query.Order("id DESC").
		Offset((params.PageNum - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&page.List).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// Delete removes a user other than the caller
func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	if id == callerID {
		return ErrSelfDelete
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info().Str("user_id", id).Str("deleted_by", callerID).Msg("User deleted")
	return nil
}

// ResetPassword replaces a user's password
func (s *Service) ResetPassword(ctx context.Context, id, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to reset password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info().Str("user_id", id).Msg("Password reset")
	return nil
}

// EnsureAdmin creates the bootstrap admin when no user with that name exists
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.Create(ctx, username, password, models.RoleAdmin)
	if errors.Is(err, ErrUsernameTaken) {
		s.logger.Debug().Str("username", username).Msg("Bootstrap admin already exists")
		return nil
	}
	return err
}

func checkPassword(password string) error {
	if len(password) < 6 || len(password) > 32 {
		return ErrPasswordLength
	}
	return nil
}

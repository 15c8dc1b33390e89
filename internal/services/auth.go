package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"leadcrm/internal/domain"
	"leadcrm/internal/metrics"
	"leadcrm/internal/util"
)

const minPasswordLength = 6

// RegisterPayload is the register request body
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries an issued access token
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResult is the public view of a user
type UserResult struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	LastLogin string `json:"last_login,omitempty"`
}

// AuthService implements the auth service
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Register implements the register method. New principals always get the
// USER role; admins are created with cmd/create_admin.
func (s *AuthService) Register(ctx context.Context, p *RegisterPayload) (*UserResult, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] Register request: email=%s", email)

	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		log.Printf("[AUTH] Register failed: invalid email '%s'", email)
		return nil, AuthBadRequest("a valid email is required")
	}
	if len(password) < minPasswordLength {
		log.Printf("[AUTH] Register failed: password too short for '%s'", email)
		return nil, AuthBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var existing domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("[AUTH] Register failed: email '%s' already exists", email)
		return nil, AuthBadRequest("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[AUTH] Register failed: database error: %v", err)
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := CreateUser(ctx, s.db, email, password, domain.RoleUser)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, AuthBadRequest("email already registered")
		}
		log.Printf("[AUTH] Register failed: %v", err)
		return nil, err
	}

	log.Printf("[AUTH] Register successful: email=%s, id=%d", email, user.ID)
	return convertUserToResult(user), nil
}

// Login implements the login method
func (s *AuthService) Login(ctx context.Context, p *LoginPayload) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] Login attempt for user: %s", email)

	var user domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[AUTH] Login failed: user '%s' not found", email)
			return nil, AuthUnauthorized("incorrect email or password")
		}
		log.Printf("[AUTH] Login failed: database error for user '%s': %v", email, err)
		return nil, err
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		log.Printf("[AUTH] Login failed: invalid password for user '%s'", email)
		metrics.RecordAuthAttempt(false)
		return nil, AuthUnauthorized("incorrect email or password")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("[AUTH] Warning: failed to record last login for '%s': %v", email, err)
	}

	token, err := util.GenerateToken(&user)
	if err != nil {
		log.Printf("[AUTH] Login failed: token generation error for user '%s': %v", email, err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AUTH] Login successful for user '%s' (id=%d, role=%s)", email, user.ID, user.Role)
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// Authenticate validates a bearer token and loads its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := util.ValidateToken(token)
	if err != nil {
		return nil, AuthUnauthorized("invalid or expired token")
	}

	user, err := util.GetUserFromToken(s.db.WithContext(ctx), claims)
	if err != nil {
		log.Printf("[AUTH] Token rejected: %v", err)
		return nil, AuthUnauthorized("user not found")
	}
	return user, nil
}

// CreateUser hashes password and inserts a user with the given role
func CreateUser(ctx context.Context, db *gorm.DB, email, password, role string) (*domain.User, error) {
	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.User{
		Email:          strings.ToLower(strings.TrimSpace(email)),
		HashedPassword: hashedPassword,
		Role:           role,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func convertUserToResult(user *domain.User) *UserResult {
	result := &UserResult{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	if user.LastLogin != nil {
		result.LastLogin = user.LastLogin.Format(time.RFC3339)
	}
	return result
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"linkpulse-be/internal/apperrors"
	"linkpulse-be/internal/entities"
	"linkpulse-be/internal/jwt"
	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/models"
	"linkpulse-be/internal/repository"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, userID string) (*models.AuthResponse, error)
}

type authService struct {
	userRepo       repository.UserRepository
	jwtService     *jwt.JWTService
	defaultMaxURLs int
	bcryptCost     int
}

// NewAuthService creates a new auth service. New accounts start on the free
// plan with defaultMaxURLs links.
func NewAuthService(userRepo repository.UserRepository, jwtService *jwt.JWTService, defaultMaxURLs int) AuthService {
	return &authService{
		userRepo:       userRepo,
		jwtService:     jwtService,
		defaultMaxURLs: defaultMaxURLs,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

func toAuthResponse(user *entities.User, token string) models.AuthResponse {
	return models.AuthResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Plan:      user.Plan,
		MaxURLs:   user.MaxURLs,
		CreatedAt: user.CreatedAt,
		Token:     token,
	}
}

// Register creates a new user account and logs it in.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, email, string(hashedPassword), trimmedOrNil(req.Name), s.defaultMaxURLs)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	logging.Logger.Info("user registered", zap.String("user_id", user.ID))
	return &models.RegisterResponse{
		Message: "User registered successfully",
		User:    toAuthResponse(user, token),
	}, nil
}

// Login authenticates a user and returns user info with JWT token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	resp := toAuthResponse(user, token)
	return &resp, nil
}

// Me returns the caller's account without a token.
func (s *authService) Me(ctx context.Context, userID string) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	resp := toAuthResponse(user, "")
	return &resp, nil
}

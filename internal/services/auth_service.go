package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/t4zn/medicaps-sub001/internal/config"
	"github.com/t4zn/medicaps-sub001/internal/dto"
	"github.com/t4zn/medicaps-sub001/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrWeakPassword       = errors.New("email required and password must be at least 8 characters")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
	ErrAlreadyVerified    = errors.New("email already verified")
)

// VerificationSender delivers an email verification link to the address being verified.
type VerificationSender interface {
	SendVerification(ctx context.Context, email, link string) error
}

// LogVerificationSender writes verification links to the application log.
// It stands in until a mail provider is configured.
type LogVerificationSender struct{}

func (LogVerificationSender) SendVerification(ctx context.Context, email, link string) error {
	slog.InfoContext(ctx, "email verification issued", "email", email, "link", link)
	return nil
}

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	sender VerificationSender
}

func NewAuthService(db *gorm.DB, cfg *config.Config, sender VerificationSender) *AuthService {
	if sender == nil {
		sender = LogVerificationSender{}
	}
	return &AuthService{db: db, cfg: cfg, sender: sender}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") || len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	db := s.db.WithContext(ctx)
	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}

	rawVerify, err := randomToken()
	if err != nil {
		return nil, err
	}
	verifyExpires := time.Now().Add(s.cfg.EmailVerifyExpiry)

	user := models.User{
		ID:              uuid.New(),
		Email:           email,
		Password:        string(hash),
		DisplayName:     displayName,
		Role:            "user",
		VerifyTokenHash: hashToken(rawVerify),
		VerifyExpiresAt: &verifyExpires,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// The account works without verification; a failed send can be retried.
	s.sendVerification(ctx, &user, rawVerify)

	return s.generateTokenPair(ctx, &user)
}

// VerifyEmail consumes a verification token and returns a fresh token pair
// carrying email_verified=true.
func (s *AuthService) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest) (*dto.AuthResponse, error) {
	if strings.TrimSpace(req.Token) == "" {
		return nil, ErrInvalidVerifyToken
	}
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(strings.TrimSpace(req.Token))

	var user models.User
	if err := db.Where("verify_token_hash = ? AND email_verified = ?", tokenHash, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidVerifyToken
		}
		return nil, err
	}
	if user.VerifyExpiresAt == nil || time.Now().After(*user.VerifyExpiresAt) {
		return nil, ErrInvalidVerifyToken
	}

	result := db.Model(&models.User{}).
		Where("id = ? AND verify_token_hash = ?", user.ID, tokenHash).
		Updates(map[string]interface{}{
			"email_verified":    true,
			"verify_token_hash": "",
			"verify_expires_at": nil,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to verify email: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvalidVerifyToken
	}

	user.EmailVerified = true
	return s.generateTokenPair(ctx, &user)
}

// ResendVerification replaces any outstanding token with a new one.
func (s *AuthService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	raw, err := randomToken()
	if err != nil {
		return err
	}
	expires := time.Now().Add(s.cfg.EmailVerifyExpiry)
	if err := db.Model(&user).Updates(map[string]interface{}{
		"verify_token_hash": hashToken(raw),
		"verify_expires_at": expires,
	}).Error; err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	s.sendVerification(ctx, &user, raw)
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, user *models.User, rawToken string) {
	link := s.cfg.EmailVerifyURL + "?token=" + url.QueryEscape(rawToken)
	if err := s.sender.SendVerification(ctx, user.Email, link); err != nil {
		slog.Warn("verification email not sent", "user_id", user.ID.String(), "error", err)
	}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, &user)
}

// Refresh rotates the refresh token: the presented one is revoked either way.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	if err := db.Model(&stored).Update("revoked", true).Error; err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toUserResponse(user),
	}, nil
}

// GenerateAccessToken signs the claims the JWT middleware trusts: sub, email
// and email_verified.
func (s *AuthService) GenerateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":            user.ID.String(),
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"iat":            now.Unix(),
		"exp":            now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawToken, err := randomToken()
	if err != nil {
		return "", err
	}
	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func randomToken() (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(rawBytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

func toUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}

package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pinboard/internal/model"
	"pinboard/internal/repository"
)

// AuthService handles token generation, refresh rotation, and revocation.
type AuthService struct {
	refreshTokenRepo   repository.RefreshTokenRepository
	jwtSecret          string
	accessTokenMaxAge  int // seconds
	refreshTokenMaxAge int // seconds
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, jwtSecret string, accessTokenMaxAge, refreshTokenMaxAge int) *AuthService {
	return &AuthService{
		refreshTokenRepo:   refreshTokenRepo,
		jwtSecret:          jwtSecret,
		accessTokenMaxAge:  accessTokenMaxAge,
		refreshTokenMaxAge: refreshTokenMaxAge,
	}
}

// GenerateTokenPair creates a new access token and refresh token for a user.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	pair, _, err := s.generatePair(ctx, userID, deviceInfo, ipAddress)
	return pair, err
}

// generatePair creates and persists a token pair, returning the stored
// refresh token record so rotation can link old to new.
func (s *AuthService) generatePair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, *model.RefreshToken, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := uuid.New().String()

	rt := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(time.Duration(s.refreshTokenMaxAge) * time.Second),
	}
	if deviceInfo != "" {
		rt.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		rt.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, rt); err != nil {
		return nil, nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.accessTokenMaxAge,
	}, rt, nil
}

// RefreshTokens validates a refresh token and issues a new token pair,
// rotating the refresh token. Reuse of a revoked token revokes every
// session for that user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	rt, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, err
	}

	// Token reuse detection: a revoked token presented again means the
	// token may be stolen. Revoke everything for this user.
	if rt.IsRevoked() {
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, rt.UserID); err != nil {
			return nil, fmt.Errorf("failed to revoke user tokens: %w", err)
		}
		return nil, model.ErrRefreshTokenReused
	}

	if rt.IsExpired() {
		return nil, model.ErrRefreshTokenExpired
	}

	newPair, newRecord, err := s.generatePair(ctx, rt.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Revoke(ctx, rt.ID, &newRecord.ID); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return newPair, nil
}

// RevokeRefreshToken revokes a single refresh token (logout).
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	rt, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, rt.ID, nil)
}

// RevokeAllUserTokens revokes every refresh token for a user (logout all devices).
func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// AccessTokenMaxAge returns the access token lifetime in seconds.
func (s *AuthService) AccessTokenMaxAge() int {
	return s.accessTokenMaxAge
}

// RefreshTokenMaxAge returns the refresh token lifetime in seconds.
func (s *AuthService) RefreshTokenMaxAge() int {
	return s.refreshTokenMaxAge
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Duration(s.accessTokenMaxAge) * time.Second).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// hashToken hashes a refresh token before storage so a database leak
// does not expose usable tokens.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

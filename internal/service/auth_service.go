package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// TokenType distinguishes participant vs admin tokens.
type TokenType string

const (
	TokenTypeParticipant TokenType = "participant"
	TokenTypeAdmin       TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType  `json:"token_type"`
	UserID      int        `json:"user_id"`
	ExamID      int        `json:"exam_id,omitempty"`     // Participant only
	Role        model.Role `json:"role,omitempty"`        // Admin only
	Permissions []string   `json:"permissions,omitempty"` // Admin only
}

// SessionRegistry remembers the latest token ID issued to each participant.
type SessionRegistry interface {
	Register(ctx context.Context, participantID int, jti string, ttl time.Duration) error
	Current(ctx context.Context, participantID int) (string, error)
	Reset(ctx context.Context, participantID int) error
}

// AuthService handles authentication, JWT, and session management.
type AuthService struct {
	cfg      *config.Config
	sessions SessionRegistry
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, sessions SessionRegistry) *AuthService {
	return &AuthService{cfg: cfg, sessions: sessions}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateParticipantToken creates a JWT bound to one exam and records it as
// the participant's current session. A later login replaces the earlier one.
func (s *AuthService) GenerateParticipantToken(ctx context.Context, participantID, examID int) (string, error) {
	jti := uuid.New().String()
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   strconv.Itoa(participantID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeParticipant,
		UserID:    participantID,
		ExamID:    examID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.Register(ctx, participantID, jti, s.cfg.JWTExpiry); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return signed, nil
}

// GenerateAdminToken creates a JWT for an admin with the role's permissions embedded.
func (s *AuthService) GenerateAdminToken(adminID int, role model.Role) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeAdmin,
		UserID:      adminID,
		Role:        role,
		Permissions: role.Permissions(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// ValidateParticipantSession checks that the token ID is still the participant's latest.
func (s *AuthService) ValidateParticipantSession(ctx context.Context, participantID int, jti string) error {
	current, err := s.sessions.Current(ctx, participantID)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if current != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetParticipantSession forgets a participant's session, invalidating their token.
func (s *AuthService) ResetParticipantSession(ctx context.Context, participantID int) error {
	return s.sessions.Reset(ctx, participantID)
}

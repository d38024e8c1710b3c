package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/model"
)

// ParticipantLogin is the result of a successful participant login.
type ParticipantLogin struct {
	Token       string             `json:"token"`
	Participant *model.Participant `json:"participant"`
	Exam        *model.Exam        `json:"exam"`
}

// AdminLogin is the result of a successful admin login.
type AdminLogin struct {
	Token string       `json:"token"`
	Admin *model.Admin `json:"admin"`
}

// LoginService authenticates participants (name + exam PIN) and admins.
type LoginService struct {
	participants *ParticipantService
	exams        *ExamService
	auth         *AuthService
	admins       AdminStore
	log          zerolog.Logger
}

// NewLoginService creates a new LoginService.
func NewLoginService(participants *ParticipantService, exams *ExamService, auth *AuthService, admins AdminStore, log zerolog.Logger) *LoginService {
	return &LoginService{
		participants: participants,
		exams:        exams,
		auth:         auth,
		admins:       admins,
		log:          log.With().Str("component", "login_service").Logger(),
	}
}

// LoginParticipant checks the PIN first so a wrong PIN never creates a
// participant from the roster. Unknown names yield ErrNotFound.
func (s *LoginService) LoginParticipant(ctx context.Context, name, pin string) (*ParticipantLogin, error) {
	exam, err := s.exams.Authenticate(ctx, pin)
	if err != nil {
		return nil, err
	}

	p, err := s.participants.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.GenerateParticipantToken(ctx, p.ID, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.log.Info().Int("participant_id", p.ID).Int("exam_id", exam.ID).Msg("Participant logged in")

	pub := *exam
	pub.PIN = ""
	return &ParticipantLogin{Token: token, Participant: p, Exam: &pub}, nil
}

// LoginAdmin checks email and password.
func (s *LoginService) LoginAdmin(ctx context.Context, email, password string) (*AdminLogin, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	if err := s.auth.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateAdminToken(admin.ID, admin.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AdminLogin{Token: token, Admin: admin}, nil
}

// GetAdmin returns an admin by ID.
func (s *LoginService) GetAdmin(ctx context.Context, id int) (*model.Admin, error) {
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

// CreateAdmin hashes the password and stores a new admin.
func (s *LoginService) CreateAdmin(ctx context.Context, email, name, password string, role model.Role) (*model.Admin, error) {
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &model.Admin{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return a, nil
}

package auth

import (
	"strings"
	"time"

	"taskchat/internal/db"
	"taskchat/internal/envelope"
	"taskchat/internal/models"

	"go.uber.org/zap"
)

const minPasswordLength = 8

type Service struct {
	db     *db.Database
	jwt    *JWTService
	logger *zap.Logger
}

func NewService(database *db.Database, jwtService *JWTService, logger *zap.Logger) *Service {
	return &Service{db: database, jwt: jwtService, logger: logger}
}

type Credentials struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (s *Service) Register(email, password string) envelope.Result {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return envelope.Err(envelope.CodeValidation, "a valid email is required", map[string]any{"field": "email"})
	}
	if len(password) < minPasswordLength {
		return envelope.Err(envelope.CodeValidation, "password must be at least 8 characters", map[string]any{"field": "password"})
	}

	existing, err := s.db.GetUserByEmail(email)
	if err != nil {
		s.logger.Error("failed to look up user", zap.Error(err))
		return envelope.Err(envelope.CodeDatabase, "failed to register user", nil)
	}
	if existing != nil {
		return envelope.Err(envelope.CodeDuplicateEmail, "email already registered", map[string]any{"email": email})
	}

	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return envelope.Err(envelope.CodeInternal, "failed to register user", nil)
	}

	user, err := s.db.CreateUser(email, hash)
	if err != nil {
		s.logger.Error("failed to create user", zap.Error(err), zap.String("email", email))
		return envelope.Err(envelope.CodeDatabase, "failed to register user", nil)
	}

	token, expiresAt, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return envelope.Err(envelope.CodeInternal, "failed to register user", nil)
	}

	return envelope.OK(&Credentials{Token: token, ExpiresAt: expiresAt, User: user})
}

func (s *Service) Login(email, password string) envelope.Result {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.db.GetUserByEmail(email)
	if err != nil {
		s.logger.Error("failed to look up user", zap.Error(err))
		return envelope.Err(envelope.CodeDatabase, "failed to log in", nil)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		// Same response for unknown email and wrong password.
		return envelope.Err(envelope.CodeInvalidCredentials, "invalid email or password", nil)
	}

	token, expiresAt, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return envelope.Err(envelope.CodeInternal, "failed to log in", nil)
	}

	return envelope.OK(&Credentials{Token: token, ExpiresAt: expiresAt, User: user})
}

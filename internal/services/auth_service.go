package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"easyshop/internal/models"
	"easyshop/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// AuthService handles signup, login and session tokens.
type AuthService struct {
	accounts   repositories.AccountRepository
	jwtSecret  []byte
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService. Sessions last sessionTTL.
func NewAuthService(accounts repositories.AccountRepository, jwtSecret string, sessionTTL time.Duration, l *slog.Logger) *AuthService {
	if l == nil {
		l = slog.Default()
	}
	return &AuthService{
		accounts:   accounts,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		logger:     l.With(slog.String("component", "auth_service")),
	}
}

// SignUp registers a new account.
func (s *AuthService) SignUp(username, email, password string) (*models.Account, error) {
	account, err := s.accounts.CreateAccount(username, email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}
	return account, nil
}

// Login checks the credentials and issues a signed session token.
func (s *AuthService) Login(email, password string) (*Session, error) {
	ok, err := s.accounts.VerifyCredentials(email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	username, err := s.accounts.LookupUsername(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti":      uuid.New().String(),
		"email":    email,
		"username": username,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("session started", slog.String("username", username))
	return &Session{Token: tokenString, Username: username, ExpiresAt: expiresAt}, nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.logger.Debug("token validation failed", slog.Any("error", err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if _, ok := claims["email"].(string); !ok {
		return nil, fmt.Errorf("invalid token: missing email claim")
	}
	return claims, nil
}

// Username returns the username registered for email.
func (s *AuthService) Username(email string) (string, error) {
	return s.accounts.LookupUsername(email)
}

package identity

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/upstream"
)

// Provider is the slice of the upstream client this service uses.
type Provider interface {
	Register(ctx context.Context, req upstream.RegisterRequest) (string, error)
	Login(ctx context.Context, email, password string) (*upstream.LoginResult, error)
}

// Service proxies account registration and login to the auth provider.
// All field checks run locally so malformed submissions never leave the
// server.
type Service struct {
	provider Provider
	secret   []byte
	logger   zerolog.Logger
}

func NewService(provider Provider, secret []byte, logger zerolog.Logger) *Service {
	return &Service{provider: provider, secret: secret, logger: logger}
}

func validateRegistration(req upstream.RegisterRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return domain.NewValidationError("name is required")
	case strings.TrimSpace(req.Email) == "":
		return domain.NewValidationError("email is required")
	case !validEmail(req.Email):
		return domain.NewValidationError("email is invalid")
	case len(req.Password) < 6:
		return domain.NewValidationError("password must be at least 6 characters")
	case strings.TrimSpace(req.Gender) == "":
		return domain.NewValidationError("gender is required")
	case req.Age < 1 || req.Age > 120:
		return domain.NewValidationError("age must be between 1 and 120")
	case strings.TrimSpace(req.Address) == "":
		return domain.NewValidationError("address is required")
	case strings.TrimSpace(req.ContactNo) == "":
		return domain.NewValidationError("contact number is required")
	}
	return nil
}

// validEmail applies the same lightweight shape check the auth provider
// does: one "@" with a "." somewhere after it.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	return strings.Contains(email[at:], ".")
}

// Register creates an account and returns the new user id.
func (s *Service) Register(ctx context.Context, req upstream.RegisterRequest) (string, error) {
	if err := validateRegistration(req); err != nil {
		return "", err
	}

	userID, err := s.provider.Register(ctx, req)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("user_id", userID).Msg("account registered")
	return userID, nil
}

// Login exchanges credentials for a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.NewValidationError("email and password are required")
	}
	return s.provider.Login(ctx, email, password)
}

// Verify validates a presented bearer token locally and returns the
// identity it carries. No upstream call is made.
func (s *Service) Verify(token string) (*auth.Identity, error) {
	if token == "" {
		return nil, domain.NewAuthRequiredError("verify a session")
	}
	ident, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return nil, domain.NewAuthRequiredError("verify a session")
	}
	return &ident, nil
}

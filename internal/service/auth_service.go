package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/domain"
	"github.com/helpdesk-labs/ticketing/internal/repository"
	apperrors "github.com/helpdesk-labs/ticketing/pkg/util"
)

// LoginFailedMessage is the single message returned for every failed login.
const LoginFailedMessage = "Incorrect username or password"

// AuthService is the session authority of service A. It also mints
// capability tokens for principals that hold a session.
type AuthService struct {
	verifier   auth.CredentialVerifier
	sessions   auth.SessionStore
	issuer     *auth.TokenIssuer
	users      repository.UserRepository
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Verifier auth.CredentialVerifier
	Sessions auth.SessionStore
	Issuer   *auth.TokenIssuer
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		verifier:   deps.Verifier,
		sessions:   deps.Sessions,
		issuer:     deps.Issuer,
		users:      deps.UserRepo,
		sessionTTL: cfg.SessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login verifies credentials and binds a fresh session to the principal.
// Every login creates a new session; earlier ones stay valid until they end.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	principal, err := s.verifier.Verify(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Info("login rejected", zap.String("username", username))
			return domain.Session{}, apperrors.NewUnauthorized(LoginFailedMessage)
		}
		return domain.Session{}, apperrors.NewInternalError(err)
	}

	created := s.now().UTC()
	session := domain.Session{
		Handle:    uuid.NewString(),
		Principal: principal,
		CreatedAt: created,
		ExpiresAt: created.Add(s.sessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, apperrors.NewInternalError(err)
	}

	s.logger.Info("session created", zap.Int64("user_id", principal.ID), zap.String("role", string(principal.Role)))
	return session, nil
}

// Resolve returns the principal of a live session. It reads the session
// store only; credentials are never consulted.
func (s *AuthService) Resolve(ctx context.Context, handle string) (domain.Principal, error) {
	if handle == "" {
		return domain.Principal{}, auth.ErrNoSession
	}
	session, err := s.sessions.Lookup(ctx, handle)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			return domain.Principal{}, auth.ErrNoSession
		}
		return domain.Principal{}, err
	}
	if !s.now().Before(session.ExpiresAt) {
		return domain.Principal{}, auth.ErrNoSession
	}
	return session.Principal, nil
}

// Logout ends the session. Unknown or already ended handles are not an error.
func (s *AuthService) Logout(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, handle); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// IssueToken mints a capability token carrying the principal's current role.
// Callers must already hold a session.
func (s *AuthService) IssueToken(principal domain.Principal) (domain.CapabilityToken, error) {
	token, err := s.issuer.Issue(principal, s.now())
	if err != nil {
		return domain.CapabilityToken{}, apperrors.NewInternalError(err)
	}
	return token, nil
}

// RegisterUser stores a new account with a random salt and scrypt hash.
func (s *AuthService) RegisterUser(ctx context.Context, name, password string, admin bool) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("Name cannot be empty", nil)
	}
	if password == "" {
		return nil, apperrors.NewValidationError("Password cannot be empty", nil)
	}

	salt, err := auth.NewSalt()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	hash, err := auth.HashPassword(password, salt)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Name: name, Hash: hash, Salt: salt, Admin: admin}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("User %q already exists", name), nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

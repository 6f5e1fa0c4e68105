// internal/core/services/auth.go
package services

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/ammerola/stockroom-be/internal/core/domain"
	"github.com/ammerola/stockroom-be/internal/core/ports"
)

// TokenIssuer signs a token for an authenticated identity
type TokenIssuer interface {
	Generate(identity domain.Identity) (string, error)
}

// AuthService authenticates the admin account and issues tokens
type AuthService struct {
	identities ports.IdentityProvider
	issuer     TokenIssuer
	logger     *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(identities ports.IdentityProvider, issuer TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{
		identities: identities,
		issuer:     issuer,
		logger:     logger.With(slog.String("service", "auth")),
	}
}

// Login verifies credentials and returns a signed token with the identity.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.Identity, error) {
	cred, err := s.identities.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if cred == nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(cred.PasswordHash, []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "failed login attempt",
			slog.String("username", username))
		return "", nil, domain.ErrInvalidCredentials
	}

	tok, err := s.issuer.Generate(cred.Identity)
	if err != nil {
		return "", nil, err
	}

	s.logger.InfoContext(ctx, "admin logged in",
		slog.String("username", username))

	identity := cred.Identity
	return tok, &identity, nil
}

// StaticIdentityProvider serves the single configured admin account
type StaticIdentityProvider struct {
	cred ports.Credential
}

// Statically assert that *StaticIdentityProvider implements the
// IdentityProvider interface.
var _ ports.IdentityProvider = (*StaticIdentityProvider)(nil)

// NewStaticIdentityProvider hashes the configured admin password once at
// startup and serves it as the only known credential.
func NewStaticIdentityProvider(username, password, email string, bcryptCost int) (*StaticIdentityProvider, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	return &StaticIdentityProvider{
		cred: ports.Credential{
			Identity: domain.Identity{
				ID:       1,
				Username: username,
				Email:    email,
			},
			PasswordHash: hash,
		},
	}, nil
}

// FindByUsername returns the admin credential when the username matches
func (p *StaticIdentityProvider) FindByUsername(_ context.Context, username string) (*ports.Credential, error) {
	if username != p.cred.Username {
		return nil, nil
	}
	cred := p.cred
	return &cred, nil
}

// internal/core/ports/identity.go
package ports

import (
	"context"

	"github.com/ammerola/stockroom-be/internal/core/domain"
)

// Credential pairs an identity with its stored password hash.
type Credential struct {
	domain.Identity
	PasswordHash []byte
}

// IdentityProvider looks up login credentials. The current deployment uses
// a single static admin identity; a real user store can slot in behind the
// same interface.
type IdentityProvider interface {
	FindByUsername(ctx context.Context, username string) (*Credential, error)
}

// internal/core/domain/errors.go
package domain

import "errors"

// Sentinel errors for the product update/import pipelines. Handlers map
// these to HTTP status codes at the request boundary.
var (
	ErrMissingField       = errors.New("name, unit, category required")
	ErrInvalidStock       = errors.New("stock must be >= 0")
	ErrNameConflict       = errors.New("name must be unique")
	ErrNotFound           = errors.New("product not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

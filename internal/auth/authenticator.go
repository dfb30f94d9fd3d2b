// Package auth issues and checks diner and operator credentials.
package auth

import (
	"context"

	"github.com/sharedtable/fare/internal/models"
)

var _ Authenticator = (*PasswordAuthenticator)(nil)

// Authenticator registers and signs in accounts. The returned user carries
// the role that is later embedded in the session token.
type Authenticator interface {
	// Register creates a diner account, or an operator account when the
	// email is on the configured operator list.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account for valid credentials and
	// ErrInvalidCredentials otherwise.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential reports whether a credential is acceptable before
	// anything is stored.
	ValidateCredential(credential string) error
}

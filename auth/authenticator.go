package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials on a request.
//
// Authenticate returns (identity, nil) on success. A rejected credential
// is reported as an error wrapping one of the package sentinels.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	// Name identifies the authenticator in logs.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(header http.Header) bool

	// Authenticate validates the credentials.
	Authenticate(ctx context.Context, header http.Header) (*Identity, error)
}

// CompositeAuthenticator delegates to the first authenticator that
// supports the request.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite over auths, tried in order.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{authenticators: auths}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Supports reports whether any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(header http.Header) bool {
	for _, a := range c.authenticators {
		if a.Supports(header) {
			return true
		}
	}
	return false
}

// Authenticate runs the first supporting authenticator.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, header http.Header) (*Identity, error) {
	for _, a := range c.authenticators {
		if a.Supports(header) {
			return a.Authenticate(ctx, header)
		}
	}
	return nil, ErrMissingCredentials
}

// Len returns the number of configured authenticators.
func (c *CompositeAuthenticator) Len() int {
	return len(c.authenticators)
}

var _ Authenticator = (*CompositeAuthenticator)(nil)

package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// DefaultAPIKeyHeader carries the maintenance key.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is one accepted maintenance key.
type APIKey struct {
	Principal string
	Key       string
	Roles     []string
}

type hashedKey struct {
	principal string
	roles     []string
	sum       [sha256.Size]byte
}

// APIKeyAuthenticator accepts a fixed set of keys.
type APIKeyAuthenticator struct {
	header string
	keys   []hashedKey
}

// NewAPIKeyAuthenticator creates an authenticator over keys. Empty keys
// are skipped. header defaults to X-API-Key.
func NewAPIKeyAuthenticator(header string, keys ...APIKey) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: header}
	for _, k := range keys {
		if k.Key == "" {
			continue
		}
		a.keys = append(a.keys, hashedKey{
			principal: k.Principal,
			roles:     k.Roles,
			sum:       sha256.Sum256([]byte(k.Key)),
		})
	}
	return a
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return string(MethodAPIKey)
}

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(header http.Header) bool {
	return header.Get(a.header) != ""
}

// Authenticate compares the presented key against every configured key
// in constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, header http.Header) (*Identity, error) {
	presented := strings.TrimSpace(header.Get(a.header))
	if presented == "" {
		return nil, ErrMissingCredentials
	}

	sum := sha256.Sum256([]byte(presented))
	var match *hashedKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], a.keys[i].sum[:]) == 1 {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Principal: match.principal,
		Roles:     match.roles,
		Method:    MethodAPIKey,
	}, nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)

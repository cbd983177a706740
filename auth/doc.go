// Package auth guards the maintenance routes.
//
// Two authenticators are provided: a static API key read from the
// X-API-Key header and an HS256 bearer JWT. A CompositeAuthenticator
// tries them in order, and Middleware rejects requests that no
// authenticator accepts. Query routes are never wrapped.
package auth

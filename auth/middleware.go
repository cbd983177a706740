package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jonwraymond/landmarks/observe"
)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// RequiredRole, when set, must be carried by the identity.
	RequiredRole string

	Logger observe.Logger
}

// Middleware rejects requests authn does not accept with 401, and
// identities missing the required role with 403. A nil authn lets every
// request through.
func Middleware(authn Authenticator, cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.WithComponent("auth")

	return func(next http.Handler) http.Handler {
		if authn == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if !authn.Supports(r.Header) {
				deny(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}
			id, err := authn.Authenticate(ctx, r.Header)
			if err != nil {
				logger.Warn(ctx, "maintenance request rejected",
					observe.F("path", r.URL.Path), observe.ErrField(err))
				deny(w, http.StatusUnauthorized, err)
				return
			}
			if cfg.RequiredRole != "" && !id.HasRole(cfg.RequiredRole) {
				logger.Warn(ctx, "maintenance request forbidden",
					observe.F("path", r.URL.Path), observe.F("principal", id.Principal))
				deny(w, http.StatusForbidden, ErrForbidden)
				return
			}

			logger.Info(ctx, "maintenance request authenticated",
				observe.F("path", r.URL.Path),
				observe.F("principal", id.Principal),
				observe.F("method", string(id.Method)))
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func deny(w http.ResponseWriter, status int, err error) {
	msg := "unauthorized"
	switch {
	case errors.Is(err, ErrForbidden):
		msg = "forbidden"
	case errors.Is(err, ErrTokenExpired):
		msg = "token expired"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="landmarks"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

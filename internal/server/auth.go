package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"bountyline/internal/auth"
	"bountyline/internal/domain"
	"bountyline/internal/token"
)

// SessionCookie carries the session token for browser clients. Header and
// cookie tokens decode through the same codec.
const SessionCookie = "bounty_session"

// InternalWalletHeader is the service-to-service identity header. It is a
// weaker authorization boundary than token auth and is only honored when
// explicitly enabled.
const InternalWalletHeader = "X-Internal-Wallet"

type AuthConfig struct {
	Codec *token.Codec
	// AllowInternalWalletHeader enables the trusted internal header path.
	AllowInternalWalletHeader bool
	Logger                    *log.Logger
}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

type identityKey struct{}

func withIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// identityFromContext returns nil when the request carried no verified
// credentials.
func identityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey{}).(*auth.Identity)
	return id
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware attaches a verified identity to the request context.
// Requests without credentials pass through unauthenticated; handlers
// decide what they require. A present-but-invalid token is rejected here.
func newAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			raw := ""
			if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
				t, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "invalid credentials", nil))
					return
				}
				raw = t
			} else if c, err := req.Cookie(SessionCookie); err == nil {
				raw = c.Value
			}

			if raw != "" {
				claims, err := cfg.Codec.Verify(raw)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "invalid credentials", nil))
					return
				}
				ctx := withIdentity(req.Context(), &auth.Identity{Claims: claims, Source: auth.SourceToken})
				next.ServeHTTP(w, req.WithContext(ctx))
				return
			}

			if wallet := strings.TrimSpace(req.Header.Get(InternalWalletHeader)); wallet != "" && cfg.AllowInternalWalletHeader {
				cfg.logger().Printf("WARNING: trusting %s header without token verification (wallet=%s); this path is a weaker authorization boundary", InternalWalletHeader, wallet)
				ctx := withIdentity(req.Context(), &auth.Identity{
					Claims: token.Claims{Subject: wallet, Role: domain.RoleSponsor, Permissions: []string{}},
					Source: auth.SourceInternalHeader,
				})
				next.ServeHTTP(w, req.WithContext(ctx))
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Header and cookie names the middleware reads.
const (
	HeaderUser  = "X-Backoffice-User"
	HeaderRoles = "X-Backoffice-Roles"
	CookieName  = "backoffice_user"
)

// Middleware resolves the principal of each request and stores it on the
// request context.
//
// The principal comes from the X-Backoffice-User and X-Backoffice-Roles
// headers set by the fronting proxy, or from the backoffice_user cookie
// ("name:role1,role2"). Requests carrying neither get fallback, unless
// fallback is the zero Principal, in which case they are rejected with 401.
func Middleware(fallback Principal, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := fromRequest(r)
			if !ok {
				if fallback.IsZero() {
					logger.Debug("unauthenticated request", "path", r.URL.Path)
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				p = fallback
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func fromRequest(r *http.Request) (Principal, bool) {
	if name := strings.TrimSpace(r.Header.Get(HeaderUser)); name != "" {
		return Principal{ID: name, Name: name, Roles: splitRoles(r.Header.Get(HeaderRoles))}, true
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return ParseCookie(c.Value)
	}
	return Principal{}, false
}

// ParseCookie parses a "name:role1,role2" cookie value.
func ParseCookie(value string) (Principal, bool) {
	name, roles, _ := strings.Cut(value, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Principal{}, false
	}
	return Principal{ID: name, Name: name, Roles: splitRoles(roles)}, true
}

// FormatCookie is the inverse of ParseCookie.
func FormatCookie(p Principal) string {
	return p.Name + ":" + strings.Join(p.Roles, ",")
}

func splitRoles(s string) []string {
	var roles []string
	for _, role := range strings.Split(s, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// Middleware attaches the session carried by the session cookie or a Bearer token.
// Requests without a valid token pass through anonymously; handlers decide whether
// they need a session.
func Middleware(m *Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r, m.CookieName())
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := m.Parse(raw)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid session token")
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithSession(r.Context(), sess)
			logger := zerolog.Ctx(ctx).With().
				Str("role", string(sess.Role)).
				Str("subject_id", sess.SubjectID.String()).
				Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request, cookie string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}

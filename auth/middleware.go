package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves the caller identity from a session cookie or, failing
// that, an Authorization bearer token. Requests without a resolvable
// identity pass through unauthenticated; handlers decide what that means.
func Middleware(sessions SessionStore, tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(CookieName); err == nil {
				sess, err := sessions.GetByToken(r.Context(), cookie.Value)
				if err != nil {
					slog.Info("invalid/expired session")
					http.SetCookie(w, &http.Cookie{
						Name:   CookieName,
						Value:  "",
						Path:   "/",
						MaxAge: -1,
					})
					next.ServeHTTP(w, r)
					return
				}
				ctx := WithIdentity(r.Context(), Identity{Subject: sess.UserID.String()})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if tokens != nil {
				if bearer, ok := bearerToken(r); ok {
					id, err := tokens.Verify(bearer)
					if err != nil {
						slog.Info("invalid bearer token")
						next.ServeHTTP(w, r)
						return
					}
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth redirects to login if the caller is not authenticated.
func RequireAuth(redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAuthenticated(r.Context()) {
				http.Redirect(w, r, redirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}

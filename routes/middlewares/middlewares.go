package middlewares

import (
	"net/http"

	"github.com/go-chi/oauth"
)

// Authenticated requires a valid bearer token issued by the login flow.
func Authenticated(tokenSecret string) func(http.Handler) http.Handler {
	return oauth.Authorize(tokenSecret, nil)
}

// OptionalAuthenticated validates a bearer token when the request carries
// one, but lets anonymous requests through untouched. Public form
// endpoints use it so signed-in respondents keep their identity.
func OptionalAuthenticated(tokenSecret string) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(tokenSecret, nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			authorize(next).ServeHTTP(w, r)
		})
	}
}

// Username extracts the authenticated credential set by the oauth
// middleware; empty when the request is anonymous.
func Username(r *http.Request) string {
	credential, _ := r.Context().Value(oauth.CredentialContext).(string)
	return credential
}

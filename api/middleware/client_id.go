package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const clientIDHeader = "X-Client-Id"

// ClientID seeds the context with the caller's device identifier, which
// scopes guest cart and address snapshots. A missing header gets a fresh id
// echoed back so the client can persist it.
func ClientID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := strings.TrimSpace(r.Header.Get(clientIDHeader))
			if clientID == "" {
				clientID = uuid.NewString()
			}
			w.Header().Set(clientIDHeader, clientID)

			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
		})
	}
}

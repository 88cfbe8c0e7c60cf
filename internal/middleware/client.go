package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/wallet-orders/internal/auth"
	"github.com/josh-kwaku/wallet-orders/internal/handler"
)

const maxClientIDLen = 64

// ClientID requires the client-id header and stores it in the request
// context for handlers.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := strings.TrimSpace(r.Header.Get(auth.ClientIDHeader))
		if clientID == "" || len(clientID) > maxClientIDLen {
			handler.RespondAppError(w, handler.ErrMissingClientID, nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithClientID(r.Context(), clientID)))
	})
}

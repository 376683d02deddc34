package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-billing/internal/common"
)

// APIKey guards routes behind a static key carried in the X-API-Key header.
// A Bearer token in Authorization is accepted as an alternative carrier.
type APIKey struct {
	Key string
}

// Require rejects requests that do not present the configured key.
func (a APIKey) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Key == "" {
			common.JSONError(w, http.StatusInternalServerError, "SERVER_MISCONFIGURED", "api key is not configured", nil)
			return
		}
		presented := a.extractKey(r)
		if presented == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing api key", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(a.Key)) != 1 {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid api key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a APIKey) extractKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tqp/internal/config"
	"github.com/JonMunkholm/tqp/internal/logging"
)

// APIKeyAuth returns middleware that checks the X-API-Key header, or a
// "Bearer" Authorization header, against the configured keys.
// If RequireAPIKey is false, all requests pass through.
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys = append(keys, []byte(k))
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := presentedKey(r)
			log := logging.WithFields(r.Context(), "path", r.URL.Path, "method", r.Method, "remote_addr", r.RemoteAddr)

			switch {
			case key == "":
				log.Warn("auth: missing API key")
				denied(w, r, "missing API key", "AUTH_MISSING_KEY")
			case !validKey(key, keys):
				log.Warn("auth: invalid API key")
				denied(w, r, "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// validKey compares against every key so timing does not reveal which one
// matched.
func validKey(key string, keys [][]byte) bool {
	presented := []byte(key)
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare(presented, k)
	}
	return ok == 1
}

// denied writes a 401 in the same shape as the API's other error bodies.
func denied(w http.ResponseWriter, r *http.Request, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tqp"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      msg,
		"message":    msg,
		"action":     "Send a valid key in the X-API-Key header",
		"code":       code,
		"request_id": chimw.GetReqID(r.Context()),
	})
}

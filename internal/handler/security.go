package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// requireAPIKey wraps a handler with API key authentication. The key arrives
// in the api_key header; it is HMAC-SHA256 hashed with the configured pepper,
// looked up, and compared in constant time. The key must also grant the
// required scope.
func (h *Handler) requireAPIKey(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			respondError(w, http.StatusUnauthorized, "api key required")
			return
		}

		mac := hmac.New(sha256.New, h.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !info.HasScope(scope) {
			respondError(w, http.StatusForbidden, "missing scope: "+scope)
			return
		}

		next(w, r)
	}
}

package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// validateDockerAuth checks the Basic-auth credentials on a Docker webhook
// request against the shared token, encoded as "user:token" per spec.md §6.
func validateDockerAuth(r *http.Request, token string) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	joined := user + ":" + pass
	return subtle.ConstantTimeCompare([]byte(joined), []byte(token)) == 1
}

// validateGitHubSignature verifies the X-Hub-Signature-256 header against
// body, HMAC-SHA256 signed with secret.
func validateGitHubSignature(body []byte, header string, secret []byte) bool {
	sigHex, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	signature, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(signature, expected)
}

// requireBearer wraps next, rejecting requests whose Authorization header
// does not carry "Bearer <token>".
func requireBearer(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

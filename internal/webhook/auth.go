package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// validOperatorToken returns true if provided matches configured. An empty
// configured token means the operator surface is effectively disabled.
func validOperatorToken(provided, configured string) bool {
	if configured == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) == 1
}

// extractBearer extracts a token from an Authorization: Bearer <token> header.
func extractBearer(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", errors.New("missing Authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", errors.New("invalid Authorization header format")
	}

	token := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
	if token == "" {
		return "", errors.New("missing token")
	}
	return token, nil
}

// requireOperatorToken gates operator endpoints behind the configured
// bearer token.
func (s *Server) requireOperatorToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearer(r)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
		if !validOperatorToken(token, s.config.OperatorToken) {
			respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

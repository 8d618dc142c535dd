package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
)

// MessageAuthFailed is returned with 401 when a caller cannot be authenticated.
const MessageAuthFailed = "User authentication failed"

type principalContextKey struct{}

// BearerAuth admits requests whose Authorization header carries one of
// tokens. An empty token list admits everyone.
func BearerAuth(tokens []string) func(http.Handler) http.Handler {
	accepted := make([][]byte, 0, len(tokens))
	for _, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			accepted = append(accepted, []byte(token))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(accepted) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented, ok := bearerToken(r)
			if !ok || !tokenAccepted(accepted, presented) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="propertydetails"`)
				envelope := errors.NewErrorEnvelope("UNAUTHORIZED", MessageAuthFailed).
					WithCorrelationID(GetRequestID(r.Context()))
				WriteErrorResponse(w, envelope, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, fingerprint(presented))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns a stable, non-secret identifier for the authenticated
// caller, or "" when authentication is disabled.
func GetPrincipal(ctx context.Context) string {
	principal, _ := ctx.Value(principalContextKey{}).(string)
	return principal
}

func bearerToken(r *http.Request) ([]byte, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil, false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	return []byte(token), true
}

func tokenAccepted(accepted [][]byte, presented []byte) bool {
	match := 0
	for _, token := range accepted {
		match |= subtle.ConstantTimeCompare(token, presented)
	}
	return match == 1
}

func fingerprint(token []byte) string {
	sum := sha256.Sum256(token)
	return "token:" + hex.EncodeToString(sum[:6])
}

package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/terangapay/transfert-backend/internal/domain"
)

// TokenVerifier validates a bearer credential and returns the identity it
// carries. Credential issuance lives outside this service; the server only
// needs the shared secret to verify.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// HMACVerifier verifies tokens of the form
// base64url(phone|role|hex(hmac-sha256(secret, phone|role))).
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier bound to the shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify decodes and authenticates a token.
func (v *HMACVerifier) Verify(token string) (domain.Identity, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return domain.Identity{}, errors.New("malformed token")
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return domain.Identity{}, errors.New("malformed token")
	}
	phone, role, signature := parts[0], parts[1], parts[2]
	if !hmac.Equal([]byte(signature), []byte(v.sign(phone, role))) {
		return domain.Identity{}, errors.New("invalid token signature")
	}
	if role != string(domain.RoleUser) && role != string(domain.RoleAdmin) {
		return domain.Identity{}, fmt.Errorf("unknown role %q", role)
	}
	return domain.Identity{Phone: phone, Role: domain.Role(role)}, nil
}

// Issue mints a token for the given identity. Used by tooling and tests.
func (v *HMACVerifier) Issue(identity domain.Identity) string {
	payload := identity.Phone + "|" + string(identity.Role) + "|" + v.sign(identity.Phone, string(identity.Role))
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func (v *HMACVerifier) sign(phone, role string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(phone + "|" + role))
	return hex.EncodeToString(mac.Sum(nil))
}

type contextKey struct{}

var identityKey contextKey

// identityFrom extracts the verified identity stored by Authenticate.
func identityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// Authenticate verifies the Authorization bearer credential and injects
// the resulting identity into the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}
			identity, err := verifier.Verify(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credential")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects callers whose identity does not carry the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFrom(r.Context())
		if !ok || !identity.IsAdmin() {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

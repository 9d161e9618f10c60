package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminIDKey contextKey = "adminID"

var errInvalidToken = errors.New("invalid or expired token")

// Authenticator validates the admin identity tokens issued by the
// surrounding application. Only the admin id claim matters here; account
// management and token issuance live elsewhere.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// AdminID extracts and validates the bearer token from a request. The
// token may arrive in the Authorization header or, for WebSocket clients
// that cannot set headers, in the `token` query parameter.
func (a *Authenticator) AdminID(r *http.Request) (string, error) {
	raw := ""
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errInvalidToken
		}
		raw = parts[1]
	} else {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return "", errInvalidToken
	}
	return a.parse(raw)
}

func (a *Authenticator) parse(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errInvalidToken
	}
	return sub, nil
}

// MintToken issues a short-lived admin token. Exposed for tests and demo
// setups; production tokens come from the main application's auth service.
func (a *Authenticator) MintToken(adminID string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   adminID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware guards admin-only REST routes.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		adminID, err := a.AdminID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminIDKey, adminID)))
	})
}

func adminIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(adminIDKey).(string)
	return id
}

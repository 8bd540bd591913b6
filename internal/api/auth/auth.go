// Package auth turns a bearer token into the identity claim the lifecycle
// engine operates under. Tokens are issued elsewhere; this package only
// verifies them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TWRT/task-manager/internal/models"
)

type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(models.Identity)
	return id, ok
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(token string) (models.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	if claims.Subject == "" {
		return models.Identity{}, errors.New("token has no subject")
	}
	if !claims.Role.IsValid() {
		return models.Identity{}, fmt.Errorf("token has invalid role %q", claims.Role)
	}
	return models.Identity{ID: claims.Subject, Role: claims.Role}, nil
}

// Sign issues a token for id. It exists for tests and local tooling that share
// the verifier's secret.
func (v *Verifier) Sign(id models.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.ID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: id.Role, RegisteredClaims: claims})
	return token.SignedString(v.secret)
}

// Middleware rejects requests without a valid bearer token and stores the
// verified identity in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			unauthorized(w, "not authorized, no token")
			return
		}

		id, err := v.Verify(token)
		if err != nil {
			unauthorized(w, "not authorized, token failed")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

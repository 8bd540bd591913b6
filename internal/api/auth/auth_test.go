package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/task-manager/internal/models"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	want := models.Identity{ID: "user-1", Role: models.RoleMember}

	token, err := v.Sign(want, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)

	got, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret")
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	expired, err := v.Sign(models.Identity{ID: "u", Role: models.RoleAdmin},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	require.NoError(t, err)

	otherKey, err := NewVerifier("other").Sign(models.Identity{ID: "u", Role: models.RoleAdmin}, valid)
	require.NoError(t, err)

	badRole, err := v.Sign(models.Identity{ID: "u", Role: "owner"}, valid)
	require.NoError(t, err)

	noSubject, err := v.Sign(models.Identity{Role: models.RoleAdmin}, valid)
	require.NoError(t, err)

	noExpiry, err := v.Sign(models.Identity{ID: "u", Role: models.RoleAdmin}, jwt.RegisteredClaims{})
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  otherKey,
		"bad role":   badRole,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"garbage":    "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.Error(t, err)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret")
	var seen models.Identity
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := v.Sign(models.Identity{ID: "admin-1", Role: models.RoleAdmin},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin-1", seen.ID)
	assert.True(t, seen.IsAdmin())
}

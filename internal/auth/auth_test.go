package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := newService("admin@example.com", "s3cret", NewJWTManager(testSecret, time.Hour), bcrypt.MinCost)
	require.NoError(t, err)
	return s
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	token, err := m.Generate("admin@example.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute)

	token, err := m.Generate("admin@example.com")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTRejectsForeignTokens(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	other, err := NewJWTManager([]byte("other"), time.Hour).Generate("admin@example.com")
	require.NoError(t, err)
	_, err = m.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Correctly signed but without the admin role.
	claims := Claims{Email: "x@example.com", Role: "viewer", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	viewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = m.Verify(viewer)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestServiceLogin(t *testing.T) {
	s := newTestService(t)

	token, err := s.Login("admin@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = s.Login("admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("someone@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func postLogin(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	return rec
}

func TestLoginHandler(t *testing.T) {
	h := NewHandler(newTestService(t), func(*http.Request) *Claims { return nil })

	rec := postLogin(h, `{"email":"admin@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "admin@example.com", resp.Admin.Email)

	rec = postLogin(h, `{"email":"admin@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postLogin(h, `{"email":"admin@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postLogin(h, `{bad json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyHandlerEchoesClaims(t *testing.T) {
	claims := &Claims{Email: "admin@example.com", Role: RoleAdmin}
	h := NewHandler(newTestService(t), func(*http.Request) *Claims { return claims })

	rec := httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, AdminInfo{Email: "admin@example.com", Role: RoleAdmin}, resp.Admin)

	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out successfully")
}

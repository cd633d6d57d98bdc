package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/common"
)

var testParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	hash := ""
	if password != "" {
		var err error
		hash, err = argon2id.CreateHash(password, testParams)
		require.NoError(t, err)
	}
	svc, err := NewService(Config{Secret: "test-secret", PasswordHash: hash, TokenTTL: time.Minute})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t, "s3cret")
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	token, err := svc.Login("s3cret")
	require.NoError(t, err)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, now.Add(time.Minute), token.ExpiresAt)

	subject, err := svc.ParseAccessToken(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", subject)

	svc.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = svc.ParseAccessToken(token.AccessToken)
	require.Error(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestService(t, "s3cret")
	_, err := svc.Login("nope")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	require.Equal(t, "INVALID_CREDENTIALS", appErr.Code)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	svc := newTestService(t, "")
	_, err := svc.Login("anything")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestParseAccessTokenRejectsForeignTokens(t *testing.T) {
	svc := newTestService(t, "s3cret")
	now := time.Now()

	shopper, err := jwt.NewBuilder().
		Issuer(defaultIssuer).
		Audience([]string{defaultAudience}).
		Subject("someone").
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Claim(RoleClaim, "shopper").
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(shopper, jwt.WithKey(jwa.HS256, []byte("test-secret")))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)

	signed, err = jwt.Sign(shopper, jwt.WithKey(jwa.HS256, []byte("other-secret")))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(string(signed))
	require.Error(t, err)

	_, err = svc.ParseAccessToken("not-a-token")
	require.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("")
	require.Error(t, err)
}

func TestRequireAdminMiddleware(t *testing.T) {
	svc := newTestService(t, "s3cret")
	r := chi.NewRouter()
	r.Post("/login", NewHandler(svc).Login)
	r.With(Middleware{Service: svc}.RequireAdmin).Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFrom(r.Context())
		require.True(t, ok)
		common.JSON(w, http.StatusOK, map[string]string{"subject": subject})
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data Token `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.AccessToken)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"subject":"admin"`)

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

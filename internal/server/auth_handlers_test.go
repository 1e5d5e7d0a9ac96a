package server

import (
	"net/http"
	"testing"
	"time"

	"farmlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"phone":    "9990001111",
		"name":     "Ravi",
		"password": "secret-pass",
		"email":    "ravi@example.com",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	res := decode[struct {
		Token string             `json:"token"`
		User  models.ProfileView `json:"user"`
	}](t, body)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "9990001111", res.User.Phone)
	assert.Equal(t, "ravi@example.com", res.User.Email)
	assert.Equal(t, "", res.User.Role)

	status, body = env.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"phone":    "9990001111",
		"name":     "Other",
		"password": "secret-pass",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeDuplicatePhone, errorCode(t, body))
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/auth/register", "", fiber.Map{"phone": "abc"})
	assert.Equal(t, http.StatusBadRequest, status)

	res := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeValidation, res.Code)
	assert.Contains(t, res.Fields, "phone")
	assert.Contains(t, res.Fields, "password")

	status, _ = env.send(t, newRawRequest(http.MethodPost, "/api/auth/register", "{"), "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "9990002222")

	token := env.login(t, "9990002222")
	assert.NotEmpty(t, token)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"phone":    "9990002222",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	res := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeInvalidCredentials, res.Code)
	assert.Equal(t, "Invalid credentials", res.Error)
}

func TestIssuedTokenClaims(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990003333")

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "farmlink-api", claims.Issuer)
	assert.Contains(t, claims.Audience, "farmlink-client")
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990004444")

	status, _ := env.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, status, string(body))

	status, body = env.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, models.CodeUnauthorized, errorCode(t, body))

	fresh := env.login(t, "9990004444")
	status, _ = env.do(t, http.MethodGet, "/api/profile", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/api/profile", "/api/posts/saved", "/api/admin/stats"} {
		status, body := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, models.CodeUnauthorized, errorCode(t, body), path)
	}

	status, _ := env.do(t, http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

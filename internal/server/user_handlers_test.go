package server

import (
	"net/http"
	"testing"

	"farmlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990001111")

	status, body := env.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))

	view := decode[models.ProfileView](t, body)
	assert.Equal(t, "9990001111", view.Phone)
	assert.Equal(t, "", view.Role)
	assert.Equal(t, "", view.Location)
	assert.Contains(t, string(body), `"business_name":""`)
}

func TestUpdateMyProfile_ChangesRole(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990002222")

	status, body := env.do(t, http.MethodPatch, "/api/profile", token, fiber.Map{
		"role":      "farmer",
		"location":  "Nashik",
		"farm_size": "5 acres",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	view := decode[models.ProfileView](t, body)
	assert.Equal(t, "farmer", view.Role)
	assert.Equal(t, "Nashik", view.Location)
	assert.Equal(t, "5 acres", view.FarmSize)

	status, body = env.do(t, http.MethodPut, "/api/profile", token, fiber.Map{
		"role":             "expert_advisor",
		"experience_years": 12,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	view = decode[models.ProfileView](t, body)
	assert.Equal(t, "expert_advisor", view.Role)
	assert.Equal(t, "12", view.ExperienceYears)
	assert.Equal(t, "", view.Location, "the previous role's profile is replaced")
}

func TestUpdateMyProfile_RejectsForeignFields(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "9990003333")

	status, _ := env.do(t, http.MethodPatch, "/api/profile", token, fiber.Map{"role": "retailer"})
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPatch, "/api/profile", token, fiber.Map{
		"location": "Pune",
		"phone":    "9990009999",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	res := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeValidation, res.Code)
	assert.Contains(t, res.Fields, "location")
	assert.Contains(t, res.Fields, "phone")

	status, _ = env.do(t, http.MethodPatch, "/api/profile", token, fiber.Map{"tags": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, status)
}

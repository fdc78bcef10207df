package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

type errorBody struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestID string         `json:"requestId"`
	} `json:"error"`
}

func newTestApp() *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Get("/locked", func(c *fiber.Ctx) error {
		return apperrors.NewRecordLocked()
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewMissingRequiredField("hospitalName", []string{"hospitalName", "emsUnit"})
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	return app
}

func decodeError(t *testing.T, body io.Reader) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorEnvelope(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{name: "locked record", path: "/locked", status: fiber.StatusLocked, code: "RECORD_LOCKED"},
		{name: "missing field", path: "/missing", status: fiber.StatusBadRequest, code: "MISSING_REQUIRED_FIELD"},
		{name: "panic recovered", path: "/panic", status: fiber.StatusInternalServerError, code: "INTERNAL_ERROR"},
		{name: "unknown route", path: "/nope", status: fiber.StatusNotFound, code: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeError(t, resp.Body)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestMissingFieldDetails(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	body := decodeError(t, resp.Body)
	assert.Equal(t, "hospitalName", body.Error.Details["field"])
	assert.Equal(t, []any{"hospitalName", "emsUnit"}, body.Error.Details["missing"])
}

func TestErrorsCarryRequestID(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/locked", nil))
	require.NoError(t, err)
	body := decodeError(t, resp.Body)
	assert.NotEmpty(t, body.Error.RequestID)
	assert.Equal(t, resp.Header.Get(fiber.HeaderXRequestID), body.Error.RequestID)
}

func TestSignInLimiter(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Use("/auth/sign-in", signInLimiter(2))
	app.Post("/auth/sign-in/verify", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/sign-in/verify", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/auth/sign-in/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp.Body).Error.Code)
}

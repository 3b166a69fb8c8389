package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userID", "user ID"},
		{"userId", "user ID"},
		{"conversationID", "conversation ID"},
		{"otherUserID", "other user ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parseID ---

func TestParseID_ValidID(t *testing.T) {
	app := fiber.New()
	s := &Server{}
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]uint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, uint(42), body["id"])
}

func TestParseID_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		param       string
		path        string
		expectedMsg string
	}{
		{"non numeric", "id", "/items/abc", "Invalid ID"},
		{"zero", "id", "/items/0", "Invalid ID"},
		{"negative", "id", "/items/-3", "Invalid ID"},
		{"named param", "userID", "/items/abc", "Invalid user ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			s := &Server{}
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				_, _ = s.parseID(c, tt.param)
				return nil
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedMsg, body.Error)
			assert.Equal(t, models.CodeValidation, body.Code)
		})
	}
}

// --- mapServiceError ---

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{"validation", models.NewValidationError("bad"), http.StatusBadRequest, models.CodeValidation},
		{"unauthorized", models.NewUnauthorizedError("Invalid credentials"), http.StatusUnauthorized, models.CodeUnauthorized},
		{"forbidden", models.NewForbiddenError("not yours"), http.StatusForbidden, models.CodeForbidden},
		{"not found", models.NewNotFoundError("Message", 9), http.StatusNotFound, models.CodeNotFound},
		{"conflict", models.NewConflictError("Username already taken"), http.StatusConflict, models.CodeConflict},
		{"internal", models.NewInternalError(errors.New("boom")), http.StatusInternalServerError, models.CodeInternal},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return mapServiceError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestStatusCodeRoundTrip(t *testing.T) {
	for _, code := range []string{
		models.CodeValidation, models.CodeUnauthorized, models.CodeForbidden,
		models.CodeNotFound, models.CodeConflict, models.CodeInternal,
	} {
		assert.Equal(t, code, statusCode(errorStatus(code)), code)
	}
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"warbler/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:5173"

func newMiddlewareApp(t *testing.T, origins string) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: origins}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Get("/limited", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/limited", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app
}

func originRequest(t *testing.T, app *fiber.App, method, origin string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/limited", nil)
	req.Header.Set("Origin", origin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func exhaustLimiter(t *testing.T, app *fiber.App, method string) {
	t.Helper()
	for range 100 {
		resp := originRequest(t, app, method, testOrigin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestCORS_AllowsConfiguredOriginWithCredentials(t *testing.T) {
	app := newMiddlewareApp(t, testOrigin)

	resp := originRequest(t, app, http.MethodGet, testOrigin)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	// The session travels as a cookie, so credentials must be allowed.
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOriginGetsNoAllowHeader(t *testing.T) {
	app := newMiddlewareApp(t, testOrigin)

	resp := originRequest(t, app, http.MethodGet, "http://evil.example")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORS_DefaultOriginsWhenUnset(t *testing.T) {
	app := newMiddlewareApp(t, "")

	resp := originRequest(t, app, http.MethodGet, "http://localhost:3000")
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestLimiter_RejectionKeepsCORSHeaders(t *testing.T) {
	app := newMiddlewareApp(t, testOrigin)
	exhaustLimiter(t, app, http.MethodGet)

	resp := originRequest(t, app, http.MethodGet, testOrigin)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestLimiter_PreflightIsNotCounted(t *testing.T) {
	app := newMiddlewareApp(t, testOrigin)
	exhaustLimiter(t, app, http.MethodPost)

	limited := originRequest(t, app, http.MethodPost, testOrigin)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	_ = limited.Body.Close()

	preflight := originRequest(t, app, http.MethodOptions, testOrigin)
	defer func() { _ = preflight.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Equal(t, testOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

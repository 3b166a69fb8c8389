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

func TestSecurityMiddleware(t *testing.T) {
	srv := &Server{config: &config.Config{}}
	app := fiber.New()
	srv.SetupMiddleware(app)

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString("nope")
	})

	t.Run("Security Headers", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
		assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
		assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	})

	t.Run("No Cache", func(t *testing.T) {
		for _, path := range []string{"/test", "/fail"} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"), path)
			assert.Equal(t, "no-cache", resp.Header.Get("Pragma"), path)
			assert.Equal(t, "0", resp.Header.Get("Expires"), path)
		}
	})
}

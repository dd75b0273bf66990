package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Backends that
// are not configured report "disabled" and do not fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		healthy := true
		check := func(ping func(context.Context) error) string {
			if ping == nil {
				return "disabled"
			}
			if err := ping(ctx); err != nil {
				healthy = false
				return err.Error()
			}
			return "ok"
		}

		var dbPing, redisPing func(context.Context) error
		if d.DB != nil {
			dbPing = d.DB.Ping
		}
		if d.Cache != nil {
			redisPing = func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() }
		}

		status := fiber.Map{
			"postgres": check(dbPing),
			"redis":    check(redisPing),
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

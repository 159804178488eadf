package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// RegisterHealthRoutes exposes /healthz. Every configured dependency is pinged;
// any failure turns the response into a 503. Backends without a Ping method
// (the in-memory store) are always healthy.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	var checks []healthCheck
	if p, ok := d.Repo.(pinger); ok {
		checks = append(checks, healthCheck{name: "store", ping: p.Ping})
	} else {
		checks = append(checks, healthCheck{name: "store", ping: func(context.Context) error { return nil }})
	}
	if d.Cache != nil {
		checks = append(checks, healthCheck{name: "redis", ping: func(ctx context.Context) error {
			return d.Cache.Ping(ctx).Err()
		}})
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		code := http.StatusOK
		report := fiber.Map{"store": "ok", "redis": "disabled"}
		for _, check := range checks {
			if err := check.ping(ctx); err != nil {
				report[check.name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			report[check.name] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    report,
			"driver":    d.Cfg.StoreDriver,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

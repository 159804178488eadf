package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/accounts/internal/auth"
	"github.com/congo-pay/accounts/internal/config"
	"github.com/congo-pay/accounts/internal/identity"
	"github.com/congo-pay/accounts/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	Repo   identity.Repository
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Repo == nil {
		return errors.New("identity repository is required")
	}
	if d.Logger == nil {
		return errors.New("logger is required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).SendString("Server running")
	})

	identitySvc := identity.NewService(d.Repo, identity.NewBcryptHasher(d.Cfg.BcryptCost))
	tokens := auth.NewTokenIssuer(d.Cfg.JWTSecret, d.Cfg.JWTIssuer)
	authSvc := auth.NewService(identitySvc, tokens, auth.NewRolePolicy(d.Cfg.AdminIdentifiers), d.Cfg.AccessTokenTTL)

	jwtmw := middleware.JWTAuth(tokens)

	// Replay covers registration only; login and token-gated routes always run.
	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	api := app.Group("/api")
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, authSvc), jwtmw)
	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc), jwtmw, idem)

	return nil
}

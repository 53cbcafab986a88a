package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dhaka-pay/dhaka_pay/internal/account"
	"github.com/dhaka-pay/dhaka_pay/internal/config"
	"github.com/dhaka-pay/dhaka_pay/internal/middleware"
	"github.com/dhaka-pay/dhaka_pay/internal/notification"
	"github.com/dhaka-pay/dhaka_pay/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var store account.Store
	if d.DB != nil {
		store = account.NewPostgresStore(d.DB)
	} else {
		store = account.NewMemoryStore()
	}
	sessions := token.NewCache(d.Cache, d.Cfg.SessionTTL)
	notifier := notification.NewLoggerNotifier(d.Logger)

	validator := account.NewValidator(store)
	service := account.NewService(store, sessions, notifier, d.Cfg.Currency)
	handler := account.NewHandler(validator, service, d.Logger)

	api := app.Group("/api")
	RegisterAccountRoutes(api, handler, middleware.SessionAuth(service))

	return nil
}

package routes

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/config"
	"github.com/cardforge/connector/internal/events"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gateway/epdq"
	"github.com/cardforge/connector/internal/gateway/sandbox"
	"github.com/cardforge/connector/internal/gateway/smartpay"
	"github.com/cardforge/connector/internal/gateway/worldpay"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/ledger"
	"github.com/cardforge/connector/internal/metrics"
	"github.com/cardforge/connector/internal/middleware"
	"github.com/cardforge/connector/internal/notification"
	"github.com/cardforge/connector/internal/parity"
	"github.com/cardforge/connector/internal/refund"
	"github.com/cardforge/connector/internal/status"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Ledger    ledger.Reader
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Repositories
	var (
		accounts gatewayaccount.Repository
		charges  charge.Repository
		refunds  refund.Repository
	)
	if d.DB != nil {
		accounts = gatewayaccount.NewPostgresRepository(d.DB)
		charges = charge.NewPostgresRepository(d.DB)
		refunds = refund.NewPostgresRepository(d.DB)
	} else {
		// Dev fallback: in-memory state with one sandbox test account.
		accounts = gatewayaccount.NewMemoryRepository(gatewayaccount.Account{
			ID: 1, Provider: sandbox.ProviderName, Environment: "test",
			CreatedAt: time.Now().UTC(),
		})
		memCharges := charge.NewMemoryRepository()
		memCharges.AccountProviders[1] = sandbox.ProviderName
		charges = memCharges
		refunds = refund.NewMemoryRepository()
	}

	// Gateway adapters share one timed-out HTTP client.
	client := gateway.NewClient(d.Cfg.GatewayTimeout, d.Logger)
	registry := gateway.NewRegistry(
		worldpay.New(client, d.Cfg.WorldpayURL, d.Logger),
		smartpay.New(client, d.Cfg.SmartpayURL, d.Logger),
		epdq.New(client, d.Cfg.EpdqURL, d.Logger),
		sandbox.New(),
	)

	recorder := metrics.NewLogRecorder(d.Logger)
	transitions := status.NewTransitions()

	chargeSvc := charge.NewService(charges, accounts, transitions, d.Publisher, d.Logger)
	refundSvc := refund.NewService(charges, refunds, accounts, registry, d.Publisher, d.Logger)
	notificationSvc := notification.NewService(accounts, registry, chargeSvc, refundSvc,
		d.Cache, d.Cfg.NotificationDedupTTL, recorder, d.Logger)

	checker := parity.NewChecker(d.Ledger, refunds, d.Logger)
	expunger := parity.NewExpunger(charges, checker, parity.ExpungerConfig{
		Enabled:              d.Cfg.ExpungeEnabled,
		MinAge:               d.Cfg.ExpungeMinAge,
		ExcludeCheckedWithin: d.Cfg.ExpungeExcludeCheckedWithin,
	}, recorder, d.Logger)

	chargeHandler := charge.NewHandler(chargeSvc)
	refundHandler := refund.NewHandler(refundSvc, chargeSvc)
	notificationHandler := notification.NewHandler(notificationSvc)
	parityHandler := parity.NewHandler(expunger)

	// Health
	RegisterHealthRoutes(app, d)

	// API routes
	api := app.Group("/v1/api")
	RegisterChargeRoutes(api, chargeHandler, d)
	RegisterRefundRoutes(api, refundHandler)
	RegisterNotificationRoutes(api, notificationHandler, d)

	tasks := app.Group("/v1/tasks")
	RegisterTaskRoutes(tasks, parityHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

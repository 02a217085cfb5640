package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voucherbay/voucherbay-backend/api/controllers"
	"github.com/voucherbay/voucherbay-backend/api/middleware"
	"github.com/voucherbay/voucherbay-backend/internal/audit"
	"github.com/voucherbay/voucherbay-backend/internal/auth"
	"github.com/voucherbay/voucherbay-backend/internal/notifications"
	"github.com/voucherbay/voucherbay-backend/internal/payouts"
	"github.com/voucherbay/voucherbay-backend/internal/purchase"
	"github.com/voucherbay/voucherbay-backend/internal/reveal"
	"github.com/voucherbay/voucherbay-backend/internal/transactions"
	"github.com/voucherbay/voucherbay-backend/internal/vouchers"
	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/db"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
	"github.com/voucherbay/voucherbay-backend/pkg/logger"
	pkgredis "github.com/voucherbay/voucherbay-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth          auth.Service
	Vouchers      vouchers.Service
	Purchase      purchase.Service
	Transactions  transactions.Service
	Payouts       payouts.Service
	Reveal        reveal.Service
	Notifications notifications.Service
	Audit         audit.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	metricsRegistry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, logg))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.Login(svcs.Auth, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", controllers.GatewayCallback(cfg.Gateway, svcs.Transactions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", controllers.ListVouchers(svcs.Vouchers, logg))
			r.Post("/", controllers.CreateVoucher(svcs.Vouchers, logg))
			r.Get("/{voucherId}", controllers.GetVoucher(svcs.Vouchers, logg))
			r.Delete("/{voucherId}", controllers.DeleteVoucher(svcs.Vouchers, logg))
			r.Post("/{voucherId}/purchase", controllers.PurchaseVoucher(svcs.Purchase, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListTransactions(svcs.Transactions, logg))
			r.Get("/{transactionId}", controllers.GetTransaction(svcs.Transactions, logg))
			r.Get("/{transactionId}/scratch-code", controllers.RevealScratchCode(svcs.Reveal, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListPayouts(svcs.Payouts, logg))
			r.Get("/{payoutId}", controllers.GetPayout(svcs.Payouts, logg))
			r.Post("/{payoutId}/queries", controllers.AddPayoutQuery(svcs.Payouts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/{voucherId}/moderate", controllers.ModerateVoucher(svcs.Vouchers, svcs.Audit, logg))
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", controllers.ListPendingTransactions(svcs.Transactions, logg))
			r.Post("/{transactionId}/verify", controllers.VerifyTransaction(svcs.Transactions, svcs.Audit, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.ListPendingPayouts(svcs.Payouts, logg))
			r.Post("/bulk-process", controllers.BulkProcessPayouts(svcs.Payouts, svcs.Audit, logg))
			r.Post("/{payoutId}/process", controllers.ProcessPayout(svcs.Payouts, svcs.Audit, logg))
			r.Post("/{payoutId}/queries", controllers.AddPayoutQuery(svcs.Payouts, logg))
		})

		r.Get("/audit/{targetId}", controllers.ListAuditEvents(svcs.Audit, logg))
	})

	return r
}

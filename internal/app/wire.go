package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nardwin/platform/internal/auth"
	"github.com/nardwin/platform/internal/guard"
	"github.com/nardwin/platform/internal/handler"
	"github.com/nardwin/platform/internal/infra"
	"github.com/nardwin/platform/internal/ledger"
	"github.com/nardwin/platform/internal/metrics"
	"github.com/nardwin/platform/internal/presence"
	"github.com/nardwin/platform/internal/provider"
	"github.com/nardwin/platform/internal/repository"
	"github.com/nardwin/platform/internal/service"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	Config *infra.Config
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	cfg := deps.Config
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	userRepo := repository.NewUserRepository()
	ledgerRepo := repository.NewLedgerRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(userRepo, ledgerRepo, outboxRepo)

	// External providers
	oracle := provider.NewNobitexOracle(cfg.NobitexAPIURL, cfg.PriceCacheTTL, cfg.GatewayTimeout, logger)
	gateway := provider.NewOxapayProvider(cfg.OxapayMerchantKey, cfg.OxapayInvoiceURL,
		cfg.OxapayPaymentInfoURL, cfg.OxapaySandbox, cfg.GatewayTimeout, logger)

	breaker := guard.NewCircuitBreaker(5, 30*time.Second)
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	registry := presence.NewRegistry(90 * time.Second)

	// Services
	paymentSvc := service.NewPaymentService(pool, oracle, gateway, userRepo, ledgerRepo,
		ledgerEngine, breaker, m, logger, cfg.BaseURL, cfg.MinWithdrawAmount)
	reconciler := service.NewReconciler(pool, gateway, userRepo, ledgerRepo, outboxRepo,
		breaker, m, logger, cfg.VerifyPollInterval, cfg.VerifyPollAttempts)
	gameSvc := service.NewGameService(pool, userRepo, ledgerEngine, m, logger)

	// Handlers
	walletHandler := handler.NewWalletHandler(paymentSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, reconciler, oracle)
	webhookHandler := handler.NewWebhookHandler(reconciler, gateway, logger)
	gameHandler := handler.NewGameHandler(gameSvc)
	presenceHandler := handler.NewPresenceHandler(registry)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS(cfg.CORSAllowedOrigins))

	// Health and metrics (no auth)
	r.Get("/health", handler.HealthHandler(pool))
	r.Method("GET", "/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	// Gateway callbacks (no auth, no JSON content-type — raw body required for signature verification)
	r.Post("/webhooks/oxapay", webhookHandler.HandleOxapayWebhook)
	r.Get("/wallet/payment/callback", webhookHandler.HandleRedirectCallback)

	// Public price quote
	r.With(handler.JSONContentType).Get("/wallet/price", paymentHandler.GetPrice)

	// Player-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Use(jwtMgr.AuthenticateUser)

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.Get("/transactions", walletHandler.GetTransactions)
			r.Post("/deposit", paymentHandler.CreateDeposit)
			r.Get("/payment/verify", paymentHandler.VerifyPayment)
			r.Post("/withdraw", walletHandler.Withdraw)
			r.Post("/gift", walletHandler.Gift)
		})

		r.Post("/games/validate-bet", gameHandler.ValidateBet)

		r.Route("/presence", func(r chi.Router) {
			r.Post("/heartbeat", presenceHandler.Heartbeat)
			r.Delete("/", presenceHandler.Disconnect)
			r.Get("/online", presenceHandler.Online)
		})
	})

	// Internal service routes (game engine)
	r.Group(func(r chi.Router) {
		r.Use(handler.JSONContentType)
		r.Use(auth.AuthenticateService(cfg.ServiceToken))

		r.Post("/games/payout", gameHandler.ProcessPayout)
	})

	return r
}

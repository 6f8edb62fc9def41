package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	_ "khidmapay/docs"

	"khidmapay/internal/booking"
	"khidmapay/internal/config"
	"khidmapay/internal/db"
	"khidmapay/internal/jobs"
	"khidmapay/internal/logger"
	"khidmapay/internal/notification"
	"khidmapay/internal/payment"
	"khidmapay/internal/policy"
	"khidmapay/internal/provider"
	"khidmapay/internal/server"
	"khidmapay/internal/wallet"
	"khidmapay/internal/withdrawal"
)

// @title KhidmaPay API
// @version 1.0
// @description Payment and wallet settlement service for the Khidma marketplace.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	logger.Init()
	logger.Info("Starting KhidmaPay application")
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	notifier := notification.New(cfg.RedisAddr, cfg.NotifyWebhookURL, cfg.NotifyWebhookSecret)
	defer notifier.Close()
	logger.Info("Notification service initialized")

	paymentRepo := payment.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	walletRepo := wallet.NewRepository(database)
	withdrawalRepo := withdrawal.NewRepository(database)

	engine := policy.NewEngine(policy.Params{
		CommissionRateBp:   cfg.CommissionRateBp,
		FullRefundHours:    cfg.FullRefundHours,
		PartialRefundHours: cfg.PartialRefundHours,
		PartialRefundPct:   cfg.PartialRefundPct,
	})

	registry := provider.NewRegistry(
		provider.NewWaafiPay(cfg),
		provider.NewDMoney(cfg),
		provider.NewStripe(cfg),
	)
	logger.Info("Provider registry initialized", "providers", registry.Names())

	scheduler := jobs.NewScheduler(database)

	paymentService := payment.NewService(paymentRepo, bookingRepo, walletRepo, engine, registry, scheduler, notifier, cfg)
	withdrawalService := withdrawal.NewService(withdrawalRepo, walletRepo, notifier, cfg)

	worker := jobs.NewWorker(database)
	worker.Register(jobs.KindConfirmPayment, func(ctx context.Context, payload json.RawMessage) error {
		var p jobs.ConfirmPaymentPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return paymentService.ConfirmPending(ctx, p.PaymentID)
	})
	worker.Register(jobs.KindReleaseFunds, func(ctx context.Context, payload json.RawMessage) error {
		var p jobs.ReleaseFundsPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return walletRepo.ReleasePending(ctx, p.WalletID, p.AmountFr,
			fmt.Sprintf("release of held earnings for booking #%d", p.BookingID))
	})
	worker.Register(jobs.KindReconcileWallets, func(ctx context.Context, payload json.RawMessage) error {
		reconcileAll(ctx, walletRepo)
		// Recurring: each run schedules the next sweep.
		return scheduler.Enqueue(ctx, jobs.KindReconcileWallets, struct{}{}, time.Now().Add(24*time.Hour))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := seedReconcileJob(ctx, database, scheduler); err != nil {
		logger.Fatalf("Failed to schedule reconcile sweep: %v", err)
	}

	go notifier.Start(ctx)
	go worker.Start(ctx)

	paymentHandler := payment.NewHandler(paymentService)
	walletHandler := wallet.NewHandler(database)
	withdrawalHandler := withdrawal.NewHandler(withdrawalService)

	srv := server.New(cfg, paymentHandler, walletHandler, withdrawalHandler)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

// seedReconcileJob makes sure exactly one pending reconcile sweep exists.
// The job re-enqueues itself, so seeding only matters on a fresh database.
func seedReconcileJob(ctx context.Context, database *sqlx.DB, scheduler jobs.Scheduler) error {
	pending, err := db.Exists(ctx, database,
		`SELECT EXISTS (SELECT 1 FROM scheduled_jobs WHERE kind = $1 AND status = 'pending')`,
		jobs.KindReconcileWallets)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}
	return scheduler.Enqueue(ctx, jobs.KindReconcileWallets, struct{}{}, time.Now().Add(time.Minute))
}

func reconcileAll(ctx context.Context, wallets wallet.Repository) {
	ids, err := wallets.ListWalletIDs(ctx)
	if err != nil {
		logger.Errorf("Reconcile sweep failed to list wallets: %v", err)
		return
	}

	for _, id := range ids {
		if _, err := wallets.Reconcile(ctx, id); err != nil {
			logger.Error("wallet failed reconciliation", "wallet_id", id, "error", err)
		}
	}
}

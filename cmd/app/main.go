// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brontie-core/internal/config"
	"brontie-core/internal/domain/ports/adapter"
	"brontie-core/internal/infra/adapters/transfer"
	"brontie-core/internal/infra/api"
	"brontie-core/internal/infra/api/apiv1"
	pg "brontie-core/internal/infra/db/postgres"
	"brontie-core/internal/infra/logging"
	"brontie-core/internal/infra/metrics"
	"brontie-core/internal/infra/mq"
	red "brontie-core/internal/infra/redis"
	"brontie-core/internal/infra/sched"
	"brontie-core/internal/infra/worker"
	"brontie-core/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no auth when jwt_secret empty)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Event bus ----
	var events adapter.EventPublisher
	if cfg.MQ.URL != "" {
		events, err = mq.NewEventProducer(cfg.MQ.URL, cfg.MQ.Exchange, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("rabbitmq unavailable; events disabled")
			events = mq.NewNoopProducer(logger)
		}
	} else {
		events = mq.NewNoopProducer(logger)
	}
	defer events.Close()

	// ---- Repositories ----
	merchantRepo := pg.NewMerchantRepo(pool)
	giftItemRepo := pg.NewGiftItemRepo(pool)
	voucherRepo := pg.NewVoucherRepo(pool)
	payoutRepo := pg.NewPayoutItemRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Transfer rail ----
	var transfers adapter.FundsTransferAdapter
	if cfg.Payout.StripeKey != "" {
		transfers = transfer.NewStripeTransferAdapter(cfg.Payout.StripeKey, logger)
	} else {
		logger.Warn().Msg("payout.stripe_key not set; automatic transfers disabled")
	}

	// ---- Use cases ----
	voucherUC := usecase.NewVoucherUseCase(voucherRepo, giftItemRepo, merchantRepo, payoutRepo, txManager, events, logger)
	analyticsUC := usecase.NewAnalyticsUseCase(voucherRepo, giftItemRepo, merchantRepo, logger)
	payoutUC := usecase.NewPayoutUseCase(payoutRepo, merchantRepo, txManager, transfers, locker, events, logger)

	// ---- Background workers ----
	expiry := sched.NewExpiryWorker(cfg.Voucher.ExpiryInterval, cfg.Voucher.ExpiryDays, voucherUC, logger)
	go func() { _ = expiry.Run(ctx) }()

	if transfers != nil {
		minAmount := decimal.Zero
		if cfg.Payout.MinAmount != "" {
			minAmount, err = decimal.NewFromString(cfg.Payout.MinAmount)
			if err != nil {
				logger.Fatal().Err(err).Msg("payout.min_amount")
			}
		}
		wpool := worker.NewPool(4, logger)
		wpool.Start(ctx)
		defer wpool.Stop()
		runner := sched.NewPayoutRunner(cfg.Payout.Interval, minAmount, payoutUC, wpool, logger)
		go func() { _ = runner.Run(ctx) }()
	}

	// ---- HTTP API ----
	srv := apiv1.NewServer(voucherUC, analyticsUC, payoutUC, cfg.MinAnalyticsDate(), logger)
	handler := api.NewRouter(&cfg.API, srv, rateLimiter, logger)
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: handler}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := pool.Stat()
			metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blockwatch/internal/alert"
	"blockwatch/internal/config"
	cronrunner "blockwatch/internal/cron"
	"blockwatch/internal/db"
	"blockwatch/internal/handler"
	"blockwatch/internal/ingest"
	"blockwatch/internal/ledger"
	"blockwatch/internal/logger"
	"blockwatch/internal/notify"
	"blockwatch/internal/report"
	gormrepository "blockwatch/internal/repository/gorm"
	"blockwatch/internal/resilience"
	"blockwatch/internal/spot"
)

func main() {
	cfgPath := os.Getenv("BW_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BW_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		// Corruption lands here with the backup path already in the message.
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)

	var notifier notify.Notifier
	if cfg.Email.Enabled {
		notifier = notify.NewEmail(cfg.Email, logger)
	} else {
		notifier = &notify.LogNotifier{Logger: logger}
	}
	recipients := notify.RecipientsProd
	if cfg.Alert.TestMode {
		recipients = notify.RecipientsTest
	}

	resolver := &spot.Resolver{SpotTag: cfg.Telegram.SpotPriceTag, Logger: logger}
	generator := &report.Generator{
		Repo:     store,
		Lock:     resilience.NewFileLock(cfg.DB.LockPath, cfg.DB.LockTimeout),
		Resolver: resolver,
		Logger:   logger,
		Report:   cfg.Report,
		Retry:    cfg.Retry,
	}
	deliveryLedger := &ledger.Ledger{
		Repo:       store,
		Notifier:   notifier,
		Logger:     logger,
		Recipients: recipients,
	}
	dispatcher := &alert.Dispatcher{
		Cfg:      cfg.Alert,
		Notifier: notifier,
		Logger:   logger,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	statusHandler := &handler.StatusHandler{DB: dbConn, Ledger: deliveryLedger}
	statusHandler.Register(engine)
	reportHandler := &handler.ReportHandler{
		Repo:      store,
		Generator: generator,
		Ledger:    deliveryLedger,
	}
	reportHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		logger.Fatal("load report timezone failed", zap.Error(err))
	}
	sendHour, sendMin, err := cfg.Report.SendHourMinute()
	if err != nil {
		logger.Fatal("invalid send_time", zap.Error(err))
	}

	cronRunner := cronrunner.New(logger, ctx, loc)

	generateSpec := fmt.Sprintf("0 %d %d * * *", cfg.Report.AnchorMin, cfg.Report.AnchorHour)
	_, err = cronRunner.Add("daily-generate", generateSpec, func(ctx context.Context) error {
		_, err := generator.Generate(ctx, time.Now())
		return err
	})
	if err != nil {
		logger.Fatal("cron register daily generate failed", zap.Error(err))
	}

	sendSpec := fmt.Sprintf("0 %d %d * * *", sendMin, sendHour)
	_, err = cronRunner.Add("daily-send", sendSpec, func(ctx context.Context) error {
		return resilience.Retry(ctx, logger, "daily-send", cfg.Retry, deliveryLedger.SendPending)
	})
	if err != nil {
		logger.Fatal("cron register daily send failed", zap.Error(err))
	}

	heartbeatSpec := "@every " + cfg.Report.Heartbeat.String()
	_, err = cronRunner.Add("heartbeat", heartbeatSpec, func(ctx context.Context) error {
		stats, err := store.MessageStats(ctx)
		if err != nil {
			return err
		}
		logger.Info("heartbeat",
			zap.Int64("total_messages", stats.TotalMessages),
			zap.Int64("total_block_trades", stats.TotalBlockTrades))
		return nil
	})
	if err != nil {
		logger.Warn("cron register heartbeat failed", zap.Error(err))
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.Telegram.Enabled {
		listener := &ingest.Listener{
			Cfg:          cfg.Telegram,
			Repo:         store,
			OnBlockTrade: dispatcher.HandleBlockTrade,
			Logger:       logger,
		}
		go func() {
			if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("listener stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("telegram listener disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

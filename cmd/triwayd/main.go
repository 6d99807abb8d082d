package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eulaprotocol/triway/internal/common"
	"github.com/eulaprotocol/triway/internal/export"
	"github.com/eulaprotocol/triway/internal/extract"
	"github.com/eulaprotocol/triway/internal/forensic"
	"github.com/eulaprotocol/triway/internal/identity"
	"github.com/eulaprotocol/triway/internal/ledger"
	"github.com/eulaprotocol/triway/internal/ocr"
	"github.com/eulaprotocol/triway/internal/repository"
	"github.com/eulaprotocol/triway/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	// Env
	if err := godotenv.Load(); err != nil {
		log.Debugw("no .env file loaded", "error", err)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Packages log through slog; the daemon lifecycle logs through zap.
	appLog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(appLog)

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := repository.Open(ctx, cfg.Database, appLog)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer repository.Close(db, appLog)

	if err := repository.HealthCheck(ctx, db, 3*time.Second); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	log.Infow("DB health OK")

	// Duplicate-hash index
	index, err := ledger.OpenHashIndex(cfg.Database.HashIndexPath, appLog)
	if err != nil {
		log.Fatalf("opening hash index: %v", err)
	}
	defer index.Close()

	// Identity verification is optional; without a registry client the
	// audit records a skipped identity result.
	var verifier identity.Verifier
	if cfg.Identity.Enabled {
		log.Warnw("IDENTITY_ENABLED set but no registry client is configured; identity checks will be skipped")
	}

	// Recognition: remote service when configured, otherwise accept
	// positioned-text JSON dumps directly.
	var engine ocr.Engine = ocr.PayloadEngine{}
	if cfg.Audit.OCRServiceURL != "" {
		engine, err = ocr.NewRemoteEngine(cfg.Audit.OCRServiceURL, cfg.Audit.OCRTimeout, appLog)
		if err != nil {
			log.Fatalf("recognition engine: %v", err)
		}
	}

	// Pipeline
	builder := extract.NewDocumentBuilder(
		ocr.NewTableDetector(),
		extract.NewSmartExtractor(appLog),
		extract.NewNormalizer(appLog),
		appLog,
	)
	audit := forensic.NewService(engine, builder, index, verifier, cfg.Audit, appLog)

	verifications := repository.NewVerificationRepository(db, appLog)
	exporter := export.NewService(verifications, cfg.Audit.ExportDir, appLog)

	// HTTP server
	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: server.New(audit, verifications, exporter, db, cfg.Server, appLog).Handler(),
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	log.Info("stopped.")
}

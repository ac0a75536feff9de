package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/anandvel/dispatch-hub/internal/application/service"
	"github.com/anandvel/dispatch-hub/internal/config"
	httpserver "github.com/anandvel/dispatch-hub/internal/interfaces/http"
	"github.com/anandvel/dispatch-hub/internal/repository"
	"github.com/anandvel/dispatch-hub/pkg/database"
	"github.com/anandvel/dispatch-hub/pkg/utils"
)

func main() {
	// Local overrides for development; missing .env is fine.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting dispatch hub",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	scanStore := repository.NewScanStore(db.DB, logger)
	alertRepo := repository.NewAlertRepository(db.DB, logger)
	gatepassRepo := repository.NewGatepassRepository(db.DB, logger)

	sugar := &sugarLogger{s: logger.Sugar()}
	sessionService := service.NewSessionService(scanStore, invoiceRepo, alertRepo, gatepassRepo, cfg.Session.Operator, sugar)
	gatepassService := service.NewGatepassService(gatepassRepo, sugar)
	importService := service.NewImportService(invoiceRepo, cfg.Ingest.SheetName, sugar)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sessionService, gatepassService, importService, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited")
}

// sugarLogger adapts zap's sugared logger to the service and http Logger
// interfaces.
type sugarLogger struct {
	s *zap.SugaredLogger
}

func (l *sugarLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l *sugarLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

func (l *sugarLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

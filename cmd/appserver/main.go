package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/R3E-Network/calcstore/internal/app/runtime"
	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "Path to a dotenv file merged into the environment (missing file is ignored)")
	flag.Parse()

	cfg, err := config.LoadWith(*envFile)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLog := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg, appLog.Named("runtime"))
	if err != nil {
		appLog.WithError(err).Fatal("initialise application")
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		appLog.WithError(runErr).Error("server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("shutdown")
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
	appLog.Info("shutdown complete")
}

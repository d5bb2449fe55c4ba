package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"alphaledger/config"
	"alphaledger/core"
	"alphaledger/observability"
	"alphaledger/observability/logging"
	"alphaledger/rpc"
	"alphaledger/state"
	"alphaledger/storage"
)

const rpcTokenEnv = "ALPHALEDGER_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	listenFlag := flag.String("listen", "", "Listen address (overrides the configuration file)")
	flag.Parse()

	logger := logging.Setup("alphad", os.Getenv("ALPHALEDGER_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *listenFlag != "" {
		cfg.ListenAddress = *listenFlag
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	protocol, err := core.NewProtocol(cfg, manager, nil)
	if err != nil {
		logger.Error("failed to build protocol", slog.Any("error", err))
		os.Exit(1)
	}
	protocol.SetRecorder(observability.NewMetrics(prometheus.DefaultRegisterer))

	authToken := os.Getenv(rpcTokenEnv)
	if authToken == "" {
		logger.Warn("privileged endpoints disabled", slog.String("env", rpcTokenEnv))
	}
	server := rpc.NewServer(protocol, authToken)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", slog.String("addr", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
}

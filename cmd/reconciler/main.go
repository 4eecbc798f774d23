package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/cfg"
	"github.com/aquagov/governance-backend/server"
	"github.com/aquagov/governance-backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic(err.Error())
	}

	runtime.GOMAXPROCS(runtime.NumCPU())
	serviceCfg, err := cfg.New()
	if err != nil {
		panic(err.Error())
	}
	if err := utils.SetupSentry(serviceCfg.SentryDSN, serviceCfg.ServerMode); err != nil {
		panic(err)
	}
	defer sentry.Flush(2 * time.Second)

	logger, err := utils.NewLogger(serviceCfg.ServerMode, serviceCfg.LogLevel, utils.WithSentry())
	if err != nil {
		panic("cannot init logger")
	}
	logger.Info("Start reconciler...")

	defer func() {
		if err := recover(); err != nil {
			logger.Error("cannot recover", zap.Any("panic", err))
		}
		if err := logger.Sync(); err != nil {
			logger.Error("cannot sync log")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	reg := prometheus.NewRegistry()
	srv, err := server.New(serviceCfg, logger, reg)
	if err != nil {
		logger.Panic("cannot create server instance", zap.Error(err))
	}

	if serviceCfg.MetricsPort != "" {
		metricsSrv := &http.Server{Addr: serviceCfg.MetricsPort, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
		defer metricsSrv.Close()
	}

	gov := srv.Governance
	loops := []loop{
		{name: "active", interval: serviceCfg.ActiveInterval, fn: batchJob(gov.ReconcileActive)},
		{name: "voted", interval: serviceCfg.VotedInterval, fn: batchJob(gov.ReconcileAllEligible)},
		{name: "lifecycle", interval: serviceCfg.LifecycleInterval, fn: gov.RunLifecycle},
	}
	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l loop) {
			defer wg.Done()
			l.run(ctx, logger.With(zap.String("loop", l.name)))
		}(l)
	}
	wg.Wait()
	logger.Info("Reconciler stopped")
}

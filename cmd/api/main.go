package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aquagov/governance-backend/api"
	"github.com/aquagov/governance-backend/cfg"
	"github.com/aquagov/governance-backend/server"
	"github.com/aquagov/governance-backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		panic(err.Error())
	}

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
	logger.Info("Start API server...")

	defer func() {
		if err := recover(); err != nil {
			logger.Error("cannot recover", zap.Any("panic", err))
		}
		if err := logger.Sync(); err != nil {
			logger.Error("cannot sync log")
		}
	}()

	reg := prometheus.NewRegistry()
	srv, err := server.New(serviceCfg, logger, reg)
	if err != nil {
		logger.Panic("cannot create server instance", zap.Error(err))
	}

	e := api.NewEcho(srv.APIServer())
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	port := serviceCfg.Port
	if port == "" {
		port = ":3000"
	}
	go func() {
		logger.Info("API server", zap.String("port", port))
		if err := e.Start(port); err != nil {
			logger.Info("API server stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("cannot shutdown API server", zap.Error(err))
	}
	logger.Info("Stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dominousfamous/stock-sim-website/configs"
	"github.com/dominousfamous/stock-sim-website/internal/handlers"
	"github.com/dominousfamous/stock-sim-website/internal/ledger"
	"github.com/dominousfamous/stock-sim-website/internal/logger"
	"github.com/dominousfamous/stock-sim-website/internal/quote"
	"github.com/dominousfamous/stock-sim-website/internal/routes"
	"github.com/dominousfamous/stock-sim-website/internal/seed"
	"github.com/dominousfamous/stock-sim-website/internal/service"
	"github.com/dominousfamous/stock-sim-website/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	store.NewDB()
	store.DBMigrate()
	seed.Run()

	defaultCash, err := decimal.NewFromString(configs.AppConfig.Registration.DefaultCash)
	if err != nil {
		logger.Log.Fatal("invalid registration.default_cash", zap.Error(err))
	}

	quotes := quote.NewClient(
		configs.AppConfig.Quote.BaseURL,
		configs.AppConfig.Quote.APIKey,
		configs.AppConfig.Quote.Timeout,
	)
	handlers.Init(service.New(ledger.New(store.DB), quotes, defaultCash))

	router := routes.NewRoutes()

	srv := &http.Server{
		Addr:         configs.AppConfig.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}

package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/config"
	"github.com/scrumline/poker-backend/internal/httpapi"
	"github.com/scrumline/poker-backend/internal/hub"
	"github.com/scrumline/poker-backend/internal/store"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var st store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open store", zap.Error(err))
		}
		st = gs
	} else {
		// In-flight rounds are in-memory regardless; without a database the
		// user/team records are too.
		logger.Warn("DATABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, st, logger)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, st, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

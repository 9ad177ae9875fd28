package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fatali-fataliyev/finance_tracker/api"
	"github.com/fatali-fataliyev/finance_tracker/internal/budget"
	"github.com/fatali-fataliyev/finance_tracker/internal/config"
	"github.com/fatali-fataliyev/finance_tracker/internal/storage"
	"github.com/fatali-fataliyev/finance_tracker/logging"
	"github.com/rs/cors"
)

var bt budget.BudgetTracker // Global

var corsConf = cors.New(cors.Options{
	AllowedOrigins:   []string{"*"},
	AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Trace-ID"},
	ExposedHeaders:   []string{"X-Trace-ID"},
	AllowCredentials: true,
})

func openStorage(cfg config.Config) (budget.Storage, func() error, error) {
	switch cfg.DB.Driver {
	case config.DriverMySQL:
		s, err := storage.OpenMySQL(cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverMemory:
		logging.Logger.Warn("using in-memory storage, data will be lost on exit")
		return storage.NewInMemoryStorage(), func() error { return nil }, nil
	default:
		s, err := storage.OpenSQLite(cfg.DB.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		return
	}

	if err := logging.Init(cfg.LogLevel, cfg.AppEnv, cfg.LogDir); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		return
	}

	logging.Logger.Info("application starting...")

	storageInstance, closeStorage, err := openStorage(cfg)
	if err != nil {
		logging.Logger.Errorf("failed to initialize database: %v", err)
		return
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logging.Logger.Errorf("failed to close database: %v", err)
		}
	}()

	bt = budget.NewBudgetTracker(storageInstance,
		budget.WithSessionPolicy(cfg.SessionTTL(), cfg.SessionRenewWithin()),
		budget.WithThresholds(cfg.Thresholds()),
	)
	logging.Logger.Infof("storage ready: %s", bt.StorageType)

	if cfg.HasAdmin() {
		if err := bt.EnsureAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logging.Logger.Errorf("failed to bootstrap admin account: %v", err)
			return
		}
	}

	server := http.NewServeMux()
	handlers := api.NewApi(&bt)
	handlers.Register(server)

	logging.Logger.Infof("Starting server on port: %s", cfg.Port)
	handlerWithCors := corsConf.Handler(api.TraceMiddleware(server))
	err = http.ListenAndServe(":"+cfg.Port, handlerWithCors) // Start the server
	if err != nil {
		logging.Logger.Errorf("failed to start server: %v", err)
		return
	}
}

package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/dinelight/guestflow/internal/api"
	"github.com/dinelight/guestflow/internal/config"
	"github.com/dinelight/guestflow/internal/mailing"
	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/repository/postgres"
	"github.com/dinelight/guestflow/internal/repository/rediscache"
	"github.com/dinelight/guestflow/internal/service/flows"
	"github.com/dinelight/guestflow/internal/service/segments"
	"github.com/dinelight/guestflow/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("connected to database")

	var countCache segments.CountCache
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		countCache = rediscache.New(rdb)
	}

	customerRepo := postgres.NewCustomerRepo(db)
	segmentRepo := postgres.NewSegmentRepo(db)
	flowRepo := postgres.NewFlowRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	prefRepo := postgres.NewPreferenceRepo(db)
	locationRepo := postgres.NewLocationRepo(db)

	segSvc := segments.NewService(segmentRepo, customerRepo, countCache, cfg.Preview.CacheTTL())

	signer := mailing.NewUnsubscribeSigner(cfg.Provider.UnsubscribeBaseURL, cfg.Provider.SigningKey)
	engine := flows.NewEngine(flows.Deps{
		Flows:           flowRepo,
		Customers:       customerRepo,
		Ledger:          ledgerRepo,
		Prefs:           prefRepo,
		Locations:       locationRepo,
		Deliverer:       mailing.NewProviderClient(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Timeout()),
		Renderer:        mailing.NewTemplateService(),
		Unsub:           signer,
		DefaultFreqDays: cfg.Automation.MaxEmailFrequencyDays,
		Parallelism:     cfg.Automation.FlowParallelism,
	})

	receiver := worker.NewWebhookReceiver(engine, signer)
	debounce := worker.NewDebouncer(cfg.Preview.Debounce())
	defer debounce.Stop()

	handlers := api.NewHandlers(segSvc, engine, receiver, debounce)
	server := api.NewServer(cfg.Server, handlers, nil)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("server stopped", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

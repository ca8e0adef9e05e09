package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/dinelight/guestflow/internal/config"
	"github.com/dinelight/guestflow/internal/mailing"
	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/repository/postgres"
	"github.com/dinelight/guestflow/internal/service/flows"
	"github.com/dinelight/guestflow/internal/worker"
)

// The worker runs the automation flow batches on the configured cadence.
// It is a separate binary so the API server can be scaled and restarted
// without touching the send schedule.
func main() {
	cfg, err := config.LoadFromEnv(configPath())
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}
	if !cfg.Automation.Enabled {
		logger.Info("automation disabled, exiting")
		return
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

	signer := mailing.NewUnsubscribeSigner(cfg.Provider.UnsubscribeBaseURL, cfg.Provider.SigningKey)
	engine := flows.NewEngine(flows.Deps{
		Flows:           postgres.NewFlowRepo(db),
		Customers:       postgres.NewCustomerRepo(db),
		Ledger:          postgres.NewLedgerRepo(db),
		Prefs:           postgres.NewPreferenceRepo(db),
		Locations:       postgres.NewLocationRepo(db),
		Deliverer:       mailing.NewProviderClient(cfg.Provider.APIKey, cfg.Provider.BaseURL, cfg.Provider.Timeout()),
		Renderer:        mailing.NewTemplateService(),
		Unsub:           signer,
		DefaultFreqDays: cfg.Automation.MaxEmailFrequencyDays,
		Parallelism:     cfg.Automation.FlowParallelism,
	})

	sched, err := worker.NewScheduler(engine, cfg.Automation.IntervalMinutes)
	if err != nil {
		logger.Error("create scheduler", "error", err.Error())
		os.Exit(1)
	}
	sched.Start()
	logger.Info("automation worker running", "interval_minutes", cfg.Automation.IntervalMinutes)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	sched.Stop()
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

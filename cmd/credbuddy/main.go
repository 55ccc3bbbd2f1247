package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"CredBuddy/internal/api"
	"CredBuddy/internal/config"
	"CredBuddy/internal/explain"
	"CredBuddy/internal/notifier"
	"CredBuddy/internal/polisher"
	"CredBuddy/internal/scheduler"
	"CredBuddy/internal/service"
	"CredBuddy/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg, os.Args[2:], log); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		return
	}

	log.Info("CredBuddy starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer st.Close()
	log.WithField("driver", cfg.Database.Driver).Info("store ready")

	var rewriter polisher.Rewriter
	if cfg.Polisher.Enabled {
		rewriter = polisher.NewClient(cfg.Polisher.BaseURL, cfg.Polisher.APIKey, cfg.Polisher.Model, cfg.Proxy, cfg.Polisher.Timeout)
	}
	pipeline := polisher.NewPipeline(rewriter, log)
	log.WithField("enabled", pipeline.Enabled()).Info("narrative polisher")
	svc := service.New(st, pipeline, log, service.Options{
		Language:     explain.Language(cfg.Scoring.DefaultLanguage),
		BusinessType: cfg.Scoring.BusinessType,
		HistoryLimit: cfg.Scoring.HistoryLimit,
	})

	var (
		notify scheduler.Notifier = notifier.Discard{}
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		notify = tn
	} else {
		log.Warn("telegram not configured, operator notifications disabled")
	}

	sched := scheduler.NewScheduler(ctx, svc, notify, log)
	if err := sched.RegisterAll(cfg.Schedule.RecomputeCron, cfg.Schedule.DigestCron); err != nil {
		log.WithError(err).Fatal("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, recomputing active users now")
		go sched.RunRecomputeNow()
	}

	srv := api.NewServer(cfg.Server.Addr, svc, log)
	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Fatal("start api server")
	}

	log.Info("CredBuddy is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("api server shutdown")
	}
	cancel()
	log.Info("CredBuddy stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverPostgres:
		if err := store.RunMigrations(cfg.Database.PostgresURL); err != nil {
			return nil, err
		}
		return store.NewPostgresStore(ctx, cfg.Database.PostgresURL, log)
	default:
		if dir := filepath.Dir(cfg.Database.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		return store.NewSQLiteStore(cfg.Database.SQLitePath, log)
	}
}

// runMigrate handles `credbuddy migrate up|down N|status` against Postgres.
func runMigrate(cfg *config.Config, args []string, log *logrus.Logger) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("migrations apply to the postgres driver only (driver is %q)", cfg.Database.Driver)
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: credbuddy migrate up|down N|status")
	}
	url := cfg.Database.PostgresURL
	switch args[0] {
	case "up":
		return store.MigrateUp(url, log)
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid step count %q", args[1])
			}
			steps = n
		}
		return store.MigrateDown(url, steps, log)
	case "status":
		return store.MigrateStatus(url, log)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}

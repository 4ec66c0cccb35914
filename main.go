package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing_pulse/catalog"
	"listing_pulse/config"
	"listing_pulse/httputil"
	"listing_pulse/logging"
	"listing_pulse/models"
	"listing_pulse/scheduler"
	"listing_pulse/services"
	"listing_pulse/storage"
	"listing_pulse/traffic"
	"listing_pulse/workers"
)

var (
	analyzeNow   = flag.Bool("analyze", false, "Run the analytics batch once and exit")
	refreshNow   = flag.Bool("refresh", false, "Refresh the listing catalog once and exit")
	correlateNow = flag.Bool("correlate", false, "Run the correlation report once and exit")
	showRuns     = flag.Bool("runs", false, "Print recent analysis runs and exit")
)

// domainStore is everything the pipeline needs from a backend. Both the
// Postgres store and the SQLite local-mode store satisfy it.
type domainStore interface {
	catalog.ListingWriter
	services.SnapshotStore
	services.CampaignStore
	services.ViewingStore
	services.CorrelationStore
}

type app struct {
	cfg         *config.Config
	store       domainStore
	analytics   *services.AnalyticsService
	correlation *services.CorrelationService
	collector   traffic.Collector
	refresher   *catalog.Refresher
	export      *workers.ExportWorker
}

// RunAnalysis collects traffic, runs the full scoring batch, correlates the
// current period, and stages the results for export.
func (a *app) RunAnalysis(ctx context.Context) error {
	agg, err := a.collector.Collect(ctx, a.cfg.Analytics.PeriodDays)
	if err != nil {
		return err
	}

	reports, err := a.analytics.Analyze(ctx, agg)
	if err != nil {
		return err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -a.cfg.Analytics.PeriodDays)
	corr, err := a.correlation.Analyze(ctx, start, end)
	if err != nil {
		log.Printf("Warning: correlation failed: %v", err)
		corr = nil
	}

	if a.export != nil {
		a.export.Submit(reports, corr)
	}
	return nil
}

func (a *app) RunRefresh(ctx context.Context) error {
	if a.refresher == nil {
		log.Println("No catalog feed configured, skipping refresh")
		return nil
	}
	upserted, deactivated, err := a.refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	log.Printf("Catalog refresh: %d upserted, %d deactivated", upserted, deactivated)
	return nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting listing_pulse...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Loaded %d channel rules", len(cfg.Channels))

	ctx := context.Background()

	// SQLite always holds the run ledger; in local mode it holds the domain
	// data too.
	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	var store domainStore = sqliteStore
	if cfg.DatabaseURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate Postgres schema: %v", err)
		}
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))
		store = pgStore
	} else {
		log.Println("No DATABASE_URL set, running in SQLite local mode")
	}

	channels := services.NewChannelMapper(cfg.Channels)
	matcher := services.NewMatcher(channels, cfg.Analytics.PropertyPathPrefix, cfg.Analytics.DefaultCategory)
	recommender := services.NewRecommender(cfg.Analytics.HighValueThreshold)
	analytics := services.NewAnalyticsService(store, sqliteStore, matcher, recommender, cfg.Analytics.PeriodDays)
	correlation := services.NewCorrelationService(store)

	clients := httputil.NewClients()

	a := &app{
		cfg:         cfg,
		store:       store,
		analytics:   analytics,
		correlation: correlation,
		collector:   traffic.NewFileCollector(cfg.Analytics.TrafficPath),
	}
	if cfg.Feed.URL != "" {
		a.refresher = catalog.NewRefresher(store, clients.Feed, cfg.Feed.URL)
	}

	if cfg.Export.Bucket != "" {
		uploader, err := storage.NewReportUploader(ctx, storage.S3Config{
			Bucket:          cfg.Export.Bucket,
			Region:          cfg.Export.Region,
			Endpoint:        cfg.Export.Endpoint,
			AccessKeyID:     cfg.Export.AccessKeyID,
			SecretAccessKey: cfg.Export.SecretAccessKey,
		}, clients.API)
		if err != nil {
			log.Fatalf("Failed to set up report uploader: %v", err)
		}
		a.export = workers.NewExportWorker(uploader, cfg.Export.Prefix)
	}

	// One-shot commands
	if *showRuns {
		runs, err := sqliteStore.GetRecentRuns(ctx, 10)
		if err != nil {
			log.Fatalf("Failed to read runs: %v", err)
		}
		for _, run := range runs {
			finished := "running"
			if run.FinishedAt != nil {
				finished = run.FinishedAt.Format("2006-01-02 15:04:05")
			}
			log.Printf("  #%d %s [%s] started %s finished %s: %d processed, %d matched, %d unmapped, %d errors",
				run.ID, run.RunType, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), finished,
				run.ListingsProcessed, run.ListingsMatched, run.ListingsUnmapped, run.ErrorsCount)
		}
		logs, err := sqliteStore.GetRecentLogs(ctx, 20)
		if err != nil {
			log.Fatalf("Failed to read run logs: %v", err)
		}
		for _, entry := range logs {
			log.Printf("  [%s] %s %s", entry.Level, entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Message)
		}
		log.Printf("%d runs, %d log entries", len(runs), len(logs))
		return
	}
	if *refreshNow {
		if err := a.RunRefresh(ctx); err != nil {
			log.Fatalf("Catalog refresh failed: %v", err)
		}
		return
	}
	if *correlateNow {
		end := time.Now()
		start := end.AddDate(0, 0, -cfg.Analytics.PeriodDays)
		report, err := correlation.Analyze(ctx, start, end)
		if err != nil {
			log.Fatalf("Correlation failed: %v", err)
		}
		for _, row := range report.Campaigns {
			log.Printf("  %s (%s): viewings=%d cost/viewing=%s conversion=%s%%",
				row.CampaignName, row.Platform, row.TotalViewings,
				models.FormatRatio(row.CostPerViewing), models.FormatRatio(row.ViewingConversionRate))
		}
		log.Printf("Window %s..%s: %d campaigns, budget %.2f, %d viewings (%d double-attributed)",
			report.WindowStart.Format("2006-01-02"), report.WindowEnd.Format("2006-01-02"),
			len(report.Campaigns), report.TotalBudget, report.TotalViewings, report.DoubleAttributed)
		return
	}
	if *analyzeNow {
		log.Println("Running analytics batch...")
		if err := a.RunAnalysis(ctx); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		log.Println("Analysis complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, a)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.export != nil {
		sched.SetWorkers(a.export)
		go a.export.Run(ctx, 15*time.Minute)
		log.Println("Export worker started")
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop, SIGHUP to trigger a run.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		log.Println("SIGHUP received, triggering analytics run")
		go func() {
			if err := sched.TriggerNow(ctx); err != nil {
				log.Printf("Triggered run error: %v", err)
			}
		}()
	}

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}

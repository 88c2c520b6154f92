package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ticket-notifier/notifier"

	"gorm.io/gorm"
)

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var configPath string
	var webhookURL string
	var dbPath string
	var sources multiFlag
	var keywordsCSV string
	var priorityCSV string
	var interval time.Duration
	var delay time.Duration
	var priorityDelay time.Duration
	var maxPerCycle int
	var retentionDays int
	var collectTimeout time.Duration
	var debug bool
	var once bool

	flag.StringVar(&configPath, "config", "", "YAML config file path.")
	flag.StringVar(&webhookURL, "webhook", "", "Webhook URL for outbound notifications. Prefer config file.")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (overrides config.db).")
	flag.Var(&sources, "source", "Source name to collect from. Can be repeated.")
	flag.StringVar(&keywordsCSV, "keywords", "", "Comma-separated keyword filter. Overrides config.")
	flag.StringVar(&priorityCSV, "priority-keywords", "", "Comma-separated priority keywords. Overrides config.")
	flag.DurationVar(&interval, "interval", 0, "Loop interval (e.g. 1h). Overrides config interval_seconds.")
	flag.DurationVar(&delay, "delay", 0, "Pacing delay between sends. Overrides config notification_delay.")
	flag.DurationVar(&priorityDelay, "priority-delay", 0, "Pacing delay between priority sends.")
	flag.IntVar(&maxPerCycle, "max-per-cycle", 0, "Cap on notifications per cycle. Overrides config.")
	flag.IntVar(&retentionDays, "retention-days", 0, "Ledger retention in days. Overrides config.")
	flag.DurationVar(&collectTimeout, "collect-timeout", 0, "Per-source collect timeout.")
	flag.BoolVar(&debug, "debug", false, "Enable debug logs.")
	flag.BoolVar(&once, "once", true, "Run once and exit (default true for crontab).")
	flag.Parse()

	visited := map[string]bool{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	// Base config from file (optional)
	cfg := &notifier.FileConfig{}
	if configPath != "" {
		loaded, err := notifier.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg.ApplyDefaults()
	}

	// Merge CLI overrides
	if visited["webhook"] {
		cfg.WebhookURL = webhookURL
	}
	if visited["db"] {
		cfg.DB = dbPath
	}
	if visited["source"] {
		cfg.Sources = sources
	}
	if visited["keywords"] {
		cfg.Keywords = splitCSV(keywordsCSV)
	}
	if visited["priority-keywords"] {
		cfg.PriorityKeywords = splitCSV(priorityCSV)
	}
	if visited["interval"] {
		cfg.IntervalSeconds = int(interval.Seconds())
	}
	if visited["delay"] {
		cfg.NotificationDelay = delay.Seconds()
	}
	if visited["priority-delay"] {
		cfg.PriorityDelay = priorityDelay.Seconds()
	}
	if visited["max-per-cycle"] {
		cfg.MaxNotificationsPerCycle = maxPerCycle
	}
	if visited["retention-days"] {
		cfg.RetentionDays = retentionDays
	}
	if visited["collect-timeout"] {
		cfg.CollectTimeoutSeconds = int(collectTimeout.Seconds())
	}
	if visited["debug"] {
		cfg.Debug = debug
	}

	// Missing required keys is fatal at startup, not a per-run error.
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	var db *gorm.DB
	opened, err := notifier.OpenDB(cfg.DB)
	if err != nil {
		// Deliberate availability-over-strict-dedup tradeoff: a broken store
		// means re-sending, not crashing.
		log.Printf("warning: open db %q: %v (continuing with empty ledger)", cfg.DB, err)
	} else {
		db = opened
	}

	registry := notifier.NewRegistry()
	for name, url := range cfg.Feeds {
		if err := registry.Register(notifier.NewFeedCollector(name, url, cfg.CollectTimeout())); err != nil {
			log.Fatalf("register feed %q: %v", name, err)
		}
	}
	for _, s := range cfg.Sources {
		if _, ok := registry.Lookup(s); !ok {
			fmt.Fprintf(os.Stderr, "source %q has no collector (configure it under feeds:)\n", s)
			os.Exit(2)
		}
	}

	ledger := notifier.NewLedger(db, 0, cfg.Debug)
	dispatcher := notifier.NewDispatcher(notifier.DispatcherConfig{
		Keywords:         cfg.Keywords,
		PriorityKeywords: cfg.PriorityKeywords,
		Delay:            cfg.Delay(),
		PriorityDelay:    cfg.PriorityDelayDuration(),
		MaxPerBatch:      cfg.MaxNotificationsPerCycle,
		Debug:            cfg.Debug,
	}, notifier.NewWebhookClient(cfg.WebhookURL), ledger)

	agg := notifier.NewAggregator(notifier.AggregatorConfig{
		Sources:        cfg.Sources,
		CollectTimeout: cfg.CollectTimeout(),
		Retention:      cfg.Retention(),
		Debug:          cfg.Debug,
	}, registry, ledger, dispatcher, db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if once {
		if _, err := agg.RunOnce(ctx); err != nil {
			log.Fatalf("run once: %v", err)
		}
		return
	}

	log.Printf("ticket-notifier started: %d source(s), interval=%s", len(cfg.Sources), cfg.Interval())
	if _, err := agg.RunOnce(ctx); err != nil {
		log.Printf("run error: %v", err)
	}
	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			if _, err := agg.RunOnce(ctx); err != nil {
				log.Printf("run error: %v", err)
			}
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

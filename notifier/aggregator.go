package notifier

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AggregatorConfig struct {
	Sources []string
	// CollectTimeout bounds each adapter invocation so one hung site cannot
	// block the whole run.
	CollectTimeout time.Duration
	Retention      time.Duration
	Debug          bool
}

// Aggregator runs the core sequence: fan out to collectors, validate and
// archive, filter through the ledger, dispatch, prune. Both the cron-style
// --once mode and the daemon loop drive this same sequence; only one run may
// execute at a time.
type Aggregator struct {
	cfg        AggregatorConfig
	registry   *Registry
	ledger     *Ledger
	dispatcher *Dispatcher
	db         *gorm.DB
	now        func() time.Time
}

func NewAggregator(cfg AggregatorConfig, reg *Registry, ledger *Ledger, disp *Dispatcher, db *gorm.DB) *Aggregator {
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 60 * time.Second
	}
	return &Aggregator{
		cfg:        cfg,
		registry:   reg,
		ledger:     ledger,
		dispatcher: disp,
		db:         db,
		now:        time.Now,
	}
}

func (a *Aggregator) debugf(format string, args ...any) {
	if a == nil || !a.cfg.Debug {
		return
	}
	log.Printf(format, args...)
}

// RunStats summarizes one run for the closing log line.
type RunStats struct {
	RunID         string
	SourcesOK     int
	SourcesFailed int
	Collected     int
	Dropped       int
	New           int
	Sent          int
	Failed        int
	Skipped       int
	Pruned        int64
	Elapsed       time.Duration
}

// Collect invokes one worker per source and merges results only after every
// worker has finished or been counted as failed. A single adapter's failure
// contributes zero records and never aborts the others.
func (a *Aggregator) Collect(ctx context.Context, sources []string) ([]NoticeRecord, int, int) {
	results := make([][]NoticeRecord, len(sources))
	failures := make([]bool, len(sources))

	var wg sync.WaitGroup
	for i, name := range sources {
		c, ok := a.registry.Lookup(name)
		if !ok {
			log.Printf("unknown source %q, skipping", name)
			failures[i] = true
			continue
		}
		wg.Add(1)
		go func(i int, c Collector) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Printf("collector %s panicked: %v", c.Name(), p)
					failures[i] = true
				}
			}()
			cctx, cancel := context.WithTimeout(ctx, a.cfg.CollectTimeout)
			defer cancel()
			records, err := c.Collect(cctx)
			if err != nil {
				log.Printf("collect %s: %v", c.Name(), err)
				failures[i] = true
				return
			}
			a.debugf("collect %s: %d records", c.Name(), len(records))
			results[i] = records
		}(i, c)
	}
	wg.Wait()

	var merged []NoticeRecord
	ok, failed := 0, 0
	for i := range sources {
		if failures[i] {
			failed++
			continue
		}
		ok++
		merged = append(merged, results[i]...)
	}
	return merged, ok, failed
}

// validate drops records without identity and stamps ingestion fields.
func (a *Aggregator) validate(records []NoticeRecord) ([]NoticeRecord, int) {
	now := a.now()
	out := make([]NoticeRecord, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !r.Valid() {
			a.debugf("drop invalid record: title=%q source=%q", r.Title, r.Source)
			dropped++
			continue
		}
		if trimmed(r.Link) == "" {
			r.Link = LinkPlaceholder
		}
		if r.CollectedAt.IsZero() {
			r.CollectedAt = now
		}
		out = append(out, r)
	}
	return out, dropped
}

// archive upserts every validated record into the notice table so the browse
// API can serve history. Never ledger state: archiving a notice says nothing
// about whether it was sent.
func (a *Aggregator) archive(records []NoticeRecord) {
	if a.db == nil {
		return
	}
	now := a.now()
	for _, r := range records {
		id := ComputeIdentity(r)
		if id == "" {
			continue
		}
		n := Notice{
			Identity:    id,
			Source:      trimmed(r.Source),
			Title:       trimmed(r.Title),
			OpenDate:    trimmed(r.OpenDate),
			Link:        r.Link,
			CollectedAt: r.CollectedAt,
		}
		if t := ParseOpenDate(r.OpenDate, now); !IsUnparseable(t) {
			n.OpenAt = &t
		}
		err := a.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			UpdateAll: true,
		}).Create(&n).Error
		if err != nil {
			log.Printf("warning: archive notice %q: %v", id, err)
		}
	}
}

// RunOnce executes one full cycle and returns its stats. Collector and send
// failures are absorbed into the stats; the error return is reserved for a
// cancelled context.
func (a *Aggregator) RunOnce(ctx context.Context) (RunStats, error) {
	start := a.now()
	stats := RunStats{RunID: uuid.NewString()[:8]}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	a.ledger.Load()

	collected, okCount, failedCount := a.Collect(ctx, a.cfg.Sources)
	stats.SourcesOK = okCount
	stats.SourcesFailed = failedCount
	stats.Collected = len(collected)

	valid, dropped := a.validate(collected)
	stats.Dropped = dropped

	a.archive(valid)

	fresh := a.ledger.FilterNew(valid)
	stats.New = len(fresh)

	res := a.dispatcher.SendBatch(fresh)
	stats.Sent = res.Sent
	stats.Failed = res.Failed
	stats.Skipped = res.Skipped

	pruned, err := a.ledger.Prune(a.cfg.Retention)
	if err != nil {
		log.Printf("warning: ledger prune: %v", err)
	}
	stats.Pruned = pruned

	stats.Elapsed = a.now().Sub(start)
	log.Printf("run %s done: sources ok=%d failed=%d collected=%d dropped=%d new=%d sent=%d sendFailed=%d skipped=%d pruned=%d elapsed=%s",
		stats.RunID, stats.SourcesOK, stats.SourcesFailed, stats.Collected, stats.Dropped,
		stats.New, stats.Sent, stats.Failed, stats.Skipped, stats.Pruned, stats.Elapsed.Truncate(time.Millisecond))
	return stats, nil
}

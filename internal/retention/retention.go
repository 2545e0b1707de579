// Package retention hard-deletes threads that have been soft-deleted
// for longer than the configured period. Runs are scheduled with a
// cron expression and can also be triggered through the admin API.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"forumdb/pkg/config"
	"forumdb/pkg/logger"
	"forumdb/pkg/store"
)

// Report summarizes a single retention sweep.
type Report struct {
	Scanned   int   `json:"scanned"`
	Purged    int   `json:"purged"`
	Messages  int   `json:"messages"`
	DryRun    bool  `json:"dry_run"`
	StartedTS int64 `json:"started_ts"`
	Elapsed   int64 `json:"elapsed_ms"`
}

var (
	mu  sync.Mutex
	cfg *config.RetentionConfig
)

// Configure stores the retention settings used by scheduled and manual
// runs. Start calls this; tests and admin triggers may call it directly.
func Configure(rc config.RetentionConfig) {
	mu.Lock()
	defer mu.Unlock()
	cfg = &rc
}

// RunNow triggers a single sweep with the configured settings. The
// dryRun argument forces a report-only pass regardless of config.
func RunNow(dryRun bool) (Report, error) {
	mu.Lock()
	c := cfg
	mu.Unlock()
	if c == nil {
		return Report{}, fmt.Errorf("retention not configured")
	}
	return runOnce(*c, dryRun || c.DryRun)
}

// Start launches the cron scheduler when retention is enabled and
// returns a cancel func. An empty cron defaults to daily at 02:00.
func Start(ctx context.Context, rc config.RetentionConfig) (context.CancelFunc, error) {
	Configure(rc)

	if !rc.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	cronExpr := rc.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", rc.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", rc.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", rc.Period.Duration().String(), "dry_run", rc.DryRun)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, rc, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression with
// gronx and sleeps until then. Full cron syntax is supported.
func runScheduler(ctx context.Context, rc config.RetentionConfig, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if rep, err := runOnce(rc, rc.DryRun); err != nil {
				logger.Error("retention_run_error", "error", err)
			} else {
				logger.Info("retention_run_done",
					"scanned", rep.Scanned, "purged", rep.Purged,
					"messages", rep.Messages, "dry_run", rep.DryRun)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// runOnce scans all threads and purges those whose soft-delete mark is
// older than the configured period. BatchSize caps purges per run so a
// backlog drains over several sweeps instead of one long stall.
func runOnce(rc config.RetentionConfig, dryRun bool) (Report, error) {
	start := time.Now().UTC()
	rep := Report{DryRun: dryRun, StartedTS: start.UnixNano()}

	threads, err := store.ListThreads()
	if err != nil {
		return rep, err
	}
	cutoff := start.Add(-rc.Period.Duration()).UnixNano()

	for _, t := range threads {
		rep.Scanned++
		if !t.Deleted || t.DeletedTS == 0 || t.DeletedTS > cutoff {
			continue
		}
		if rc.BatchSize > 0 && rep.Purged >= rc.BatchSize {
			logger.Info("retention_batch_limit", "batch_size", rc.BatchSize)
			break
		}
		if dryRun {
			logger.Info("retention_would_purge", "thread", t.ID, "deleted_ts", t.DeletedTS)
			rep.Purged++
			continue
		}
		n, err := store.PurgeThread(t.ID)
		if err != nil {
			logger.Error("retention_purge_failed", "thread", t.ID, "error", err)
			continue
		}
		rep.Purged++
		rep.Messages += n
	}
	rep.Elapsed = time.Since(start).Milliseconds()
	return rep, nil
}

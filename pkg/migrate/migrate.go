// Package migrate performs in-place schema upgrades when the binary
// version changes. Each migration step must be idempotent so an
// interrupted run can simply be repeated.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forumdb/pkg/logger"
	"forumdb/pkg/store"
	"forumdb/pkg/utils"
)

const (
	systemVersionKey    = "system:version"
	systemInProgressKey = "system:migration_in_progress"
)

// Run checks for a version change and runs Sync if needed.
// Returns (invoked, error): invoked is true if Sync ran.
func Run(ctx context.Context, newVersion string) (bool, error) {
	stored := storedVersion()
	logger.Info("migrate_version_check", "stored", stored, "running", newVersion)
	if stored == newVersion {
		logger.Info("migrate_noop", "version", newVersion)
		return false, nil
	}

	marker := map[string]string{
		"from":       stored,
		"to":         newVersion,
		"started_at": time.Now().UTC().Format(time.RFC3339),
	}
	mb, _ := json.Marshal(marker)
	if err := store.SaveKey(systemInProgressKey, mb); err != nil {
		return true, fmt.Errorf("failed to write in-progress marker: %w", err)
	}

	if err := Sync(ctx, stored, newVersion); err != nil {
		logger.Error("migrate_sync_failed", "from", stored, "to", newVersion, "error", err)
		return true, err
	}

	if err := store.SaveKey(systemVersionKey, []byte(newVersion)); err != nil {
		return true, fmt.Errorf("failed to persist new version: %w", err)
	}
	if err := store.DeleteKey(systemInProgressKey); err != nil {
		logger.Error("migrate_delete_inprogress_failed", "error", err)
	}
	logger.Info("migrate_version_persisted", "version", newVersion)
	return true, nil
}

// Sync performs upgrade work between versions. Current steps backfill
// thread fields added after early releases: slug and message_count.
func Sync(ctx context.Context, from, to string) error {
	logger.Info("migrate_sync_start", "from", from, "to", to)

	threads, err := store.ListThreads()
	if err != nil {
		return err
	}
	for _, th := range threads {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		changed := false
		if th.Slug == "" && th.Title != "" {
			th.Slug = utils.MakeSlug(th.Title, th.ID)
			changed = true
		}
		if th.MessageCount == 0 {
			n, err := liveMessageCount(th.ID)
			if err != nil {
				logger.Error("migrate_count_failed", "thread", th.ID, "error", err)
				continue
			}
			if n > 0 {
				th.MessageCount = n
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := store.SaveThread(th); err != nil {
			logger.Error("migrate_save_thread_failed", "thread", th.ID, "error", err)
			continue
		}
		logger.Info("migrate_thread_backfilled", "thread", th.ID, "message_count", th.MessageCount)
	}

	logger.Info("migrate_sync_done", "from", from, "to", to)
	return nil
}

// liveMessageCount counts distinct messages whose latest version is not
// a tombstone.
func liveMessageCount(threadID string) (int, error) {
	msgs, err := store.ListMessages(threadID)
	if err != nil {
		return 0, err
	}
	latest := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		latest[m.ID] = m.Deleted
	}
	n := 0
	for _, deleted := range latest {
		if !deleted {
			n++
		}
	}
	return n, nil
}

func storedVersion() string {
	v, err := store.GetKey(systemVersionKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Error("migrate_read_version_failed", "error", err)
		}
		return ""
	}
	return string(v)
}

package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"forumdb/pkg/logger"
	"forumdb/pkg/models"
)

// ErrNotFound is returned when a thread or message key does not exist.
var ErrNotFound = errors.New("not found")

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

// Key layout:
//
//	thread:<threadID>:meta                       thread metadata
//	thread:<threadID>:msg:<%020d ts>-<%06d seq>  message, insertion ordered
//	version:msg:<msgID>:<%020d ts>-<%06d seq>    message version, latest wins
func threadMetaKey(threadID string) []byte {
	return []byte("thread:" + threadID + ":meta")
}

func msgPrefix(threadID string) []byte {
	return []byte("thread:" + threadID + ":msg:")
}

func versionPrefix(msgID string) []byte {
	return []byte("version:msg:" + msgID + ":")
}

// SaveMessage appends a message to its thread under a sortable timestamp
// key and indexes the payload by message ID so messages can be looked up
// and versioned by ID. Updates and soft deletes append a new version;
// GetLatestMessage resolves the current state.
func SaveMessage(threadID string, m models.Message) error {
	if db == nil {
		return notOpened()
	}
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	suffix := fmt.Sprintf("%020d-%06d", ts, s)

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := append(msgPrefix(threadID), suffix...)
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "thread", threadID, "key", string(key), "error", err)
		return err
	}
	if m.ID != "" {
		idxKey := append(versionPrefix(m.ID), suffix...)
		if err := db.Set(idxKey, data, pebble.Sync); err != nil {
			logger.Error("save_message_index_failed", "key", string(idxKey), "error", err)
			return err
		}
	}
	logger.Debug("message_saved", "thread", threadID, "id", m.ID)
	return nil
}

// ListMessages returns all messages for a thread in insertion order. An
// optional limit keeps only the most recent n entries.
func ListMessages(threadID string, limit ...int) ([]models.Message, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := msgPrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]models.Message, 0, 64)
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			// skip unparseable entries; data-quality issue, not fatal
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if len(limit) > 0 && limit[0] >= 0 && limit[0] < len(out) {
		out = out[len(out)-limit[0]:]
	}
	return out, nil
}

// CountMessages returns the number of stored message entries for a thread.
func CountMessages(threadID string) (int, error) {
	if db == nil {
		return 0, notOpened()
	}
	prefix := msgPrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n++
	}
	return n, iter.Error()
}

// ListMessageVersions returns every stored version of a message in
// append order, oldest first.
func ListMessageVersions(msgID string) ([]models.Message, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := versionPrefix(msgID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// GetLatestMessage returns the newest version of a message by ID.
func GetLatestMessage(msgID string) (models.Message, error) {
	versions, err := ListMessageVersions(msgID)
	if err != nil {
		return models.Message{}, err
	}
	return versions[len(versions)-1], nil
}

// SaveThread writes thread metadata.
func SaveThread(t models.Thread) error {
	if db == nil {
		return notOpened()
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}
	if err := db.Set(threadMetaKey(t.ID), data, pebble.Sync); err != nil {
		logger.Error("save_thread_failed", "thread", t.ID, "error", err)
		return err
	}
	logger.Debug("thread_saved", "thread", t.ID)
	return nil
}

// GetThread returns thread metadata by ID.
func GetThread(threadID string) (models.Thread, error) {
	if db == nil {
		return models.Thread{}, notOpened()
	}
	v, closer, err := db.Get(threadMetaKey(threadID))
	if errors.Is(err, pebble.ErrNotFound) {
		return models.Thread{}, ErrNotFound
	}
	if err != nil {
		return models.Thread{}, err
	}
	defer closer.Close()
	var t models.Thread
	if err := json.Unmarshal(v, &t); err != nil {
		return models.Thread{}, fmt.Errorf("invalid thread metadata: %w", err)
	}
	return t, nil
}

// ListThreads returns metadata for every stored thread, including
// soft-deleted ones. Visibility filtering happens in pkg/rank.
func ListThreads() ([]models.Thread, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("thread:")
	metaSuffix := []byte(":meta")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Thread
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		if !bytes.HasSuffix(k, metaSuffix) {
			continue
		}
		var t models.Thread
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, iter.Error()
}

// MarkThreadDeleted soft-deletes a thread: metadata is kept so the
// thread can still be listed with show_deleted, and the retention
// sweeper purges it later.
func MarkThreadDeleted(threadID string) error {
	t, err := GetThread(threadID)
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixNano()
	t.Deleted = true
	t.DeletedTS = now
	t.UpdatedTS = now
	return SaveThread(t)
}

// PurgeThread hard-deletes a thread: metadata, all message entries and
// all version index entries. It returns the number of deleted message
// entries.
func PurgeThread(threadID string) (int, error) {
	if db == nil {
		return 0, notOpened()
	}
	msgs, err := ListMessages(threadID)
	if err != nil {
		return 0, err
	}

	batch := db.NewBatch()
	defer batch.Close()

	deleted := 0
	prefix := msgPrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		if err := batch.Delete(k, nil); err != nil {
			_ = iter.Close()
			return 0, err
		}
		deleted++
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	// drop version indexes for every message seen in the thread
	for _, m := range msgs {
		if m.ID == "" {
			continue
		}
		if err := deleteRange(batch, versionPrefix(m.ID)); err != nil {
			return 0, err
		}
	}
	if err := batch.Delete(threadMetaKey(threadID), nil); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	logger.Info("thread_purged", "thread", threadID, "messages", deleted)
	return deleted, nil
}

func deleteRange(batch *pebble.Batch, prefix []byte) error {
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		if err := batch.Delete(k, nil); err != nil {
			return err
		}
	}
	return iter.Error()
}

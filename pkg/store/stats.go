package store

import (
	"bytes"
	"io/fs"
	"path/filepath"
)

// Stats is a compact operational view of the store, reported by the
// admin stats endpoint and exported as telemetry gauges.
type Stats struct {
	Threads   int    `json:"threads"`
	Deleted   int    `json:"deleted_threads"`
	Messages  int    `json:"messages"`
	DiskBytes uint64 `json:"disk_bytes"`
}

// GetStats scans the keyspace and computes thread/message counts plus
// best-effort on-disk size. It is intended for low-frequency admin use,
// not per-request paths.
func GetStats() (Stats, error) {
	var st Stats
	if db == nil {
		return st, notOpened()
	}
	prefix := []byte("thread:")
	metaSuffix := []byte(":meta")
	msgMark := []byte(":msg:")
	iter, err := db.NewIter(nil)
	if err != nil {
		return st, err
	}
	defer iter.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		k := iter.Key()
		if !bytes.HasPrefix(k, prefix) {
			break
		}
		switch {
		case bytes.HasSuffix(k, metaSuffix):
			st.Threads++
			if bytes.Contains(iter.Value(), []byte(`"deleted":true`)) {
				st.Deleted++
			}
		case bytes.Contains(k, msgMark):
			st.Messages++
		}
	}
	if err := iter.Error(); err != nil {
		return st, err
	}
	st.DiskBytes = DiskUsage()
	return st, nil
}

// DiskUsage returns the total size in bytes of the DB directory.
func DiskUsage() uint64 {
	if dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}

package store

import (
	"bytes"
	"errors"

	"github.com/cockroachdb/pebble"
)

// ListKeys returns raw store keys, optionally filtered by prefix. Used
// by the admin API and the inspect tool.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, notOpened()
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	p := []byte(prefix)
	keys := make([]string, 0, 64)
	for iter.SeekGE(p); iter.Valid(); iter.Next() {
		if len(p) > 0 && !bytes.HasPrefix(iter.Key(), p) {
			break
		}
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

// GetKey returns the raw value stored under an exact key.
func GetKey(key string) ([]byte, error) {
	if db == nil {
		return nil, notOpened()
	}
	v, closer, err := db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// SaveKey stores a raw value under an exact key. Reserved for system
// bookkeeping such as schema version markers.
func SaveKey(key string, val []byte) error {
	if db == nil {
		return notOpened()
	}
	return db.Set([]byte(key), val, pebble.Sync)
}

// DeleteKey removes an exact key.
func DeleteKey(key string) error {
	if db == nil {
		return notOpened()
	}
	return db.Delete([]byte(key), pebble.Sync)
}

package store

import (
	"errors"
	"testing"

	"forumdb/pkg/models"
)

func openTemp(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestOpenClose(t *testing.T) {
	if Ready() {
		t.Fatalf("store unexpectedly ready before open")
	}
	openTemp(t)
	if !Ready() {
		t.Fatalf("store not ready after open")
	}
}

func TestThreadRoundTrip(t *testing.T) {
	openTemp(t)
	th := models.Thread{ID: "t1", Title: "hello", Author: "u1", CreatedTS: 10}
	if err := SaveThread(th); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := GetThread("t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "hello" || got.Author != "u1" {
		t.Fatalf("unexpected thread: %+v", got)
	}
	if _, err := GetThread("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListThreadsIncludesSoftDeleted(t *testing.T) {
	openTemp(t)
	for _, id := range []string{"t1", "t2"} {
		if err := SaveThread(models.Thread{ID: id, Author: "u1"}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if err := MarkThreadDeleted("t2"); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	threads, err := ListThreads()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(threads))
	}
	t2, err := GetThread("t2")
	if err != nil {
		t.Fatalf("get t2: %v", err)
	}
	if !t2.Deleted || t2.DeletedTS == 0 {
		t.Fatalf("expected soft-delete mark, got %+v", t2)
	}
}

func TestMessagesInsertionOrderAndLimit(t *testing.T) {
	openTemp(t)
	for i, id := range []string{"m1", "m2", "m3"} {
		m := models.Message{ID: id, Thread: "t1", TS: int64(i + 1), Body: id}
		if err := SaveMessage("t1", m); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	msgs, err := ListMessages("t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "m1" || msgs[2].ID != "m3" {
		t.Fatalf("unexpected order: %+v", msgs)
	}
	last, err := ListMessages("t1", 2)
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(last) != 2 || last[0].ID != "m2" {
		t.Fatalf("expected most recent 2, got %+v", last)
	}
	n, err := CountMessages("t1")
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestMessageVersions(t *testing.T) {
	openTemp(t)
	m := models.Message{ID: "m1", Thread: "t1", TS: 1, Body: "v1"}
	if err := SaveMessage("t1", m); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	m.Body = "v2"
	if err := SaveMessage("t1", m); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	m.Deleted = true
	if err := SaveMessage("t1", m); err != nil {
		t.Fatalf("save tombstone: %v", err)
	}

	versions, err := ListMessageVersions("m1")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if len(versions) != 3 || versions[0].Body != "v1" {
		t.Fatalf("unexpected versions: %+v", versions)
	}
	latest, err := GetLatestMessage("m1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.Deleted {
		t.Fatalf("expected tombstone latest, got %+v", latest)
	}
	if _, err := ListMessageVersions("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeThread(t *testing.T) {
	openTemp(t)
	if err := SaveThread(models.Thread{ID: "t1", Author: "u1"}); err != nil {
		t.Fatalf("save thread: %v", err)
	}
	for _, id := range []string{"m1", "m2"} {
		if err := SaveMessage("t1", models.Message{ID: id, Thread: "t1", TS: 1}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	n, err := PurgeThread("t1")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged entries, got %d", n)
	}
	if _, err := GetThread("t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("thread meta survived purge: %v", err)
	}
	if _, err := ListMessageVersions("m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("version index survived purge: %v", err)
	}
	msgs, err := ListMessages("t1")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("messages survived purge: %v %v", msgs, err)
	}
}

func TestGetStats(t *testing.T) {
	openTemp(t)
	_ = SaveThread(models.Thread{ID: "t1", Author: "u1"})
	_ = SaveThread(models.Thread{ID: "t2", Author: "u1"})
	_ = MarkThreadDeleted("t2")
	_ = SaveMessage("t1", models.Message{ID: "m1", Thread: "t1", TS: 1})

	st, err := GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Threads != 2 || st.Deleted != 1 || st.Messages != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.DiskBytes == 0 {
		t.Fatalf("expected non-zero disk usage")
	}
}

func TestRawKeyHelpers(t *testing.T) {
	openTemp(t)
	if err := SaveKey("system:version", []byte("1.0")); err != nil {
		t.Fatalf("save key: %v", err)
	}
	v, err := GetKey("system:version")
	if err != nil || string(v) != "1.0" {
		t.Fatalf("get key = %q, %v", v, err)
	}
	keys, err := ListKeys("system:")
	if err != nil || len(keys) != 1 {
		t.Fatalf("list keys = %v, %v", keys, err)
	}
	if err := DeleteKey("system:version"); err != nil {
		t.Fatalf("delete key: %v", err)
	}
	if _, err := GetKey("system:version"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

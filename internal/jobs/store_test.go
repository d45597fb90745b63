package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mediasift/internal/services"
)

func sampleJob(id string) *Job {
	return &Job{
		ID:        id,
		State:     StatePending,
		Kind:      KindVideo,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	job := sampleJob("job-1")
	if err := store.Put(context.Background(), job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "job-1" || got.State != StatePending || got.Kind != KindVideo {
		t.Fatalf("got = %+v", got)
	}
}

func TestMemoryStoreReturnsNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreIsolatesSnapshots(t *testing.T) {
	store := NewMemoryStore()
	job := sampleJob("job-1")
	if err := store.Put(context.Background(), job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Mutating either the original or a read snapshot must not leak into
	// the stored record.
	job.State = StateFailed
	first, _ := store.Get(context.Background(), "job-1")
	first.Error = "mutated"

	second, err := store.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.State != StatePending || second.Error != "" {
		t.Fatalf("stored record was mutated: %+v", second)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	completed := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	job := sampleJob("job-9")
	job.State = StateCompleted
	job.CompletedAt = &completed
	job.Result = []byte(`{"verdict":"safe"}`)

	if err := store.Put(context.Background(), job); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateCompleted || got.Kind != KindVideo {
		t.Fatalf("got = %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Fatalf("completed_at = %v", got.CompletedAt)
	}
	if string(got.Result) != `{"verdict":"safe"}` {
		t.Fatalf("result = %s", got.Result)
	}
}

func TestSQLiteStoreUpsertsTransitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	job := sampleJob("job-2")
	if err := store.Put(context.Background(), job); err != nil {
		t.Fatalf("Put(pending) error = %v", err)
	}
	job.State = StateFailed
	job.Error = "boom"
	if err := store.Put(context.Background(), job); err != nil {
		t.Fatalf("Put(failed) error = %v", err)
	}

	got, err := store.Get(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateFailed || got.Error != "boom" {
		t.Fatalf("got = %+v", got)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSQLiteStoreReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := store.Put(context.Background(), sampleJob("job-3")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), "job-3"); err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
}

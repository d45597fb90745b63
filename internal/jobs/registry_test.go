package jobs

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediasift/internal/pipeline"
	"mediasift/internal/services/summarizer"
	"mediasift/internal/services/textsafety"
	"mediasift/internal/services/transcriber"
)

// blockingTranscriber holds transcription until released, so tests can
// observe pre-terminal job states.
type blockingTranscriber struct {
	release chan struct{}
	active  atomic.Int32
	panics  bool
}

func (b *blockingTranscriber) Transcribe(ctx context.Context, fileURL, languageHint string) (transcriber.Result, error) {
	if b.panics {
		panic("transcriber exploded")
	}
	b.active.Add(1)
	defer b.active.Add(-1)
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return transcriber.Result{}, ctx.Err()
		}
	}
	return transcriber.Result{Text: "Hello world"}, nil
}

type stubModerator struct{}

func (stubModerator) Moderate(ctx context.Context, text string, categories ...textsafety.Category) (textsafety.Result, error) {
	return textsafety.Result{Verdict: textsafety.VerdictSafe, IsSafe: true, FlaggedCategories: []string{}}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(ctx context.Context, text string, style summarizer.Style) (summarizer.Result, error) {
	return summarizer.Result{Summary: "Greeting.", Style: summarizer.StyleBrief}, nil
}

func newRegistry(t *testing.T, tr pipeline.Transcriber, maxConcurrent int) *Registry {
	t.Helper()
	videos := pipeline.NewVideoOrchestrator(tr, stubModerator{}, stubSummarizer{}, nil, nil)
	registry := NewRegistry(NewMemoryStore(), videos, nil, RegistryOptions{MaxConcurrent: maxConcurrent})
	t.Cleanup(func() { registry.Close() })
	return registry
}

func awaitState(t *testing.T, registry *Registry, id string, want State) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := registry.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if job.State == want {
			return job
		}
		if job.State.Terminal() {
			t.Fatalf("job reached terminal state %q while waiting for %q (error=%q)", job.State, want, job.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never reached state %q", want)
	return nil
}

func TestSubmitReturnsPendingThenCompletes(t *testing.T) {
	tr := &blockingTranscriber{release: make(chan struct{})}
	registry := newRegistry(t, tr, 0)

	id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}

	job, err := registry.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if job.State != StatePending && job.State != StateProcessing {
		t.Fatalf("state immediately after submit = %q", job.State)
	}

	close(tr.release)
	done := awaitState(t, registry, id, StateCompleted)

	if done.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}
	var result pipeline.VideoResult
	if err := json.Unmarshal(done.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Verdict != pipeline.VerdictSafe || result.Summary == nil {
		t.Fatalf("result = %+v", result)
	}

	// Terminal snapshots are idempotent.
	again, err := registry.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.State != StateCompleted || !again.CompletedAt.Equal(*done.CompletedAt) {
		t.Fatalf("second poll differs: %+v", again)
	}
}

func TestSubmitRecordsFailureForBadRequest(t *testing.T) {
	registry := newRegistry(t, &blockingTranscriber{}, 0)

	id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}

	job := awaitState(t, registry, id, StateFailed)
	if job.Error == "" {
		t.Fatal("failed job missing error message")
	}
}

func TestRegistryRecoversFromPanic(t *testing.T) {
	registry := newRegistry(t, &blockingTranscriber{panics: true}, 0)

	id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}

	job := awaitState(t, registry, id, StateFailed)
	if !strings.Contains(job.Error, "panic") {
		t.Fatalf("error = %q, want panic message", job.Error)
	}
}

func TestRegistryBoundsConcurrency(t *testing.T) {
	tr := &blockingTranscriber{release: make(chan struct{})}
	registry := newRegistry(t, tr, 1)

	first, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/a.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	second, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/b.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}

	awaitState(t, registry, first, StateProcessing)
	time.Sleep(20 * time.Millisecond)
	if got := tr.active.Load(); got != 1 {
		t.Fatalf("active runs = %d, want 1", got)
	}

	close(tr.release)
	awaitState(t, registry, first, StateCompleted)
	awaitState(t, registry, second, StateCompleted)
}

func TestStatsTrackJobLifecycle(t *testing.T) {
	tr := &blockingTranscriber{release: make(chan struct{})}
	registry := newRegistry(t, tr, 0)

	id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	awaitState(t, registry, id, StateProcessing)

	stats := registry.Stats()
	if stats.Submitted != 1 || stats.Active != 1 || stats.Completed != 0 {
		t.Fatalf("mid-run stats = %+v", stats)
	}

	close(tr.release)
	awaitState(t, registry, id, StateCompleted)

	stats = registry.Stats()
	if stats.Submitted != 1 || stats.Active != 0 || stats.Completed != 1 || stats.Failed != 0 {
		t.Fatalf("terminal stats = %+v", stats)
	}

	// A rejected request still runs to a failed terminal state.
	badID, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: ""})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, getErr := registry.Get(context.Background(), badID)
		if getErr != nil {
			t.Fatalf("Get() error = %v", getErr)
		}
		if job.State.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	stats = registry.Stats()
	if stats.Failed != 1 {
		t.Fatalf("expected one failed job, stats = %+v", stats)
	}
}

func TestCloseWaitsForRacingSubmissions(t *testing.T) {
	tr := &blockingTranscriber{}
	videos := pipeline.NewVideoOrchestrator(tr, stubModerator{}, stubSummarizer{}, nil, nil)
	registry := NewRegistry(NewMemoryStore(), videos, nil, RegistryOptions{})

	var wg sync.WaitGroup
	ids := make(chan string, 32)
	for i := 0; i < cap(ids); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"})
			if err == nil {
				ids <- id
			}
		}()
	}
	if err := registry.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	wg.Wait()
	close(ids)

	if _, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"}); err == nil {
		t.Fatal("submit after Close succeeded")
	}
	// Every run that was admitted must have recorded a terminal state by
	// the time Close returned and its submitter finished.
	for id := range ids {
		job, err := registry.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", id, err)
		}
		if !job.State.Terminal() {
			t.Fatalf("job %s state = %q after Close", id, job.State)
		}
	}
	if stats := registry.Stats(); stats.Active != 0 {
		t.Fatalf("active = %d after Close", stats.Active)
	}
}

func TestCancelAbortsRun(t *testing.T) {
	tr := &blockingTranscriber{release: make(chan struct{})}
	registry := newRegistry(t, tr, 0)

	id, err := registry.SubmitVideo(context.Background(), pipeline.VideoRequest{FileURL: "http://host/clip.mp4"})
	if err != nil {
		t.Fatalf("SubmitVideo() error = %v", err)
	}
	awaitState(t, registry, id, StateProcessing)

	if !registry.Cancel(id) {
		t.Fatal("Cancel() found no live run")
	}
	// The canceled transcription surfaces as a completed run with an error
	// verdict; the job itself still terminates.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := registry.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if job.State.Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never terminated after cancel")
}

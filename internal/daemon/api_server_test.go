package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediasift/internal/config"
	"mediasift/internal/jobs"
	"mediasift/internal/pipeline"
	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/summarizer"
	"mediasift/internal/services/textsafety"
	"mediasift/internal/services/transcriber"
)

type stubTranscriber struct {
	result transcriber.Result
	err    error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, fileURL, languageHint string) (transcriber.Result, error) {
	return s.result, s.err
}

type stubModerator struct {
	result textsafety.Result
	err    error
}

func (s *stubModerator) Moderate(ctx context.Context, text string, categories ...textsafety.Category) (textsafety.Result, error) {
	return s.result, s.err
}

type stubSummarizer struct {
	result summarizer.Result
	err    error
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string, style summarizer.Style) (summarizer.Result, error) {
	return s.result, s.err
}

type stubImageModerator struct {
	result imagesafety.Result
	err    error
}

func (s *stubImageModerator) Moderate(ctx context.Context, payload []byte, mimeType string, level imagesafety.Level) (imagesafety.Result, error) {
	return s.result, s.err
}

func (s *stubImageModerator) DefaultLevel() imagesafety.Level {
	return imagesafety.LevelModerate
}

type stubFetcher struct {
	payload     []byte
	contentType string
	err         error
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	return s.payload, s.contentType, s.err
}

func newTestDaemon(t *testing.T) (*Daemon, *config.Config) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Paths.LockPath = t.TempDir() + "/mediasiftd.lock"
	cfg.Paths.APIBind = "127.0.0.1:0"

	transcripts := &stubTranscriber{result: transcriber.Result{
		Text:     "Hello world",
		Language: "en",
		Segments: []transcriber.Segment{{ID: 0, Start: 0, End: 1.5, Text: "Hello world"}},
	}}
	moderator := &stubModerator{result: textsafety.Result{
		Verdict:     textsafety.VerdictSafe,
		IsSafe:      true,
		Explanation: "Benign.",
	}}
	summaries := &stubSummarizer{result: summarizer.Result{Summary: "Greeting.", Style: summarizer.StyleBrief}}
	imageModerator := &stubImageModerator{result: imagesafety.Result{IsSafe: true, Reason: "No policy violations."}}
	fetcher := &stubFetcher{payload: []byte("not-really-an-image"), contentType: "image/jpeg"}

	images := pipeline.NewImageOrchestrator(fetcher, imageModerator, nil)
	videos := pipeline.NewVideoOrchestrator(transcripts, moderator, summaries, images, nil)

	store := jobs.NewMemoryStore()
	registry := jobs.NewRegistry(store, videos, images, jobs.RegistryOptions{})
	t.Cleanup(func() { _ = registry.Close() })

	d, err := New(cfg, Dependencies{
		Store:    store,
		Registry: registry,
		Videos:   videos,
		Images:   images,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, cfg
}

func TestHandleProcessVideoReturnsResult(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	body := strings.NewReader(`{"file_url":"http://storage.local/video.mp4"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/video", body)
	w := httptest.NewRecorder()
	srv.handleProcessVideo(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var result pipeline.VideoResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Verdict != pipeline.VerdictSafe {
		t.Fatalf("expected safe verdict, got %q", result.Verdict)
	}
	if result.Summary == nil || result.Summary.Summary != "Greeting." {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
}

func TestHandleProcessVideoRejectsEmptyURL(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/video", strings.NewReader(`{"file_url":""}`))
	w := httptest.NewRecorder()
	srv.handleProcessVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleProcessVideoRejectsUnknownFields(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/video", strings.NewReader(`{"file_url":"http://x/y.mp4","bogus":true}`))
	w := httptest.NewRecorder()
	srv.handleProcessVideo(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleProcessImageReturnsResult(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	body := strings.NewReader(`{"file_url":"http://storage.local/photo.jpg","safety_level":"strict"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/pipeline/image", body)
	w := httptest.NewRecorder()
	srv.handleProcessImage(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var result pipeline.ImageResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.IsSafe {
		t.Fatalf("expected safe image result, got %+v", result)
	}
}

func TestHandleJobsAcceptsVideoSubmission(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	body := strings.NewReader(`{"pipeline_type":"video","video":{"file_url":"http://storage.local/video.mp4"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	w := httptest.NewRecorder()
	srv.handleJobs(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var accepted jobAccepted
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatal("expected job ID")
	}
	if accepted.Status != jobs.StatePending {
		t.Fatalf("expected pending status, got %q", accepted.Status)
	}

	waitForJob(t, srv, accepted.JobID)
}

func TestHandleJobsRejectsMismatchedBody(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	cases := []struct {
		name string
		body string
	}{
		{"missing video payload", `{"pipeline_type":"video"}`},
		{"missing image payload", `{"pipeline_type":"image"}`},
		{"unknown pipeline", `{"pipeline_type":"audio"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			srv.handleJobs(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleJobItemReturnsNotFoundForUnknownID(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil)
	w := httptest.NewRecorder()
	srv.handleJobItem(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleJobItemPollsToCompletion(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	body := strings.NewReader(`{"pipeline_type":"image","image":{"file_url":"http://storage.local/photo.jpg"}}`)
	submitReq := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	submitRec := httptest.NewRecorder()
	srv.handleJobs(submitRec, submitReq)
	if submitRec.Code != http.StatusAccepted {
		t.Fatalf("submit failed: %d %s", submitRec.Code, submitRec.Body.String())
	}
	var accepted jobAccepted
	if err := json.Unmarshal(submitRec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}

	job := waitForJob(t, srv, accepted.JobID)
	if job.State != jobs.StateCompleted {
		t.Fatalf("expected completed job, got %q (error %q)", job.State, job.Error)
	}
	stats := d.registry.Stats()
	if stats.Submitted != 1 || stats.Completed != 1 || stats.Active != 0 {
		t.Fatalf("unexpected registry stats: %+v", stats)
	}
	var result pipeline.ImageResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		t.Fatalf("failed to decode job result: %v", err)
	}
	if !result.IsSafe {
		t.Fatalf("expected safe image result, got %+v", result)
	}
}

func TestHandleStatusReportsHealth(t *testing.T) {
	d, _ := newTestDaemon(t)
	srv := &apiServer{daemon: d}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	srv.handleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Running {
		t.Fatal("daemon was not started, expected running=false")
	}
	if status.PID == 0 {
		t.Fatal("expected a PID")
	}
	if status.LLM.Reachable {
		t.Fatal("no health checker configured, expected unreachable")
	}
}

func waitForJob(t *testing.T, srv *apiServer, id string) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil)
		w := httptest.NewRecorder()
		srv.handleJobItem(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("poll failed: %d %s", w.Code, w.Body.String())
		}
		var job jobs.Job
		if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
			t.Fatalf("failed to decode job: %v", err)
		}
		if job.State.Terminal() {
			return &job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return nil
}

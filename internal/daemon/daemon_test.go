package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

type stubHealth struct {
	err error
}

func (s *stubHealth) HealthCheck(ctx context.Context) error { return s.err }

func TestDaemonStartServesAPIAndStops(t *testing.T) {
	d, cfg := newTestDaemon(t)
	cfg.Paths.APIToken = "secret"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	addr := d.Addr()
	if addr == "" {
		t.Fatal("expected a listen address")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	unauth, err := client.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	if unauth.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", unauth.StatusCode)
	}
	if ct := unauth.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unauthorized content type = %q", ct)
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(unauth.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode unauthorized body: %v", err)
	}
	unauth.Body.Close()
	if apiErr.Error != "unauthorized" {
		t.Fatalf("unauthorized error = %q", apiErr.Error)
	}

	wrong, err := http.NewRequest(http.MethodGet, "http://"+addr+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	wrong.Header.Set("Authorization", "Bearer not-the-token")
	wrongResp, err := client.Do(wrong)
	if err != nil {
		t.Fatalf("wrong-token request: %v", err)
	}
	wrongResp.Body.Close()
	if wrongResp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", wrongResp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/api/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("authorized status request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running=true after Start")
	}

	d.Stop()
	if d.Addr() != "" {
		t.Fatal("expected no listen address after Stop")
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	first, cfg := newTestDaemon(t)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, Dependencies{
		Store:    first.store,
		Registry: first.registry,
		Videos:   first.videos,
		Images:   first.images,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail while lock is held")
	}
}

func TestDaemonStartIsIdempotentGuarded(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected error starting an already running daemon")
	}
}

func TestStatusUsesHealthChecker(t *testing.T) {
	d, cfg := newTestDaemon(t)
	cfg.LLM.APIKey = "key"

	d.health = &stubHealth{}
	status := d.Status(context.Background())
	if !status.LLM.Configured {
		t.Fatal("expected configured=true with an API key")
	}
	if !status.LLM.Reachable {
		t.Fatalf("expected reachable backend, got detail %q", status.LLM.Detail)
	}

	d.health = &stubHealth{err: errors.New("backend down")}
	status = d.Status(context.Background())
	if status.LLM.Reachable {
		t.Fatal("expected unreachable backend")
	}
	if status.LLM.Detail != "backend down" {
		t.Fatalf("unexpected detail: %q", status.LLM.Detail)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	d, cfg := newTestDaemon(t)

	if _, err := New(nil, Dependencies{Store: d.store, Registry: d.registry, Videos: d.videos, Images: d.images}); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := New(cfg, Dependencies{Registry: d.registry, Videos: d.videos, Images: d.images}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(cfg, Dependencies{Store: d.store, Registry: d.registry}); err == nil {
		t.Fatal("expected error for missing orchestrators")
	}
}

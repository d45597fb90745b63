package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediasift/internal/services"
)

func TestFetchReturnsBytesAndContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	fetcher := NewFetcher(Resolver{}, 5*time.Second)
	payload, contentType, err := fetcher.Fetch(context.Background(), server.URL+"/poster.png")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(payload) != "png-bytes" {
		t.Fatalf("payload = %q", payload)
	}
	if contentType != "image/png" {
		t.Fatalf("contentType = %q", contentType)
	}
}

func TestFetchRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(Resolver{}, 5*time.Second)
	_, _, err := fetcher.Fetch(context.Background(), server.URL+"/missing")
	if !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}

func TestFetchRejectsMalformedURL(t *testing.T) {
	fetcher := NewFetcher(Resolver{}, 5*time.Second)
	_, _, err := fetcher.Fetch(context.Background(), "://not-a-url")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDownloadWritesTempFileWithSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := NewFetcher(Resolver{}, 5*time.Second)
	path, contentType, err := fetcher.Download(context.Background(), server.URL+"/clips/talk.mp4", dir)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Fatalf("path = %q, want .mp4 suffix", path)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path = %q, want file under %q", path, dir)
	}
	if contentType != "video/mp4" {
		t.Fatalf("contentType = %q", contentType)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(payload) != "mp4-bytes" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestFetchRewritesObjectStoreURL(t *testing.T) {
	var seenHost string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHost = r.Host
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	internal := strings.TrimPrefix(server.URL, "http://")
	fetcher := NewFetcher(Resolver{InternalEndpoint: internal, RewritePort: 9000}, 5*time.Second)
	_, _, err := fetcher.Fetch(context.Background(), "http://public.example.com:9000/bucket/obj")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if seenHost != internal {
		t.Fatalf("request went to %q, want %q", seenHost, internal)
	}
}

package services_test

import (
	"context"
	"testing"

	"mediasift/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithPipeline(ctx, "video")
	ctx = services.WithRequestID(ctx, "req-7")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("job id = %q, ok=%v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcription" {
		t.Fatalf("stage = %q, ok=%v", stage, ok)
	}
	if kind, ok := services.PipelineFromContext(ctx); !ok || kind != "video" {
		t.Fatalf("pipeline = %q, ok=%v", kind, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-7" {
		t.Fatalf("request id = %q, ok=%v", rid, ok)
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage for empty value")
	}
}

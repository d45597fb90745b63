package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mediasift/internal/pipeline"
)

func TestRenderStatusLineFormatsLabelAndMessage(t *testing.T) {
	line := renderStatusLine("Verdict", statusOK, "safe", false)
	if !strings.Contains(line, "Verdict:") {
		t.Fatalf("missing label: %q", line)
	}
	if !strings.Contains(line, "[OK] safe") {
		t.Fatalf("missing status text: %q", line)
	}
	if strings.Contains(line, ansiGreen) {
		t.Fatalf("unexpected color codes without colorize: %q", line)
	}

	colored := renderStatusLine("Verdict", statusError, "unsafe", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected red wrapping: %q", colored)
	}
}

func TestStageDetailPrefersErrorThenReason(t *testing.T) {
	failed := pipeline.StageResult{Error: "boom", Data: map[string]any{"reason": "nope"}}
	if detail := stageDetail(failed); detail != "boom" {
		t.Fatalf("expected error detail, got %q", detail)
	}

	skipped := pipeline.StageResult{Data: map[string]any{"reason": "Skipped by request"}}
	if detail := stageDetail(skipped); detail != "Skipped by request" {
		t.Fatalf("expected reason detail, got %q", detail)
	}

	moderated := pipeline.StageResult{Data: map[string]any{"verdict": "safe"}}
	if detail := stageDetail(moderated); detail != "verdict: safe" {
		t.Fatalf("expected verdict detail, got %q", detail)
	}
}

func TestRenderVideoResultIncludesStagesAndSummary(t *testing.T) {
	duration := int64(125)
	now := time.Now().UTC()
	result := &pipeline.VideoResult{
		Pipeline:  "video",
		FileURL:   "http://storage.local/video.mp4",
		Verdict:   pipeline.VerdictSafe,
		IsSafe:    true,
		StartedAt: now,
		Stages: []pipeline.StageResult{
			{Stage: "transcription", Status: pipeline.StatusCompleted, DurationMS: &duration},
			{Stage: "text_moderation", Status: pipeline.StatusCompleted, Data: map[string]any{"verdict": "safe"}},
			{Stage: "summarization", Status: pipeline.StatusCompleted},
		},
		Summary:       &pipeline.SummarizationData{Summary: "Greeting.", Style: "brief"},
		Transcription: &pipeline.TranscriptionData{Text: "Hello world", Language: "en"},
	}

	out := &bytes.Buffer{}
	renderVideoResult(out, result)
	text := out.String()

	for _, want := range []string{"Video Pipeline", "transcription", "125 ms", "verdict: safe", "Greeting.", "English"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, text)
		}
	}
}

func TestRenderStageTableAlignsAndColors(t *testing.T) {
	duration := int64(42)
	stages := []pipeline.StageResult{
		{Stage: "transcription", Status: pipeline.StatusCompleted, DurationMS: &duration},
		{Stage: "summarization", Status: pipeline.StatusSkipped, Data: map[string]any{"reason": "Skipped by request"}},
	}

	plain := renderStageTable(stages, false)
	for _, want := range []string{"Stage", "42 ms", "Skipped by request", "completed", "skipped"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "\x1b[") {
		t.Fatalf("unexpected color codes without colorize:\n%s", plain)
	}

	colored := renderStageTable(stages, true)
	if !strings.Contains(colored, "\x1b[") {
		t.Fatalf("expected color codes with colorize:\n%s", colored)
	}
}

func TestRenderImageResultShowsReason(t *testing.T) {
	result := &pipeline.ImageResult{
		Pipeline: "image",
		Verdict:  pipeline.VerdictUnsafe,
		Stages: []pipeline.StageResult{
			{Stage: "download", Status: pipeline.StatusCompleted},
			{Stage: "image_moderation", Status: pipeline.StatusCompleted},
		},
		Moderation: &pipeline.ImageModerationData{IsSafe: false, Reason: "Depicts graphic violence."},
	}

	out := &bytes.Buffer{}
	renderImageResult(out, result)
	text := out.String()

	if !strings.Contains(text, "Depicts graphic violence.") {
		t.Fatalf("expected moderation reason in output:\n%s", text)
	}
	if !strings.Contains(text, "[ERROR] unsafe") {
		t.Fatalf("expected unsafe verdict line:\n%s", text)
	}
}

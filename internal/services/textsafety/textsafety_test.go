package textsafety

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"mediasift/internal/services/retry"
)

type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func fastRetry() retry.Options {
	return retry.Options{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleeper:     func(time.Duration) {},
	}
}

func newService(client *fakeClient) *Service {
	return NewService(Config{WarningThreshold: 0.5, UnsafeThreshold: 0.7}, client, nil, fastRetry())
}

const cleanResponse = `{
	"categories": {
		"Dangerous Content": {"violated": false, "confidence": 0.05},
		"Harassment": {"violated": false, "confidence": 0.1},
		"Hate Speech": {"violated": false, "confidence": 0.0},
		"Sexually Explicit": {"violated": false, "confidence": 0.0}
	},
	"explanation": "Benign greeting."
}`

func TestModerateCleanText(t *testing.T) {
	svc := newService(&fakeClient{responses: []string{cleanResponse}})

	result, err := svc.Moderate(context.Background(), "Hello world")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if result.Verdict != VerdictSafe || !result.IsSafe {
		t.Fatalf("result = %+v, want safe", result)
	}
	if len(result.FlaggedCategories) != 0 {
		t.Fatalf("FlaggedCategories = %v", result.FlaggedCategories)
	}
	if result.MaxScore != 0 {
		t.Fatalf("MaxScore = %v, want 0 (unviolated confidences ignored)", result.MaxScore)
	}
	if len(result.Categories) != 4 {
		t.Fatalf("Categories = %d, want 4", len(result.Categories))
	}
}

func TestModerateUnsafeText(t *testing.T) {
	svc := newService(&fakeClient{responses: []string{`{
		"categories": {
			"Dangerous Content": {"violated": true, "confidence": 0.9},
			"Harassment": {"violated": false, "confidence": 0.2},
			"Hate Speech": {"violated": false, "confidence": 0.0},
			"Sexually Explicit": {"violated": false, "confidence": 0.0}
		},
		"explanation": "Incites violence."
	}`}})

	result, err := svc.Moderate(context.Background(), "bad text")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if result.Verdict != VerdictUnsafe {
		t.Fatalf("Verdict = %q, want unsafe", result.Verdict)
	}
	if result.IsSafe {
		t.Fatal("IsSafe = true for unsafe verdict")
	}
	if result.MaxScore != 0.9 {
		t.Fatalf("MaxScore = %v", result.MaxScore)
	}
	if len(result.FlaggedCategories) != 1 || result.FlaggedCategories[0] != "Dangerous Content" {
		t.Fatalf("FlaggedCategories = %v", result.FlaggedCategories)
	}
	if result.Explanation != "Incites violence." {
		t.Fatalf("Explanation = %q", result.Explanation)
	}
}

func TestModerateWarningBand(t *testing.T) {
	svc := newService(&fakeClient{responses: []string{`{
		"categories": {
			"Dangerous Content": {"violated": false, "confidence": 0.0},
			"Harassment": {"violated": true, "confidence": 0.6},
			"Hate Speech": {"violated": false, "confidence": 0.0},
			"Sexually Explicit": {"violated": false, "confidence": 0.0}
		},
		"explanation": "Mildly abusive."
	}`}})

	result, err := svc.Moderate(context.Background(), "borderline")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if result.Verdict != VerdictWarning {
		t.Fatalf("Verdict = %q, want warning", result.Verdict)
	}
	if !result.IsSafe {
		t.Fatal("IsSafe = false, warning verdict should remain safe")
	}
}

func TestModerateEmptyTextSkipsClassifier(t *testing.T) {
	client := &fakeClient{responses: []string{cleanResponse}}
	svc := newService(client)

	result, err := svc.Moderate(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if result.Verdict != VerdictSafe || !result.IsSafe {
		t.Fatalf("result = %+v, want safe", result)
	}
	if client.calls != 0 {
		t.Fatalf("classifier called %d times for empty text", client.calls)
	}
}

func TestModerateFailsFastOnNonRetryableError(t *testing.T) {
	client := &fakeClient{
		errs:      []error{errors.New("bad request"), errors.New("bad request")},
		responses: []string{"", "", cleanResponse},
	}
	svc := newService(client)

	_, err := svc.Moderate(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1 (non-retryable error fails fast)", client.calls)
	}
}

func TestModerateRetriesTransientFailures(t *testing.T) {
	transient := &url.Error{Op: "Post", URL: "http://llm", Err: errors.New("connection reset")}
	client := &fakeClient{
		errs:      []error{transient, transient},
		responses: []string{"", "", cleanResponse},
	}
	svc := newService(client)

	result, err := svc.Moderate(context.Background(), "text")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
	if result.Verdict != VerdictSafe {
		t.Fatalf("Verdict = %q", result.Verdict)
	}
}

func TestModerateMissingCategoriesDefaultClean(t *testing.T) {
	svc := newService(&fakeClient{responses: []string{`{
		"categories": {
			"Harassment": {"violated": false, "confidence": 0.1}
		},
		"explanation": "ok"
	}`}})

	result, err := svc.Moderate(context.Background(), "text")
	if err != nil {
		t.Fatalf("Moderate() error = %v", err)
	}
	if len(result.Categories) != 4 {
		t.Fatalf("Categories = %d, want 4 with defaults filled in", len(result.Categories))
	}
	if result.Verdict != VerdictSafe {
		t.Fatalf("Verdict = %q", result.Verdict)
	}
}

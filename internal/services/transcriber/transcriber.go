package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	langpkg "mediasift/internal/language"
	"mediasift/internal/logging"
	"mediasift/internal/media"
	"mediasift/internal/services"
)

// ErrUnsupportedMedia marks inputs that are not audio or video content.
var ErrUnsupportedMedia = errors.New("unsupported media type")

const (
	defaultCommand        = "whisper"
	defaultModel          = "base"
	defaultFFprobeBinary  = "ffprobe"
	defaultTimeout        = 10 * time.Minute
	defaultDownloadWindow = 2 * time.Minute
)

// Config captures the runtime settings for the transcription service.
type Config struct {
	// Command is the whisper CLI binary.
	Command string
	// Model selects the whisper model size.
	Model string
	// FFprobeBinary probes media duration when whisper output lacks timing.
	FFprobeBinary string
	// TimeoutSeconds bounds a single transcription run.
	TimeoutSeconds int
	// DownloadSeconds bounds the media download.
	DownloadSeconds int
}

// Service downloads remote media and transcribes it with the whisper CLI.
type Service struct {
	cfg           Config
	fetcher       *media.Fetcher
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a transcription service.
func NewService(cfg Config, fetcher *media.Fetcher, logger *slog.Logger) *Service {
	if cfg.Command == "" {
		cfg.Command = defaultCommand
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = defaultFFprobeBinary
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger.With(logging.String(logging.FieldComponent, "transcriber")),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Word represents a single word with timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a timed span of transcript text.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Result contains the full transcription output.
type Result struct {
	Text            string
	Language        string
	DurationSeconds float64
	Segments        []Segment
	VTT             string
}

// Transcribe downloads the media at fileURL and runs whisper over it.
// languageHint, when recognized, is forwarded to whisper; otherwise the model
// auto-detects.
func (s *Service) Transcribe(ctx context.Context, fileURL, languageHint string) (Result, error) {
	var result Result
	if strings.TrimSpace(fileURL) == "" {
		return result, services.Wrap(services.ErrValidation, "transcription", "transcribe", "file url required", nil)
	}

	workDir, err := os.MkdirTemp("", "mediasift-transcribe-")
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "transcription", "transcribe", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	sourcePath, contentType, err := s.download(ctx, fileURL, workDir)
	if err != nil {
		return result, err
	}

	if !media.IsAudioVideo(sourcePath, contentType) {
		return result, services.Wrap(services.ErrValidation, "transcription", "transcribe",
			fmt.Sprintf("unsupported media type %q", contentType), ErrUnsupportedMedia)
	}

	runCtx := ctx
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	} else {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	args := s.buildArgs(sourcePath, workDir, languageHint)
	if _, err := s.run(runCtx, s.cfg.Command, args...); err != nil {
		return result, services.Wrap(services.ErrExternalService, "transcription", "whisper", "run transcription", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	jsonPath := filepath.Join(workDir, baseName+".json")
	payload, err := loadWhisperPayload(jsonPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, "transcription", "whisper", "read transcription output", err)
	}

	result.Text = strings.TrimSpace(payload.Text)
	if result.Text == "" {
		result.Text = joinSegmentText(payload.Segments)
	}
	result.Language = payload.Language
	result.Segments = payload.Segments
	result.DurationSeconds = lastSegmentEnd(payload.Segments)
	if result.DurationSeconds == 0 {
		if probed, err := s.probeDuration(ctx, sourcePath); err == nil {
			result.DurationSeconds = probed
		} else {
			s.logger.Warn("duration probe failed",
				logging.String(logging.FieldEventType, "ffprobe_failed"),
				logging.Error(err))
		}
	}
	result.VTT = buildVTT(payload.Segments)

	s.logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("language", result.Language),
		logging.Int("segments", len(result.Segments)),
		logging.Float64("duration_seconds", result.DurationSeconds))
	return result, nil
}

func (s *Service) download(ctx context.Context, fileURL, workDir string) (string, string, error) {
	downloadCtx := ctx
	window := defaultDownloadWindow
	if s.cfg.DownloadSeconds > 0 {
		window = time.Duration(s.cfg.DownloadSeconds) * time.Second
	}
	downloadCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	return s.fetcher.Download(downloadCtx, fileURL, workDir)
}

func (s *Service) buildArgs(source, outputDir, languageHint string) []string {
	args := []string{
		source,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if lang := langpkg.ToISO2(languageHint); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func (s *Service) probeDuration(ctx context.Context, source string) (float64, error) {
	output, err := s.run(ctx, s.cfg.FFprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		source,
	)
	if err != nil {
		return 0, err
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}
	return duration, nil
}

type whisperPayload struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadWhisperPayload(jsonPath string) (whisperPayload, error) {
	var payload whisperPayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisper json: %w", err)
	}
	return payload, nil
}

func joinSegmentText(segments []Segment) string {
	var parts []string
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func lastSegmentEnd(segments []Segment) float64 {
	var end float64
	for _, seg := range segments {
		if seg.End > end {
			end = seg.End
		}
	}
	return end
}

func buildVTT(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		sb.WriteString(vttTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(vttTimestamp(seg.End))
		sb.WriteString("\n")
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func vttTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	millis := int((seconds - float64(total)) * 1000)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}

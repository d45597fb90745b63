package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	WorkDir  string `toml:"work_dir"`
	LockPath string `toml:"lock_path"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// LLM contains shared connection settings for the chat-completions backend
// that powers text safety, image safety, and summarization.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcriber contains configuration for the local whisper transcription port.
type Transcriber struct {
	Command         string `toml:"command"`
	Model           string `toml:"model"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	DownloadSeconds int    `toml:"download_timeout_seconds"`
}

// TextSafety contains verdict thresholds for text moderation. Scores at or
// above UnsafeThreshold yield an unsafe verdict; at or above WarningThreshold
// a warning verdict. Both verdicts mark the content not safe.
type TextSafety struct {
	WarningThreshold float64 `toml:"warning_threshold"`
	UnsafeThreshold  float64 `toml:"unsafe_threshold"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
}

// ImageSafety contains configuration for the image moderation port.
type ImageSafety struct {
	DefaultLevel   string `toml:"default_level"`
	MaxImageBytes  int    `toml:"max_image_bytes"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Summarizer contains configuration for the summarization port.
type Summarizer struct {
	DefaultStyle   string `toml:"default_style"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Storage controls rewriting of external object-store URLs to the internal
// endpoint reachable from this process.
type Storage struct {
	InternalEndpoint string `toml:"internal_endpoint"`
	RewritePort      int    `toml:"rewrite_port"`
}

// Jobs contains configuration for the background job registry.
type Jobs struct {
	// MaxConcurrent bounds simultaneous pipeline runs; 0 means unlimited.
	MaxConcurrent int `toml:"max_concurrent"`
	// DatabasePath enables the durable SQLite job store when non-empty.
	DatabasePath string `toml:"database_path"`
}

// Retry contains bounded-attempt settings for external service calls.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediasift.
//
// Configuration sections by subsystem:
//   - Paths: directories, lock file, and API bind address
//   - LLM: shared chat-completions connection settings
//   - Transcriber: whisper command, model, and timeouts
//   - TextSafety: moderation verdict thresholds
//   - ImageSafety: moderation level and payload limits
//   - Summarizer: default style and timeout
//   - Storage: internal object-store URL rewriting
//   - Jobs: background job concurrency and optional durable store
//   - Retry: bounded-attempt settings for service calls
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	LLM         LLM         `toml:"llm"`
	Transcriber Transcriber `toml:"transcriber"`
	TextSafety  TextSafety  `toml:"text_safety"`
	ImageSafety ImageSafety `toml:"image_safety"`
	Summarizer  Summarizer  `toml:"summarizer"`
	Storage     Storage     `toml:"storage"`
	Jobs        Jobs        `toml:"jobs"`
	Retry       Retry       `toml:"retry"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediasift/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediasift.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

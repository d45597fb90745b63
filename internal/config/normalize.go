package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTranscriber()
	c.normalizeImageSafety()
	c.normalizeSummarizer()
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	c.normalizeRetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("MEDIASIFT_LLM_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.Command = strings.TrimSpace(c.Transcriber.Command)
	if c.Transcriber.Command == "" {
		c.Transcriber.Command = defaultWhisperCommand
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultWhisperModel
	}
	c.Transcriber.FFprobeBinary = strings.TrimSpace(c.Transcriber.FFprobeBinary)
	if c.Transcriber.FFprobeBinary == "" {
		c.Transcriber.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultTranscribeSeconds
	}
	if c.Transcriber.DownloadSeconds <= 0 {
		c.Transcriber.DownloadSeconds = defaultDownloadSeconds
	}
}

func (c *Config) normalizeImageSafety() {
	c.ImageSafety.DefaultLevel = strings.ToLower(strings.TrimSpace(c.ImageSafety.DefaultLevel))
	if c.ImageSafety.DefaultLevel == "" {
		c.ImageSafety.DefaultLevel = defaultImageLevel
	}
	if c.ImageSafety.MaxImageBytes <= 0 {
		c.ImageSafety.MaxImageBytes = defaultMaxImageBytes
	}
	if c.ImageSafety.TimeoutSeconds <= 0 {
		c.ImageSafety.TimeoutSeconds = defaultImageSafetySeconds
	}
}

func (c *Config) normalizeSummarizer() {
	c.Summarizer.DefaultStyle = strings.ToLower(strings.TrimSpace(c.Summarizer.DefaultStyle))
	if c.Summarizer.DefaultStyle == "" {
		c.Summarizer.DefaultStyle = defaultSummaryStyle
	}
	if c.Summarizer.TimeoutSeconds <= 0 {
		c.Summarizer.TimeoutSeconds = defaultSummarizerSeconds
	}
}

func (c *Config) normalizeJobs() error {
	if c.Jobs.MaxConcurrent < 0 {
		c.Jobs.MaxConcurrent = 0
	}
	path := strings.TrimSpace(c.Jobs.DatabasePath)
	if path == "" {
		c.Jobs.DatabasePath = ""
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("jobs.database_path: %w", err)
	}
	c.Jobs.DatabasePath = expanded
	return nil
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = defaultRetryBaseDelayMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"errors"
	"fmt"
)

var validImageLevels = map[string]struct{}{
	"strict":   {},
	"moderate": {},
	"lenient":  {},
}

var validSummaryStyles = map[string]struct{}{
	"brief":         {},
	"detailed":      {},
	"bullet_points": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTextSafety(); err != nil {
		return err
	}
	if err := c.validateImageSafety(); err != nil {
		return err
	}
	if err := c.validateSummarizer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTextSafety() error {
	if c.TextSafety.WarningThreshold < 0 || c.TextSafety.WarningThreshold > 1 {
		return errors.New("text_safety.warning_threshold must be between 0 and 1")
	}
	if c.TextSafety.UnsafeThreshold < 0 || c.TextSafety.UnsafeThreshold > 1 {
		return errors.New("text_safety.unsafe_threshold must be between 0 and 1")
	}
	if c.TextSafety.WarningThreshold > c.TextSafety.UnsafeThreshold {
		return errors.New("text_safety.warning_threshold must not exceed text_safety.unsafe_threshold")
	}
	return nil
}

func (c *Config) validateImageSafety() error {
	if _, ok := validImageLevels[c.ImageSafety.DefaultLevel]; !ok {
		return fmt.Errorf("image_safety.default_level must be strict, moderate, or lenient (got %q)", c.ImageSafety.DefaultLevel)
	}
	return nil
}

func (c *Config) validateSummarizer() error {
	if _, ok := validSummaryStyles[c.Summarizer.DefaultStyle]; !ok {
		return fmt.Errorf("summarizer.default_style must be brief, detailed, or bullet_points (got %q)", c.Summarizer.DefaultStyle)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.RewritePort < 0 || c.Storage.RewritePort > 65535 {
		return errors.New("storage.rewrite_port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "text", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
}

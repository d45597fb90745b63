package daemon

import (
	"time"

	"log/slog"

	"mediasift/internal/config"
	"mediasift/internal/media"
	"mediasift/internal/pipeline"
	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/llm"
	"mediasift/internal/services/retry"
	"mediasift/internal/services/summarizer"
	"mediasift/internal/services/textsafety"
	"mediasift/internal/services/transcriber"
)

// Pipelines bundles the fully wired orchestrators together with the shared
// LLM client used for health checks.
type Pipelines struct {
	Videos *pipeline.VideoOrchestrator
	Images *pipeline.ImageOrchestrator
	LLM    *llm.Client
}

// BuildPipelines wires the media fetcher, the LLM-backed services, and both
// orchestrators from configuration. Both the daemon and the in-process CLI
// commands compose through here so they never drift apart.
func BuildPipelines(cfg *config.Config, logger *slog.Logger) Pipelines {
	resolver := media.Resolver{
		InternalEndpoint: cfg.Storage.InternalEndpoint,
		RewritePort:      cfg.Storage.RewritePort,
	}
	fetcher := media.NewFetcher(resolver, time.Duration(cfg.Transcriber.DownloadSeconds)*time.Second)

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	retryOpts := retry.Options{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Logger:      logger,
	}

	transcripts := transcriber.NewService(transcriber.Config{
		Command:         cfg.Transcriber.Command,
		Model:           cfg.Transcriber.Model,
		FFprobeBinary:   cfg.Transcriber.FFprobeBinary,
		TimeoutSeconds:  cfg.Transcriber.TimeoutSeconds,
		DownloadSeconds: cfg.Transcriber.DownloadSeconds,
	}, fetcher, logger)

	textSafety := textsafety.NewService(textsafety.Config{
		WarningThreshold: cfg.TextSafety.WarningThreshold,
		UnsafeThreshold:  cfg.TextSafety.UnsafeThreshold,
		TimeoutSeconds:   cfg.TextSafety.TimeoutSeconds,
	}, client, logger, retryOpts)

	defaultStyle, _ := summarizer.ParseStyle(cfg.Summarizer.DefaultStyle, summarizer.StyleBrief)
	summaries := summarizer.NewService(summarizer.Config{
		DefaultStyle:   defaultStyle,
		TimeoutSeconds: cfg.Summarizer.TimeoutSeconds,
	}, client, logger, retryOpts)

	defaultLevel, _ := imagesafety.ParseLevel(cfg.ImageSafety.DefaultLevel, imagesafety.LevelModerate)
	imageSafety := imagesafety.NewService(imagesafety.Config{
		DefaultLevel:   defaultLevel,
		MaxImageBytes:  int64(cfg.ImageSafety.MaxImageBytes),
		TimeoutSeconds: cfg.ImageSafety.TimeoutSeconds,
	}, client, logger, retryOpts)

	images := pipeline.NewImageOrchestrator(fetcher, imageSafety, logger)
	videos := pipeline.NewVideoOrchestrator(transcripts, textSafety, summaries, images, logger)

	return Pipelines{Videos: videos, Images: images, LLM: client}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasift/internal/daemon"
	"mediasift/internal/pipeline"
	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/summarizer"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Run a pipeline synchronously in this process",
	}
	processCmd.AddCommand(newProcessVideoCommand(ctx))
	processCmd.AddCommand(newProcessImageCommand(ctx))
	return processCmd
}

func newProcessVideoCommand(ctx *commandContext) *cobra.Command {
	var language string
	var style string
	var skipModeration bool
	var skipSummary bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "video <url>",
		Short: "Transcribe, moderate, and summarize a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			summaryStyle, err := summarizer.ParseStyle(style, summarizer.Style(cfg.Summarizer.DefaultStyle))
			if err != nil {
				return err
			}

			pipelines := daemon.BuildPipelines(cfg, ctx.cliLogger())
			result, err := pipelines.Videos.Process(cmd.Context(), pipeline.VideoRequest{
				FileURL:        args[0],
				Language:       language,
				SummaryStyle:   summaryStyle,
				SkipModeration: skipModeration,
				SkipSummary:    skipSummary,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			renderVideoResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Language hint for transcription (name or ISO code)")
	cmd.Flags().StringVar(&style, "style", "", "Summary style: brief, detailed, or bullet_points")
	cmd.Flags().BoolVar(&skipModeration, "skip-moderation", false, "Skip the text moderation stage")
	cmd.Flags().BoolVar(&skipSummary, "skip-summary", false, "Skip the summarization stage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw result as JSON")
	return cmd
}

func newProcessImageCommand(ctx *commandContext) *cobra.Command {
	var level string
	var user string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "image <url>",
		Short: "Download and moderate an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			safetyLevel := imagesafety.Level(level)
			if level != "" {
				parsed, ok := imagesafety.ParseLevel(level, "")
				if !ok {
					return fmt.Errorf("unknown safety level %q (expected strict, moderate, or lenient)", level)
				}
				safetyLevel = parsed
			}

			pipelines := daemon.BuildPipelines(cfg, ctx.cliLogger())
			result, err := pipelines.Images.Process(cmd.Context(), pipeline.ImageRequest{
				FileURL:     args[0],
				SafetyLevel: safetyLevel,
				User:        user,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			renderImageResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Safety level: strict, moderate, or lenient")
	cmd.Flags().StringVar(&user, "user", "", "Requesting user recorded with the run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw result as JSON")
	return cmd
}

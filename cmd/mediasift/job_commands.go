package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediasift/internal/jobs"
	"mediasift/internal/pipeline"
	"mediasift/internal/services/imagesafety"
	"mediasift/internal/services/summarizer"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a pipeline run to the daemon for background processing",
	}
	submitCmd.AddCommand(newSubmitVideoCommand(ctx))
	submitCmd.AddCommand(newSubmitImageCommand(ctx))
	return submitCmd
}

func newSubmitVideoCommand(ctx *commandContext) *cobra.Command {
	var language string
	var style string
	var skipModeration bool
	var skipSummary bool

	cmd := &cobra.Command{
		Use:   "video <url>",
		Short: "Queue a video pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := client.submitVideo(cmd.Context(), pipeline.VideoRequest{
				FileURL:        args[0],
				Language:       language,
				SummaryStyle:   summarizer.Style(style),
				SkipModeration: skipModeration,
				SkipSummary:    skipSummary,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted video job %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Language hint for transcription (name or ISO code)")
	cmd.Flags().StringVar(&style, "style", "", "Summary style: brief, detailed, or bullet_points")
	cmd.Flags().BoolVar(&skipModeration, "skip-moderation", false, "Skip the text moderation stage")
	cmd.Flags().BoolVar(&skipSummary, "skip-summary", false, "Skip the summarization stage")
	return cmd
}

func newSubmitImageCommand(ctx *commandContext) *cobra.Command {
	var level string
	var user string

	cmd := &cobra.Command{
		Use:   "image <url>",
		Short: "Queue an image pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := client.submitImage(cmd.Context(), pipeline.ImageRequest{
				FileURL:     args[0],
				SafetyLevel: imagesafety.Level(level),
				User:        user,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted image job %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Safety level: strict, moderate, or lenient")
	cmd.Flags().StringVar(&user, "user", "", "Requesting user recorded with the run")
	return cmd
}

func newJobCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show the status of a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			job, err := client.job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for wait && !job.State.Terminal() {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(time.Second):
				}
				job, err = client.job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, job)
			}
			renderJob(cmd, job)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job reaches a terminal state")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw job record as JSON")
	return cmd
}

func renderJob(cmd *cobra.Command, job *jobs.Job) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Pipeline", statusInfo, string(job.Kind), colorize))
	fmt.Fprintln(out, renderStatusLine("State", jobStateKind(job.State), string(job.State), colorize))
	if job.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.Error, colorize))
	}
	if len(job.Result) == 0 {
		return
	}

	fmt.Fprintln(out)
	switch job.Kind {
	case jobs.KindVideo:
		var result pipeline.VideoResult
		if err := json.Unmarshal(job.Result, &result); err == nil {
			renderVideoResult(out, &result)
		}
	case jobs.KindImage:
		var result pipeline.ImageResult
		if err := json.Unmarshal(job.Result, &result); err == nil {
			renderImageResult(out, &result)
		}
	}
}

func jobStateKind(state jobs.State) statusKind {
	switch state {
	case jobs.StateCompleted:
		return statusOK
	case jobs.StateFailed:
		return statusError
	default:
		return statusInfo
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
			return nil
		},
	}
}

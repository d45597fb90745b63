package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
			fmt.Fprintln(out, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			if status.JobsDatabasePath != "" {
				fmt.Fprintln(out, renderStatusLine("Jobs database", statusInfo, status.JobsDatabasePath, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo,
				fmt.Sprintf("%d active, %d completed, %d failed", status.Jobs.Active, status.Jobs.Completed, status.Jobs.Failed), colorize))

			llmKind := statusWarn
			llmDetail := status.LLM.Detail
			switch {
			case status.LLM.Reachable:
				llmKind = statusOK
				llmDetail = "reachable"
			case !status.LLM.Configured:
				llmDetail = "api key not configured"
			}
			fmt.Fprintln(out, renderStatusLine("LLM backend", llmKind, llmDetail, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw status as JSON")
	return cmd
}

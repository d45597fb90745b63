package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mediasift/internal/pipeline"
)

// renderStageTable renders the per-stage breakdown of a pipeline run.
// The status cell is tinted by outcome when colorize is set.
func renderStageTable(stages []pipeline.StageResult, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Stage", "Status", "Duration", "Detail"})

	for _, stage := range stages {
		status := string(stage.Status)
		if colorize {
			if color := stageStatusColor(stage.Status); color != "" {
				status = color + status + ansiReset
			}
		}
		tw.AppendRow(table.Row{stage.Stage, status, stageDuration(stage), stageDetail(stage)})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func stageStatusColor(status pipeline.StageStatus) string {
	switch status {
	case pipeline.StatusCompleted:
		return ansiGreen
	case pipeline.StatusFailed:
		return ansiRed
	case pipeline.StatusSkipped:
		return ansiYellow
	default:
		return ansiBlue
	}
}

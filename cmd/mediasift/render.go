package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	langpkg "mediasift/internal/language"
	"mediasift/internal/pipeline"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func verdictKind(verdict pipeline.Verdict) statusKind {
	switch verdict {
	case pipeline.VerdictSafe:
		return statusOK
	case pipeline.VerdictUnsafe:
		return statusError
	default:
		return statusWarn
	}
}

func stageDuration(stage pipeline.StageResult) string {
	if stage.DurationMS == nil {
		return "-"
	}
	return fmt.Sprintf("%d ms", *stage.DurationMS)
}

func stageDetail(stage pipeline.StageResult) string {
	if stage.Error != "" {
		return stage.Error
	}
	if reason, ok := stage.Data["reason"].(string); ok && reason != "" {
		return reason
	}
	if verdict, ok := stage.Data["verdict"].(string); ok && verdict != "" {
		return "verdict: " + verdict
	}
	return ""
}

func renderVideoResult(w io.Writer, result *pipeline.VideoResult) {
	colorize := shouldColorize(w)
	for _, line := range renderSectionHeader("Video Pipeline", colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Verdict", verdictKind(result.Verdict), string(result.Verdict), colorize))
	fmt.Fprintln(w, renderStatusLine("Publishable", boolKind(result.Publishable()), yesNo(result.Publishable()), colorize))
	if result.Transcription != nil && result.Transcription.Language != "" {
		fmt.Fprintln(w, renderStatusLine("Language", statusInfo, langpkg.DisplayName(result.Transcription.Language), colorize))
	}
	if result.ShortCircuited {
		fmt.Fprintln(w, renderStatusLine("Short circuit", statusWarn, result.ShortCircuitReason, colorize))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderStageTable(result.Stages, colorize))
	if result.Summary != nil && result.Summary.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Summary (%s):\n%s\n", result.Summary.Style, result.Summary.Summary)
	}
}

func renderImageResult(w io.Writer, result *pipeline.ImageResult) {
	colorize := shouldColorize(w)
	for _, line := range renderSectionHeader("Image Pipeline", colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Verdict", verdictKind(result.Verdict), string(result.Verdict), colorize))
	fmt.Fprintln(w, renderStatusLine("Publishable", boolKind(result.Publishable()), yesNo(result.Publishable()), colorize))
	if result.Moderation != nil && result.Moderation.Reason != "" {
		fmt.Fprintln(w, renderStatusLine("Reason", statusInfo, result.Moderation.Reason, colorize))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderStageTable(result.Stages, colorize))
}

func boolKind(value bool) statusKind {
	if value {
		return statusOK
	}
	return statusError
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

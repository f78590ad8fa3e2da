package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/hashsweep/pkg/hashsweep/checker"
)

// PrettyFormatter renders the report with lipgloss boxes and colors.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if r.IsGenerate() {
		w.WriteString(f.formatSection("Unreadable files", checker.Unreadable, r.BadPaths))
	} else {
		w.WriteString(f.formatSection("Not found", checker.NotFound, r.MissingPaths))
		w.WriteString(f.formatMismatches(r))
		w.WriteString(f.formatSection("Malformed manifest lines", checker.Malformed, r.MalformedLines))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	title := "Verifying " + r.ManifestName()
	if r.IsGenerate() {
		title = "Generating " + r.ManifestName()
	}

	lines := []string{
		titleStyle.Render(title),
		fmt.Sprintf("%s %s", labelStyle.Render("Root:"), valueStyle.Render(r.Root)),
		fmt.Sprintf("%s %s", labelStyle.Render("Manifest:"), valueStyle.Render(r.Manifest)),
	}

	return headerBox.Render(strings.Join(lines, "\n"))
}

// formatSection lists paths under a styled title. Empty lists render nothing.
func (f *PrettyFormatter) formatSection(title string, outcome checker.Outcome, items []string) string {
	if len(items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(outcomeStyle(outcome).Bold(true).Render(fmt.Sprintf("%s (%d):", title, len(items))))
	sb.WriteString("\n")
	for _, item := range items {
		sb.WriteString("  ")
		sb.WriteString(pathStyle.Render(item))
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatMismatches lists failed files with their expected and actual digests.
func (f *PrettyFormatter) formatMismatches(r *Result) string {
	if len(r.Mismatches) == 0 {
		return f.formatSection("Failed verification", checker.Failed, r.FailedPaths)
	}

	var sb strings.Builder
	sb.WriteString(outcomeStyle(checker.Failed).Bold(true).Render(fmt.Sprintf("Failed verification (%d):", len(r.Mismatches))))
	sb.WriteString("\n")
	for _, m := range r.Mismatches {
		sb.WriteString("  ")
		sb.WriteString(pathStyle.Render(m.Path))
		sb.WriteString("\n    ")
		sb.WriteString(labelStyle.Render("expected "))
		sb.WriteString(digestStyle.Render(m.Expected))
		sb.WriteString("\n    ")
		sb.WriteString(labelStyle.Render("actual   "))
		sb.WriteString(digestStyle.Render(m.Actual))
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatFooter builds the totals box.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	if r.IsGenerate() {
		parts = append(parts,
			count("Hashed:", r.Good, checker.Hashed),
			count("Unreadable:", r.Bad, checker.Unreadable))
	} else {
		parts = append(parts,
			count("Verified:", r.Verified, checker.Verified),
			count("Failed:", r.Failed, checker.Failed),
			count("Not found:", r.NotFound, checker.NotFound))
		if r.Malformed > 0 {
			parts = append(parts, count("Malformed:", r.Malformed, checker.Malformed))
		}
	}

	parts = append(parts,
		fmt.Sprintf("%s %s", labelStyle.Render("Read:"), valueStyle.Render(humanize.IBytes(uint64(r.BytesHashed)))),
		fmt.Sprintf("%s %s", labelStyle.Render("Time:"), labelStyle.Render(formatDuration(r.Duration.Seconds()))))

	return totalsBox.Render(strings.Join(parts, "  "))
}

// count renders a label and number, colored by outcome only when n is
// non-zero.
func count(label string, n int, outcome checker.Outcome) string {
	value := labelStyle.Render(fmt.Sprintf("%d", n))
	if n > 0 {
		value = outcomeStyle(outcome).Render(fmt.Sprintf("%d", n))
	}
	return fmt.Sprintf("%s %s", labelStyle.Render(label), value)
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)

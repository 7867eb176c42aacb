// Package report renders a per-run markdown report covering meeting
// outcomes and inference usage.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/mwhitby/summit/internal/meeting"
	"github.com/mwhitby/summit/internal/usage"
)

// Build renders the run report as markdown
func Build(run *meeting.RunSummary, snap usage.Snapshot, modelID string) string {
	var b strings.Builder

	b.WriteString("# Processing Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Model: `%s`\n\n", modelID)

	var succeeded, failed, skipped int
	for _, r := range run.Results {
		switch r.Status {
		case meeting.StatusSuccess:
			succeeded++
		case meeting.StatusSkipped:
			skipped++
		default:
			failed++
		}
	}

	b.WriteString("## Meetings\n\n")
	fmt.Fprintf(&b, "- Total: %d\n", len(run.Results))
	fmt.Fprintf(&b, "- Succeeded: %d\n", succeeded)
	fmt.Fprintf(&b, "- Failed: %d\n", failed)
	fmt.Fprintf(&b, "- Skipped: %d\n", skipped)
	if run.Cancelled {
		b.WriteString("- Run was cancelled before completion\n")
	}
	b.WriteString("\n")

	b.WriteString("| Meeting | Status | Duration | Keyframes | Detail |\n")
	b.WriteString("|---------|--------|----------|-----------|--------|\n")
	for _, r := range run.Results {
		detail := "-"
		if r.Err != nil {
			detail = r.Err.Error()
			if r.ErrorKind != "" {
				detail = fmt.Sprintf("%s (%s)", detail, r.ErrorKind)
			}
			if r.Partial {
				detail += ", partial"
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			r.Meeting.Name, r.Status, formatDuration(r.Duration), len(r.Keyframes), detail)
	}
	b.WriteString("\n")

	b.WriteString("## Global Summary\n\n")
	switch {
	case run.GlobalErr != nil:
		fmt.Fprintf(&b, "Failed: %s\n\n", run.GlobalErr)
	case run.GlobalPath != "":
		fmt.Fprintf(&b, "Written to `%s`\n\n", run.GlobalPath)
	default:
		b.WriteString("Not generated\n\n")
	}

	b.WriteString("## Inference Usage\n\n")
	fmt.Fprintf(&b, "- Calls: %d (%d succeeded, %d failed)\n", snap.Calls, snap.Succeeded, snap.Failed)
	fmt.Fprintf(&b, "- Retries: %d\n", snap.Retries)
	fmt.Fprintf(&b, "- Input tokens: %d\n", snap.InputTokens)
	fmt.Fprintf(&b, "- Output tokens: %d\n", snap.OutputTokens)
	fmt.Fprintf(&b, "- Total tokens: %d\n", snap.TotalTokens())
	if snap.Calls > 0 {
		fmt.Fprintf(&b, "- Latency: avg %s, min %s, max %s\n",
			formatDuration(snap.AvgLatency()), formatDuration(snap.MinLatency), formatDuration(snap.MaxLatency))
	}
	if snap.CostEstimated {
		fmt.Fprintf(&b, "- Estimated cost: $%.4f\n", snap.EstimatedCost)
	} else {
		b.WriteString("- Estimated cost: not available (no pricing configured)\n")
	}
	fmt.Fprintf(&b, "- Session duration: %s\n", formatDuration(snap.SessionDuration))

	return b.String()
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond * 10).String()
}

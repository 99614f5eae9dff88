package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as Markdown. The row table shows the
// last recent rows; recent <= 0 shows all of them.
func RenderMarkdown(r *Report, recent int) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Profile Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Run
	if run := r.Run; run != nil {
		sb.WriteString("## Run\n\n")
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", run.RunID))
		sb.WriteString(fmt.Sprintf("| Symbol | %s |\n", run.Symbol))
		sb.WriteString(fmt.Sprintf("| Range (ms) | %d .. %d |\n", run.FromMs, run.ToMs))
		sb.WriteString(fmt.Sprintf("| Window | %d |\n", run.WindowSize))
		sb.WriteString(fmt.Sprintf("| Bins | %d |\n", run.Bins))
		sb.WriteString(fmt.Sprintf("| Center Labels | %t |\n", run.CenterLabel))
		sb.WriteString(fmt.Sprintf("| Round | %d |\n", run.Round))
		sb.WriteString(fmt.Sprintf("| Status | %s |\n", run.Status))
		sb.WriteString("\n")
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	if r.Summary.Rows == 0 {
		sb.WriteString("No rows stored.\n")
		return sb.String()
	}
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", r.Summary.Rows))
	sb.WriteString(fmt.Sprintf("| First Timestamp (ms) | %d |\n", r.Summary.FirstTimestampMs))
	sb.WriteString(fmt.Sprintf("| Last Timestamp (ms) | %d |\n", r.Summary.LastTimestampMs))
	sb.WriteString(fmt.Sprintf("| Mean Window Volume | %.4f |\n", r.Summary.MeanWindowVolume))
	sb.WriteString("\n")

	// Point of control
	sb.WriteString("## Point of Control\n\n")
	if r.POC.Rows == 0 {
		sb.WriteString("No row has a defined point of control.\n\n")
	} else {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Min | %.4f |\n", r.POC.Min))
		sb.WriteString(fmt.Sprintf("| Max | %.4f |\n", r.POC.Max))
		sb.WriteString(fmt.Sprintf("| Mean | %.4f |\n", r.POC.Mean))
		sb.WriteString(fmt.Sprintf("| Mode | %.4f (%d rows) |\n", r.POC.Mode, r.POC.ModeCount))
		sb.WriteString(fmt.Sprintf("| Mean Volume Share | %.4f |\n", r.POC.MeanShare))
		sb.WriteString(fmt.Sprintf("| Shifts | %d |\n", r.POC.Shifts))
		sb.WriteString("\n")
	}

	// Rows
	track := r.Track
	if recent > 0 && len(track) > recent {
		track = track[len(track)-recent:]
		sb.WriteString(fmt.Sprintf("## Last %d Rows\n\n", recent))
	} else {
		sb.WriteString("## Rows\n\n")
	}
	sb.WriteString("| Timestamp (ms) | Position | POC | POC Volume | Window Volume | Share |\n")
	sb.WriteString("|----------------|----------|-----|------------|---------------|-------|\n")
	for _, s := range track {
		sb.WriteString(fmt.Sprintf("| %d | %d | %.4f | %.4f | %.4f | %.4f |\n",
			s.TimestampMs, s.Position, s.POC, s.POCVolume, s.WindowVolume, s.Share))
	}

	return sb.String()
}

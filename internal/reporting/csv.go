package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the point-of-control track as CSV string.
func RenderCSV(track []RowSummary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("timestamp_ms,position,poc,poc_volume,window_volume,share\n")

	// Rows
	for _, s := range track {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			s.TimestampMs,
			s.Position,
			s.POC,
			s.POCVolume,
			s.WindowVolume,
			s.Share,
		))
	}

	return sb.String()
}

package stats

import (
	"fmt"
	"strconv"
	"strings"
)

// CSVHeader is the long-format header shared by the CSV and Excel
// reports. The timestamp field is empty for whole-series rows.
var CSVHeader = []string{
	"timestamp", "variable", "count", "mean", "std", "min",
	"p05", "p25", "median", "p75", "p95", "max", "missing",
}

// Records converts summaries to CSV records in long format.
func Records(summaries []Summary) [][]string {
	out := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		ts := ""
		if s.Timestamp != nil {
			ts = s.Timestamp.Format("2006-01-02 15:04:05")
		}
		out = append(out, []string{
			ts,
			s.Variable,
			strconv.Itoa(s.Count),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.Min),
			formatFloat(s.P05),
			formatFloat(s.P25),
			formatFloat(s.Median),
			formatFloat(s.P75),
			formatFloat(s.P95),
			formatFloat(s.Max),
			strconv.Itoa(s.Missing),
		})
	}
	return out
}

// FormatText renders summaries as a readable report, grouping by time
// bin when the summaries carry one.
func FormatText(summaries []Summary) string {
	var b strings.Builder
	byTime := len(summaries) > 0 && summaries[0].Timestamp != nil
	if byTime {
		b.WriteString("Descriptive Statistics by Time\n")
		b.WriteString("==============================\n\n")
	} else {
		b.WriteString("Descriptive Statistics\n")
		b.WriteString("======================\n\n")
	}

	lastTime := ""
	for _, s := range summaries {
		if byTime {
			ts := s.Timestamp.Format("2006-01-02 15:04:05")
			if ts != lastTime {
				if lastTime != "" {
					b.WriteString("\n")
				}
				fmt.Fprintf(&b, "Time: %s\n", ts)
				b.WriteString(strings.Repeat("-", 50) + "\n")
				lastTime = ts
			}
			fmt.Fprintf(&b, "  Variable: %s\n  ", s.Variable)
		} else {
			fmt.Fprintf(&b, "Variable: %s\n", s.Variable)
		}
		fmt.Fprintf(&b,
			"count=%d mean=%.3f std=%.3f min=%.3f p05=%.3f p25=%.3f median=%.3f p75=%.3f p95=%.3f max=%.3f missing=%d\n",
			s.Count, s.Mean, s.Std, s.Min, s.P05, s.P25, s.Median, s.P75, s.P95, s.Max, s.Missing)
		if !byTime {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

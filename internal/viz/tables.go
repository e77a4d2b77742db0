package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/capsim/internal/cache"
	"github.com/san-kum/capsim/internal/plotting"
)

// newTable right-aligns the columns from index numeric on.
func newTable(numeric int, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col >= numeric {
				return s.Align(lipgloss.Right)
			}
			return s
		})
}

// SolveTimeTable shows one row per variant and one column per grid size.
func SolveTimeTable(timings []plotting.Timing) string {
	if len(timings) == 0 {
		return ""
	}
	headers := []string{"model"}
	for _, n := range timings[0].Npts {
		headers = append(headers, fmt.Sprintf("npts=%g", n))
	}

	t := newTable(1, headers...)
	for _, tm := range timings {
		row := []string{tm.Variant.Name}
		for _, s := range tm.Seconds {
			row = append(row, formatDuration(s))
		}
		t.Row(row...)
	}
	return Title.Render("Solve time") + "\n" + t.String()
}

// ErrorTable shows the RMSE and maximum of each variant's voltage error.
func ErrorTable(summary []plotting.ErrorSummary) string {
	if len(summary) == 0 {
		return ""
	}
	t := newTable(2, "C-rate", "model", "RMSE [V]", "max [V]")
	for _, s := range summary {
		t.Row(fmt.Sprintf("%g C", s.Param), s.Variant.Name, formatValue(s.RMSE), formatValue(s.Max))
	}
	return Title.Render("Voltage error against the direct formulation") + "\n" + t.String()
}

// CacheTable lists cache entries, oldest first.
func CacheTable(dir string, metas []cache.Meta) string {
	if len(metas) == 0 {
		return Subtle.Render(fmt.Sprintf("no cache entries in %s", dir))
	}
	t := newTable(4, "name", "created", "fingerprint", "id")
	for _, m := range metas {
		t.Row(m.Name, m.CreatedAt.Local().Format(time.DateTime), m.Fingerprint, m.ID.String())
	}
	return Title.Render("Cache "+dir) + "\n" + t.String()
}

// Summary renders labelled values on one line.
func Summary(pairs ...string) string {
	var sb strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(MetricLabel.Render(pairs[i] + ":"))
		sb.WriteString(" ")
		sb.WriteString(MetricValue.Render(pairs[i+1]))
	}
	return sb.String()
}

func formatDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Microsecond).String()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3e", v)
}

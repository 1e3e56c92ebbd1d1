package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"nourish/models"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func heading(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf(format, args...)))
}

func newTable(w io.Writer, columns ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	return tw
}

func macroCells(m models.Macros) string {
	return fmt.Sprintf("%.0f\t%.1f\t%.1f\t%.1f\t%.1f", m.Calories, m.Protein, m.Carbs, m.Fat, m.Fiber)
}

var macroColumns = []string{"CAL", "PROTEIN", "CARBS", "FAT", "FIBER"}

// addDateFlag registers --date defaulting to today.
func addDateFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "date", "d", models.FormatDate(time.Now()), "day in YYYY-MM-DD format")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + dimStyle.Render(strings.Repeat("░", width-filled))
}

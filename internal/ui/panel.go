package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada-remote/internal/model"
)

// DateLayout is how creation dates are shown next to a todo.
const DateLayout = "2006-01-02 15:04"

// UnknownDate replaces the date of a todo whose id carries no timestamp.
const UnknownDate = "unknown date"

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if vis := lipgloss.Width(ln); vis > maxw {
			maxw = vis
		}
	}
	pad := func(s string) string {
		if vis := lipgloss.Width(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(w, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(w, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(w, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Date formats the creation instant decoded from a todo id in local time.
func Date(id string) string {
	ts, err := model.CreatedAt(id)
	if err != nil {
		return UnknownDate
	}
	return ts.In(time.Local).Format(DateLayout)
}

// Box returns the themed checkbox for a status.
func Box(s model.Status) string {
	t := Current()
	if s == model.StatusCompleted {
		return C(t.Success, t.BoxChecked)
	}
	return C(t.Pending, t.BoxUnchecked)
}

// TodoLine renders one numbered row: index, box, description, muted date.
func TodoLine(index int, td model.Todo) string {
	t := Current()
	desc := td.Description
	if td.Done() {
		desc = C(t.Muted, desc)
	}
	return fmt.Sprintf("%s %s %s  %s", C(t.Accent, fmt.Sprintf("%2d.", index)), Box(td.Status), desc, C(t.Muted, Date(td.ID)))
}

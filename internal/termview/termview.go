// Package termview renders phase readouts for a terminal: the region at a
// point and a bar chart of relative phase amounts.
package termview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/talgya/phase-lever/internal/phase"
)

// Phase colors, matching the interactive diagram.
var (
	ColorLiquid = lipgloss.Color("#D62828") // red
	ColorTi     = lipgloss.Color("#1D4ED8") // blue
	ColorTiU2   = lipgloss.Color("#2E8B57") // green
	ColorU      = lipgloss.Color("#8B5A2B") // brown
	ColorMixed  = lipgloss.Color("#960096") // purple, two-phase marker
	ColorMuted  = lipgloss.Color("#6B7280")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// DefaultBarWidth is the number of cells a fraction of 1 fills.
const DefaultBarWidth = 30

// Readout is everything shown for one point.
type Readout struct {
	X       float64
	T       float64
	Kind    string // "single-phase" or "two-phase"
	Region  string
	Amounts phase.Amounts
}

// bar is one row of the chart.
type bar struct {
	label string
	color lipgloss.Color
	value float64
}

func bars(a phase.Amounts) []bar {
	return []bar{
		{"liquid", ColorLiquid, a.Liquid},
		{"Ti(s)", ColorTi, a.Ti},
		{"TiU₂(s)", ColorTiU2, a.TiU2},
		{"U(s)", ColorU, a.U},
	}
}

// Number formats a value rounded to at most digits decimals (up to 6),
// trailing zeros dropped.
func Number(v float64, digits int) string {
	// FtoaWithDigits truncates, so round first.
	p := math.Pow10(digits)
	return humanize.FtoaWithDigits(math.Round(v*p)/p, digits)
}

// RegionColor picks the marker color the diagram uses for a region.
func RegionColor(kind, region string) lipgloss.Color {
	if kind == "two-phase" {
		return ColorMixed
	}
	switch region {
	case "Ti":
		return ColorTi
	case "TiU2":
		return ColorTiU2
	case "U":
		return ColorU
	}
	return ColorLiquid
}

// BarCells returns how many cells a fraction fills at the given width.
func BarCells(v float64, width int) int {
	n := int(math.Round(v * float64(width)))
	return max(0, min(n, width))
}

// Render draws the readout inside a box.
func Render(r Readout, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("x_U = %s   T = %s °C", Number(r.X, 3), Number(r.T, 1))))
	b.WriteString("\n")
	regionStyle := lipgloss.NewStyle().Bold(true).Foreground(RegionColor(r.Kind, r.Region))
	b.WriteString(mutedStyle.Render(r.Kind) + "  " + regionStyle.Render(r.Region))
	b.WriteString("\n\n")

	labelWidth := 0
	rows := bars(r.Amounts)
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.label))
	}

	for _, row := range rows {
		cells := BarCells(row.value, width)
		label := row.label + strings.Repeat(" ", labelWidth-lipgloss.Width(row.label))
		filled := lipgloss.NewStyle().Foreground(row.color).Render(strings.Repeat("█", cells))
		empty := mutedStyle.Render(strings.Repeat("·", width-cells))
		fmt.Fprintf(&b, "%s  %s%s  %s\n", label, filled, empty, Number(row.value, 3))
	}

	if r.Amounts.Liquid > 0 && r.Amounts.LiquidComposition != nil {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("liquid x_U = " + fmt.Sprintf("%.2f", *r.Amounts.LiquidComposition)))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// TransitionLine formats one region change on a cooling path.
func TransitionLine(t float64, from, to string) string {
	return fmt.Sprintf("%s °C  %s → %s", Number(t, 2), from, titleStyle.Render(to))
}

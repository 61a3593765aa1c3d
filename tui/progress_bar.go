package tui

import "strings"

type ProgressBar struct {
	str string

	// what ascii to show in progress ProgressBar
	// ░░░░▓▓▓▓▓▓
	// where ░ is ASCIICompleted and ▓ is ASCIINotCompleted
	ASCIICompleted    string
	ASCIINotCompleted string
}

func NewProgressBar() *ProgressBar {
	return &ProgressBar{
		ASCIICompleted:    "░",
		ASCIINotCompleted: "▓",
	}
}

func (p *ProgressBar) View() string {
	return p.str
}

// Update redraws the bar for a terminal of the given width. Positions are in seconds.
func (p *ProgressBar) Update(width int, current, total float64) {
	barWidth := width - 10
	if barWidth <= 0 {
		p.str = ""
		return
	}

	ratio := 0.0
	if total > 0 {
		ratio = min(max(current/total, 0), 1)
	}
	done := int(ratio * float64(barWidth))

	var b strings.Builder
	b.WriteString(strings.Repeat(p.ASCIICompleted, done))
	b.WriteString(strings.Repeat(p.ASCIINotCompleted, barWidth-done))
	p.str = b.String()
}

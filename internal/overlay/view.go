package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	fillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	rangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const barWidth = 40

// RenderView draws the mounted overlay tree as a terminal block. A hidden or
// unmounted overlay renders as a short placeholder line.
func (c *Controller) RenderView() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == nil {
		return hintStyle.Render("overlay not mounted")
	}
	if c.root.Hidden {
		return hintStyle.Render("overlay hidden (press h to show)")
	}

	var b strings.Builder

	if rng := c.root.Find(NodeRangeLabel); rng != nil {
		b.WriteString(rangeStyle.Render(rng.Text))
		b.WriteString("\n")
	}
	if fill := c.root.Find(NodeBarFill); fill != nil {
		b.WriteString(renderBar(fill.Width))
		b.WriteString("\n")
	}
	if label := c.root.Find(NodeBarLabel); label != nil {
		b.WriteString(labelStyle.Render(label.Text))
	}

	if bar := c.root.Find(NodeCountdownBar); bar != nil && !bar.Hidden {
		b.WriteString("\n\n")
		if fill := c.root.Find(NodeCountdownFill); fill != nil {
			b.WriteString(renderBar(fill.Width))
			b.WriteString("\n")
		}
		if label := c.root.Find(NodeCountdownLabel); label != nil {
			if label.Text == "Done" {
				b.WriteString(doneStyle.Render("countdown complete"))
			} else {
				b.WriteString(labelStyle.Render("countdown " + label.Text))
			}
		}
	}

	return frameStyle.Render(b.String())
}

func renderBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * barWidth)
	return fillStyle.Render(strings.Repeat("█", filled)) +
		trackStyle.Render(strings.Repeat("░", barWidth-filled))
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ascend/internal/storage"
)

// Ascend CLI theme. Reusable styles and a few emojis; nothing stateful.

const (
	IconQuest   = "🗺️"
	IconSparkle = "✨"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconShield  = "🛡️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
	IconSync    = "🔁"
	IconFire    = "🔥"
	IconSkull   = "💀"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
	BadgeLocked  = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("🔒 locked")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// ValidationText renders a quest's GM validation status.
func ValidationText(status string) string {
	switch status {
	case storage.ValidationValidated:
		return Good.Render("validated")
	case storage.ValidationQueued:
		return Warn.Render("queued")
	case storage.ValidationRejected:
		return Bad.Render("rejected")
	default:
		return Muted.Render(status)
	}
}

// BurnoutText colors a burnout bucket name.
func BurnoutText(risk string) string {
	switch risk {
	case "Low":
		return Good.Render(risk)
	case "Medium":
		return Warn.Render(risk)
	default:
		return Bad.Render(risk)
	}
}

// Difficulty renders a 1..5 difficulty as filled and empty pips.
func Difficulty(d int) string {
	if d < 0 {
		d = 0
	}
	if d > 5 {
		d = 5
	}
	return Gold.Render(strings.Repeat("●", d)) + Muted.Render(strings.Repeat("○", 5-d))
}

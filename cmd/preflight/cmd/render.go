package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JaimeStill/preflight/internal/rules"
	"github.com/JaimeStill/preflight/internal/validation"
)

var (
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#9CA3AF")

	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	badgeStyle = lipgloss.NewStyle().Bold(true).Width(12)
	nameStyle  = lipgloss.NewStyle().Width(26)
)

func statusBadge(s rules.Status) string {
	var color lipgloss.Color
	switch s {
	case rules.StatusPassed:
		color = colorSuccess
	case rules.StatusFailed:
		color = colorError
	case rules.StatusValidating:
		color = colorInfo
	default:
		color = colorMuted
	}
	return badgeStyle.Foreground(color).Render(strings.ToUpper(string(s)))
}

func renderCatalog(w io.Writer, defs []rules.Definition) {
	fmt.Fprintln(w, titleStyle.Render("Validation rules"))
	for _, d := range defs {
		fmt.Fprintf(w, "  %s %s\n", nameStyle.Render(string(d.ID)), d.Name)
		fmt.Fprintf(w, "  %s %s\n", nameStyle.Render(""), mutedStyle.Render(d.Description))
	}
}

func renderRules(w io.Writer, rs []rules.Rule) {
	for _, r := range rs {
		fmt.Fprintf(w, "  %s %s\n", statusBadge(r.Status), nameStyle.Render(r.Name))
		switch {
		case r.ErrorDetails != "":
			fmt.Fprintf(w, "  %s %s\n", badgeStyle.Render(""), errorStyle.UnsetBold().Render(r.ErrorDetails))
		case r.Details != "":
			fmt.Fprintf(w, "  %s %s\n", badgeStyle.Render(""), mutedStyle.Render(r.Details))
		}
	}
}

func renderSummary(w io.Writer, s validation.Summary) {
	var verdict string
	switch {
	case s.Failed > 0:
		verdict = lipgloss.NewStyle().Foreground(colorError).Bold(true).
			Render(fmt.Sprintf("%d issue(s) found", s.Failed))
	case s.Complete():
		verdict = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).
			Render("All validations passed")
	default:
		verdict = lipgloss.NewStyle().Foreground(colorWarning).Bold(true).
			Render("Validation incomplete")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, verdict)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf(
		"%d passed, %d failed, %d pending of %d rules",
		s.Passed, s.Failed, s.Pending+s.Validating, s.Total,
	)))
}

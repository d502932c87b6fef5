package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/synapse/pkg/brain"
	"github.com/entrhq/synapse/pkg/persona"
)

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	coralPink   = lipgloss.Color("#FFCCCB")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	userStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	responseStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	signalBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)

	signalTitleStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Bold(true)
)

// renderSignals writes one box per stage in graph order.
func renderSignals(w io.Writer, res *brain.Result) {
	for _, id := range brain.StageIDs() {
		sig, ok := res.Signals[id]
		if !ok {
			continue
		}
		title := signalTitleStyle.Render(fmt.Sprintf("%s · %s", sig.Name, sig.Role))
		fmt.Fprintln(w, signalBoxStyle.Render(title+"\n"+strings.TrimSpace(sig.Output)))
	}
}

// renderResult writes the final response and any commit warning.
func renderResult(w io.Writer, res *brain.Result, signals bool) {
	if signals {
		renderSignals(w, res)
	}
	fmt.Fprintln(w, headerStyle.Render("Brain:"), responseStyle.Render(strings.TrimSpace(res.FinalOutput)))
	if res.CommitErr != nil {
		fmt.Fprintln(w, errorStyle.Render("warning: exchange not saved to long-term memory: "+res.CommitErr.Error()))
	}
	fmt.Fprintln(w, tipsStyle.Render(fmt.Sprintf("run %s · %s", res.RunID, res.Duration.Round(time.Millisecond))))
}

// renderPersonas lists a persona registry in file order.
func renderPersonas(w io.Writer, r *persona.Registry) {
	fmt.Fprintln(w, headerStyle.Render("Available personas"))
	for _, p := range r.List() {
		line := fmt.Sprintf("  %-12s %s %s", p.ID, p.Emoji, p.Name)
		if p.Category != "" {
			line += tipsStyle.Render(" (" + p.Category + ")")
		}
		fmt.Fprintln(w, line)
	}
}

func renderError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("error: "+err.Error()))
}

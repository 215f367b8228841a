package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"quill/tools"
)

// confirmState is the pending confirmation gate: the request being shown and
// the rendezvous the gateway goroutine is blocked on. Exactly one can be
// active; tool calls are sequential.
type confirmState struct {
	req  tools.ConfirmRequest
	conf *tools.Confirmation
}

func renderConfirmModal(state *confirmState, width, height int) string {
	modalWidth := 70
	if width < modalWidth+10 {
		modalWidth = width - 10
	}

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(warningColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Confirm: " + state.req.ToolName)

	bodyStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)

	var bodyLines []string
	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))
	for _, line := range strings.Split(state.req.Proposal, "\n") {
		bodyLines = append(bodyLines, bodyStyle.Render(line))
	}
	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))
	bodyLines = append(bodyLines, bodyStyle.Render(DimStyle.Render("Rule subject: "+state.req.Subject)))
	if pattern := tools.GeneralizePattern(state.req.Subject); pattern != state.req.Subject {
		bodyLines = append(bodyLines, bodyStyle.Render(DimStyle.Render("Rule pattern: "+pattern)))
	}
	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))

	bodySection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth).
		Render(strings.Join(bodyLines, "\n"))

	footer := FormatFooter("y", "Yes", "n", "No", "a", "Always", "A", "Always pattern", "d", "Never", "D", "Never pattern", "Esc", "Cancel")
	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	content := strings.Join([]string{titleSection, bodySection, footerSection}, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

package ui

import (
	"fmt"
	"strings"

	"quill/model"
)

// buildTranscript renders the entry list into viewport content. spin is the
// current spinner frame, used for entries still waiting on output.
func buildTranscript(order []string, entries map[string]entry, spin string) string {
	if len(order) == 0 {
		return DimStyle.Render("No messages yet. Type below and press Enter.")
	}

	var b strings.Builder
	lastGroup := ""

	for _, id := range order {
		e, ok := entries[id]
		if !ok {
			continue
		}

		if e.group != lastGroup {
			if e.group != "" {
				b.WriteString(DimStyle.Render("╭─ "+e.group) + "\n")
			}
			lastGroup = e.group
		}

		text := formatEntry(e, spin)
		if e.group != "" {
			text = indentGroup(text)
		}
		b.WriteString(text)
	}

	return b.String()
}

func formatEntry(e entry, spin string) string {
	timestamp := DimStyle.Render(e.timestamp.Format("[15:04]"))

	switch e.role {
	case model.RoleUser:
		return formatUserEntry(timestamp, e.content)

	case model.RoleAssistant:
		body := e.rendered
		if body == "" {
			body = e.content
		}
		if e.streaming {
			if body == "" {
				body = spin
			} else {
				body = e.content + "▋"
			}
		}
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), body)

	case model.RoleThinking:
		header := DimStyle.Render("Thinking")
		if e.streaming {
			header = DimStyle.Render("Thinking " + spin)
		}
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, header, DimStyle.Italic(true).Render(reasoningTail(e.reasoning)))

	case model.RoleTool:
		return formatToolEntry(timestamp, e, spin)

	case model.RoleError:
		body := e.content
		if e.details != "" {
			body += "\n" + DimStyle.Render(e.details)
		}
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, ErrorStyle.Render("Error"), body)

	default:
		return fmt.Sprintf("%s %s\n%s\n\n", timestamp, DimStyle.Render("System"), e.content)
	}
}

// formatUserEntry prefixes each line with a bold green bar, the transcript's
// visual anchor for turn boundaries.
func formatUserEntry(timestamp, content string) string {
	bar := "\x1b[32;1m┃\x1b[0m"

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, UserStyle.Render("You")))
	for _, line := range strings.Split(content, "\n") {
		b.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	b.WriteString("\n")
	return b.String()
}

func formatToolEntry(timestamp string, e entry, spin string) string {
	header := fmt.Sprintf("%s %s", timestamp, ToolStyle.Render("⏺ "+e.toolName))

	switch {
	case e.streaming && e.proposal != "":
		return fmt.Sprintf("%s %s\n%s\n\n", header, DimStyle.Render("awaiting confirmation"), indentBlock(e.proposal))
	case e.streaming:
		return fmt.Sprintf("%s %s\n\n", header, spin)
	case e.declined:
		return fmt.Sprintf("%s %s\n\n", header, DimStyle.Render("declined"))
	case e.isError:
		body := e.content
		if e.details != "" {
			body += ": " + e.details
		}
		return fmt.Sprintf("%s %s\n\n", header, ErrorStyle.Render(body))
	default:
		return fmt.Sprintf("%s\n%s\n\n", header, indentBlock(resultSummary(e.content)))
	}
}

// resultSummary caps a tool result at a handful of lines; full output is for
// the model, not the screen.
func resultSummary(content string) string {
	const maxLines = 8
	lines := strings.Split(content, "\n")
	if len(lines) <= maxLines {
		return content
	}
	kept := strings.Join(lines[:maxLines], "\n")
	return kept + "\n" + DimStyle.Render(fmt.Sprintf("… %d more lines", len(lines)-maxLines))
}

// reasoningTail shows only the end of a long reasoning trace while it
// streams.
func reasoningTail(reasoning string) string {
	const maxChars = 400
	if len(reasoning) <= maxChars {
		return reasoning
	}
	return "…" + reasoning[len(reasoning)-maxChars:]
}

func indentBlock(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func indentGroup(s string) string {
	prefix := DimStyle.Render("│ ")
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n\n"
}

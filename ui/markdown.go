package ui

import (
	"regexp"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

// renderMarkdownCmd renders one closed assistant message off the update loop.
// Rendering a long answer can take tens of milliseconds; doing it inline
// would stutter the stream.
func renderMarkdownCmd(id, content string, width int) tea.Cmd {
	return func() tea.Msg {
		return markdownRenderedMsg{
			id:       id,
			rendered: renderMarkdown(content, width),
		}
	}
}

func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 80
	}

	// Strip [text](url) down to the url so terminal emulators handle link
	// detection; autolink is disabled for the same reason.
	content = mdLinkRegex.ReplaceAllString(content, "$2")

	exts := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(exts)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	rendered := string(gomarkdown.Render(doc, r))

	rendered = fixInlineCode(rendered)
	rendered = colorPlainURLs(rendered)

	return strings.TrimRight(rendered, "\n")
}

// fixInlineCode rewrites the renderer's blue-background inline code to plain
// red text, which survives more terminal themes.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func colorPlainURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		// Code block lines carry the renderer's ┃ prefix; leave them alone.
		if !strings.Contains(line, "┃") {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

package agent

import (
	"context"
	"strings"
	"time"

	"quill/config"
	"quill/model"
)

const titlePrompt = "Generate a short title (maximum 6 words) summarizing the user's request. Reply with the title only, no quotes, no punctuation at the end."

const maxTitleLen = 48

// GenerateTitle asks the provider for a short session title based on the
// first user message. Failures fall back to a truncated copy of the message
// itself; a session never goes unnamed because a side request failed.
func GenerateTitle(ctx context.Context, provider model.Provider, firstUserMessage string) string {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	title, err := provider.CompleteTurn(ctx, []model.ChatMessage{
		{Role: model.RoleSystem, Content: titlePrompt},
		{Role: model.RoleUser, Content: firstUserMessage},
	})
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Titles] Generation failed: %v", err)
		}
		return fallbackTitle(firstUserMessage)
	}

	title = sanitizeTitle(title)
	if title == "" {
		return fallbackTitle(firstUserMessage)
	}
	return title
}

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	// Some models wrap the answer in quotes or prepend a label anyway.
	title = strings.Trim(title, "\"'`")
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	return truncateTitle(strings.TrimSpace(title))
}

func fallbackTitle(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return truncateTitle(text)
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxTitleLen])) + "…"
}

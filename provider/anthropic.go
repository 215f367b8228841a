// Package provider implements the model.Provider adapters. Each adapter
// translates the provider-agnostic history and mcp tool schemas into its
// SDK's wire format and maps the streamed response onto the shared Delta
// vocabulary in strict arrival order.
package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"quill/config"
	"quill/mcp"
	"quill/model"
)

// AnthropicProvider adapts the official Anthropic SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates an Anthropic provider. The API key is
// required; baseURL and model fall back to defaults.
func NewAnthropicProvider(baseURL, apiKey, modelName string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if modelName != "" {
		anthropicModel = anthropic.Model(modelName)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client: &client,
		model:  anthropicModel,
	}, nil
}

// StreamTurn implements model.Provider. Anthropic identifies tool-use
// blocks by content block index; the same index carries the input JSON
// fragments, so downstream accumulation can stitch arguments back together.
func (p *AnthropicProvider) StreamTurn(ctx context.Context, history []model.ChatMessage, tools []mcptypes.Tool, fn model.DeltaFunc) error {
	messages, system := toAnthropicMessages(history)

	if len(tools) > 0 {
		system = append([]anthropic.TextBlockParam{{Text: toolInstructions(tools)}}, system...)
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 4096,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(tools) > 0 {
		params.Tools = mcp.ConvertToolsToAnthropic(tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			if err := fn(model.Delta{Kind: model.DeltaTurnStart, TurnID: eventVariant.Message.ID}); err != nil {
				return err
			}

		case anthropic.ContentBlockStartEvent:
			if toolUse, ok := eventVariant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				err := fn(model.Delta{Kind: model.DeltaToolChunk, Chunk: model.ToolCallChunk{
					Index: int(eventVariant.Index),
					ID:    toolUse.ID,
					Name:  toolUse.Name,
				}})
				if err != nil {
					return err
				}
			}

		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := fn(model.Delta{Kind: model.DeltaContent, Text: deltaVariant.Text}); err != nil {
					return err
				}
			case anthropic.ThinkingDelta:
				if err := fn(model.Delta{Kind: model.DeltaReasoning, Text: deltaVariant.Thinking}); err != nil {
					return err
				}
			case anthropic.InputJSONDelta:
				err := fn(model.Delta{Kind: model.DeltaToolChunk, Chunk: model.ToolCallChunk{
					Index: int(eventVariant.Index),
					Args:  deltaVariant.PartialJSON,
				}})
				if err != nil {
					return err
				}
			}

		case anthropic.MessageStopEvent:
			if err := fn(model.Delta{Kind: model.DeltaTurnEnd}); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		streamErr := fmt.Errorf("Anthropic streaming error: %w", err)
		if ferr := fn(model.Delta{Kind: model.DeltaError, Err: streamErr}); ferr != nil {
			return ferr
		}
		return streamErr
	}

	return nil
}

// CompleteTurn implements model.Provider with a single non-streaming call.
func (p *AnthropicProvider) CompleteTurn(ctx context.Context, history []model.ChatMessage) (string, error) {
	messages, system := toAnthropicMessages(history)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 1024,
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic completion failed: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += textBlock.Text
		}
	}
	return text, nil
}

// ListModels returns a curated list; Anthropic has no models endpoint.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:         string(m),
			InternalName: string(m),
			Provider:     "anthropic",
			ToolCalling:  true,
		})
	}
	return result, nil
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

func (p *AnthropicProvider) SetModel(modelName string) {
	p.model = anthropic.Model(modelName)
	if config.Debug {
		config.DebugLog.Printf("[Provider] Anthropic model set to %s", modelName)
	}
}

// Ping makes a minimal one-token request; Anthropic has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

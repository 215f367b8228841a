package provider

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"quill/config"
	"quill/mcp"
	"quill/model"
)

// OpenAIProvider adapts the official OpenAI SDK.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI provider. The API key is required;
// baseURL and model fall back to defaults.
func NewOpenAIProvider(baseURL, apiKey, modelName string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client: client,
		model:  modelName,
	}, nil
}

// StreamTurn implements model.Provider. OpenAI streams tool call arguments
// as indexed fragments on the chunk delta; they are forwarded verbatim as
// tool chunks keyed by the provider's own index.
func (p *OpenAIProvider) StreamTurn(ctx context.Context, history []model.ChatMessage, tools []mcptypes.Tool, fn model.DeltaFunc) error {
	messages := toOpenAIMessages(history, toolInstructionsFor(tools))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(p.model),
	}
	if len(tools) > 0 {
		params.Tools = mcp.ConvertToolsToOpenAI(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	started := false
	for stream.Next() {
		chunk := stream.Current()

		if !started {
			started = true
			if err := fn(model.Delta{Kind: model.DeltaTurnStart, TurnID: chunk.ID}); err != nil {
				return err
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			if err := fn(model.Delta{Kind: model.DeltaContent, Text: delta.Content}); err != nil {
				return err
			}
		}

		for _, tc := range delta.ToolCalls {
			err := fn(model.Delta{Kind: model.DeltaToolChunk, Chunk: model.ToolCallChunk{
				Index: int(tc.Index),
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Args:  tc.Function.Arguments,
			}})
			if err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		streamErr := fmt.Errorf("OpenAI streaming error: %w", err)
		if ferr := fn(model.Delta{Kind: model.DeltaError, Err: streamErr}); ferr != nil {
			return ferr
		}
		return streamErr
	}

	if started {
		return fn(model.Delta{Kind: model.DeltaTurnEnd})
	}
	return nil
}

// CompleteTurn implements model.Provider with a single non-streaming call.
func (p *OpenAIProvider) CompleteTurn(ctx context.Context, history []model.ChatMessage) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(history, ""),
		Model:    openai.ChatModel(p.model),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements model.Provider.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         m.ID,
			InternalName: m.ID,
			Provider:     "openai",
			ToolCalling:  true,
		})
	}
	return result, nil
}

func (p *OpenAIProvider) GetModel() string {
	return p.model
}

func (p *OpenAIProvider) SetModel(modelName string) {
	p.model = modelName
	if config.Debug {
		config.DebugLog.Printf("[Provider] OpenAI model set to %s", modelName)
	}
}

// Ping checks reachability by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"

	"quill/config"
	"quill/mcp"
	"quill/model"
)

// OllamaProvider adapts a local Ollama server through its official API
// client.
type OllamaProvider struct {
	client  *api.Client
	model   string
	baseURL string
}

// NewOllamaProvider creates an Ollama provider. Both parameters are
// optional: baseURL defaults to the local server, model to llama3.1.
func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   modelName,
		baseURL: baseURL,
	}, nil
}

// StreamTurn implements model.Provider. Ollama delivers tool calls whole,
// with arguments already parsed; each one becomes a single self-contained
// tool chunk with a synthesized call id.
func (p *OllamaProvider) StreamTurn(ctx context.Context, history []model.ChatMessage, tools []mcptypes.Tool, fn model.DeltaFunc) error {
	tools = p.requestTools(tools)
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: toOllamaMessages(history, toolInstructionsFor(tools)),
		Stream:   func(b bool) *bool { return &b }(true),
	}
	if len(tools) > 0 {
		req.Tools = mcp.ConvertToolsToOllama(tools)
	}

	started := false
	callIndex := 0

	respFunc := func(resp api.ChatResponse) error {
		if !started {
			started = true
			if err := fn(model.Delta{Kind: model.DeltaTurnStart}); err != nil {
				return err
			}
		}

		if resp.Message.Thinking != "" {
			if err := fn(model.Delta{Kind: model.DeltaReasoning, Text: resp.Message.Thinking}); err != nil {
				return err
			}
		}
		if resp.Message.Content != "" {
			if err := fn(model.Delta{Kind: model.DeltaContent, Text: resp.Message.Content}); err != nil {
				return err
			}
		}

		for _, call := range resp.Message.ToolCalls {
			args, err := json.Marshal(call.Function.Arguments)
			if err != nil {
				if config.DebugLog != nil {
					config.DebugLog.Printf("[Provider] Ollama tool call arguments could not be re-marshaled: %v", err)
				}
				continue
			}
			err = fn(model.Delta{Kind: model.DeltaToolChunk, Chunk: model.ToolCallChunk{
				Index: callIndex,
				ID:    "call_" + strconv.Itoa(callIndex),
				Name:  call.Function.Name,
				Args:  string(args),
			}})
			if err != nil {
				return err
			}
			callIndex++
		}

		if resp.Done {
			return fn(model.Delta{Kind: model.DeltaTurnEnd})
		}
		return nil
	}

	if err := p.client.Chat(ctx, req, respFunc); err != nil {
		streamErr := fmt.Errorf("Ollama streaming error: %w", err)
		if ferr := fn(model.Delta{Kind: model.DeltaError, Err: streamErr}); ferr != nil {
			return ferr
		}
		return streamErr
	}
	return nil
}

// requestTools filters the advertised tool schemas to what the active model
// can invoke. Sending tools to a model family without tool support fails the
// whole request, so those degrade to a plain chat turn.
func (p *OllamaProvider) requestTools(tools []mcptypes.Tool) []mcptypes.Tool {
	if len(tools) == 0 || ModelSupportsToolCalling(p.model) {
		return tools
	}
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] Model %s does not support tool calling; sending turn without tools", p.model)
	}
	return nil
}

// CompleteTurn implements model.Provider with a non-streaming call.
func (p *OllamaProvider) CompleteTurn(ctx context.Context, history []model.ChatMessage) (string, error) {
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: toOllamaMessages(history, ""),
		Stream:   func(b bool) *bool { return &b }(false),
	}

	var text strings.Builder
	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama completion failed: %w", err)
	}
	return text.String(), nil
}

// ListModels implements model.Provider.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:         m.Name,
			InternalName: m.Name,
			Provider:     "ollama",
			Size:         m.Size,
			ToolCalling:  ModelSupportsToolCalling(m.Name),
		}
	}
	return models, nil
}

func (p *OllamaProvider) GetModel() string {
	return p.model
}

func (p *OllamaProvider) SetModel(modelName string) {
	p.model = modelName
	if config.Debug {
		config.DebugLog.Printf("[Provider] Ollama model set to %s", modelName)
	}
}

// Ping checks if the Ollama server is reachable.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

// Tool calling support varies by model family. This is a curated list based
// on Ollama documentation and community testing; unknown families are
// assumed unsupported.
var toolCallingModels = map[string]bool{
	"qwen":      true,
	"llama3.1":  true,
	"llama3.2":  true,
	"llama3.3":  true,
	"mistral":   true,
	"command-r": true,
	"nemotron":  true,
	"granite3":  true,

	"llama3-gradient": false,
	"llama3":          false,
	"phi":             false,
	"gemma":           false,
	"codellama":       false,
	"deepseek":        false,
}

// Most specific prefixes first, so llama3.2 is not matched as llama3.
var orderedPrefixes = []string{
	"llama3.3", "llama3.2", "llama3.1",
	"llama3-gradient",
	"command-r", "qwen", "mistral", "nemotron", "granite3",
	"codellama",
	"llama3",
	"deepseek", "phi", "gemma",
}

// ModelSupportsToolCalling reports whether a model family is known to
// support Ollama's tool calling API.
func ModelSupportsToolCalling(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range orderedPrefixes {
		if strings.HasPrefix(modelName, prefix) {
			if supported, exists := toolCallingModels[prefix]; exists {
				return supported
			}
		}
	}
	return false
}

package provider

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"quill/model"
)

// toAnthropicMessages converts provider-agnostic history to Anthropic
// format. System entries become separate system blocks (Anthropic keeps the
// system prompt out of the messages array), assistant tool calls become
// tool_use blocks, and tool results become tool_result blocks on a user
// message.
func toAnthropicMessages(history []model.ChatMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleUser:
			messages = append(messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)),
			)

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Args,
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			messages = append(messages, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})

		case model.RoleTool:
			messages = append(messages, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: msg.Content},
						}},
					},
				}},
			})

		default:
			messages = append(messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)),
			)
		}
	}

	return messages, systemBlocks
}

// toOpenAIMessages converts provider-agnostic history to OpenAI format.
// instructions, when non-empty, is prepended as an extra system message.
func toOpenAIMessages(history []model.ChatMessage, instructions string) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	for _, msg := range history {
		switch msg.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))

		case model.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))

		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					args = []byte("{}")
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: string(args),
						},
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case model.RoleTool:
			tool := openai.ChatCompletionToolMessageParam{ToolCallID: msg.ToolCallID}
			tool.Content.OfString = openai.String(msg.Content)
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfTool: &tool})

		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	return messages
}

// toOllamaMessages converts provider-agnostic history to Ollama format.
// Ollama has no tool-result role with call correlation, so tool results are
// sent as "tool" role messages with the tool name set; assistant tool calls
// are replayed with their parsed argument maps.
func toOllamaMessages(history []model.ChatMessage, instructions string) []api.Message {
	messages := make([]api.Message, 0, len(history)+1)
	if instructions != "" {
		messages = append(messages, api.Message{Role: "system", Content: instructions})
	}

	for _, msg := range history {
		switch msg.Role {
		case model.RoleAssistant:
			m := api.Message{Role: "assistant", Content: msg.Content}
			for _, call := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, api.ToolCall{
					Function: api.ToolCallFunction{
						Name:      call.Name,
						Arguments: api.ToolCallFunctionArguments(call.Args),
					},
				})
			}
			messages = append(messages, m)

		case model.RoleTool:
			messages = append(messages, api.Message{
				Role:     "tool",
				Content:  msg.Content,
				ToolName: msg.ToolName,
			})

		default:
			messages = append(messages, api.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
	}

	return messages
}

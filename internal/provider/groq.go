// Copyright 2025 Kothakunjo Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GroqProviderID identifies the Groq provider in logs and fallback results
const GroqProviderID = "groq"

// Groq is the primary provider. Groq exposes an OpenAI-compatible
// chat-completions API, so the go-openai client is pointed at its base URL.
type Groq struct {
	client *openai.Client
	logger *zap.Logger
}

// NewGroq creates a Groq provider
func NewGroq(apiKey, baseURL string, logger *zap.Logger) (*Groq, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Groq API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Groq{
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}, nil
}

// ID implements Provider
func (g *Groq) ID() string {
	return GroqProviderID
}

// Complete implements Provider
func (g *Groq) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	g.logger.Debug("Sending chat completion to Groq",
		zap.String("model", req.Model),
		zap.Int("message_count", len(messages)),
		zap.Int("max_tokens", req.MaxTokens))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        1,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("groq completion failed (model %s): %w", req.Model, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices (model %s)", req.Model)
	}

	g.logger.Debug("Groq completion successful",
		zap.String("model", req.Model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}

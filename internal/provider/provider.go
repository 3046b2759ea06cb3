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

// Package provider abstracts the chat-completion vendors behind a single
// interface. A provider performs exactly one completion attempt per call;
// retries and ordering are owned by the fallback executor.
package provider

import "context"

// Role identifies a conversation participant
type Role string

const (
	// RoleUser marks a message authored by the end user
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by the model
	RoleAssistant Role = "assistant"
)

// Message is one prior conversation turn
type Message struct {
	Role    Role
	Content string
}

// Request describes a single completion attempt
type Request struct {
	// System is the assembled system prompt, empty for bare prompts
	System string
	// History is the prior conversation, oldest first
	History []Message
	// Message is the new user message
	Message string
	// Model selects the vendor model for this attempt
	Model string
	// Temperature in the vendor's accepted range
	Temperature float32
	// MaxTokens caps the completion length; 0 means vendor default
	MaxTokens int
}

// Provider is a single chat-completion vendor
type Provider interface {
	// ID returns a stable identifier used in logs and fallback results
	ID() string
	// Complete performs one completion attempt. Any failure is returned
	// as-is; callers treat every error uniformly as "try the next entry".
	Complete(ctx context.Context, req Request) (string, error)
}

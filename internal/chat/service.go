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

// Package chat runs the per-turn pipeline: classify the turn, run the
// augmentation resolvers, assemble the system prompt, walk the main
// completion fallback plan, and reduce everything into one envelope.
// Vendor failures degrade the response; they never fail the turn.
package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/kothakunjo/kothakunjo-server/internal/classifier"
	"github.com/kothakunjo/kothakunjo-server/internal/config"
	"github.com/kothakunjo/kothakunjo-server/internal/factcheck"
	"github.com/kothakunjo/kothakunjo-server/internal/fallback"
	"github.com/kothakunjo/kothakunjo-server/internal/imagegen"
	"github.com/kothakunjo/kothakunjo-server/internal/prompt"
	"github.com/kothakunjo/kothakunjo-server/internal/provider"
	"github.com/kothakunjo/kothakunjo-server/internal/search"
	"go.uber.org/zap"
)

// Message is one prior conversation turn as carried on the wire
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is the inbound unit of work for the chat endpoint
type TurnRequest struct {
	Message    string             `json:"message"`
	History    []Message          `json:"history,omitempty"`
	Character  *prompt.Persona    `json:"character,omitempty"`
	Plugins    []string           `json:"plugins,omitempty"`
	IsTitleGen bool               `json:"isTitleGen,omitempty"`
	UserConfig *prompt.UserConfig `json:"userConfig,omitempty"`
}

// TitleResponse is the envelope for title-generation turns
type TitleResponse struct {
	Title string `json:"title"`
}

// TurnResponse is the envelope for normal conversational turns. Response is
// always non-empty; total provider exhaustion yields the apology text.
type TurnResponse struct {
	Response       string          `json:"response"`
	SearchResults  []search.Result `json:"searchResults,omitempty"`
	ImagePrompt    string          `json:"imagePrompt,omitempty"`
	GeneratedImage string          `json:"generatedImage,omitempty"`
	FactCheck      *factcheck.Data `json:"factCheck,omitempty"`
	IsFactCheck    bool            `json:"isFactCheck"`
}

const (
	titleSystemPrompt = "Generate a very short, concise chat title (2-4 words) in the same language as the user message. Return ONLY the title text, nothing else."
	fallbackTitle     = "New Chat"

	querySystemPrompt = "You are a search query optimizer. Generate concise, effective search queries."
	queryPromptFmt    = "Based on this user message, generate a concise search query (2-5 words) that would be best for a web search. Only return the search query, nothing else.\n\nUser message: %q\n\nSearch query:"

	imageSystemPrompt = "You are an image prompt engineer."
	imagePromptFmt    = "Based on this user message, determine if they want to generate or create an image.\nIf YES, provide a detailed English descriptive prompt for an image generator (e.g., \"A high-quality 4k digital painting of...\").\nIf NO, simply return \"NO\".\n\nUser message: %q\n\nResponse:"

	// imageIntentSentinel is the literal the detector returns for non-image
	// messages; anything at or under minImagePromptLen is treated the same
	// to guard against near-empty false positives.
	imageIntentSentinel = "NO"
	minImagePromptLen   = 5

	apologyResponse = "দুঃখিত, এই মুহূর্তে আমি উত্তর দিতে পারছি না। একটু পরে আবার চেষ্টা করুন।"
)

// Service wires the pipeline stages together. It holds no per-request
// state; every turn is a pure function of its request plus vendor calls.
type Service struct {
	cfg       *config.Config
	primary   provider.Provider
	secondary provider.Provider
	executor  *fallback.Executor
	triggers  classifier.Config
	factCheck *factcheck.Client
	search    *search.Client
	images    *imagegen.Generator
	logger    *zap.Logger
}

// NewService creates the pipeline service
func NewService(
	cfg *config.Config,
	primary provider.Provider,
	secondary provider.Provider,
	executor *fallback.Executor,
	fc *factcheck.Client,
	sc *search.Client,
	ig *imagegen.Generator,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       cfg,
		primary:   primary,
		secondary: secondary,
		executor:  executor,
		triggers:  classifier.FromAppConfig(cfg.Triggers),
		factCheck: fc,
		search:    sc,
		images:    ig,
		logger:    logger,
	}
}

// Title resolves a title-generation turn. Exhaustion yields "New Chat";
// this never errors.
func (s *Service) Title(ctx context.Context, message string) string {
	plan := s.buildPlan(
		provider.Request{
			System:      titleSystemPrompt,
			Message:     message,
			Temperature: s.cfg.Chat.TitleTemperature,
			MaxTokens:   20,
		})
	res := s.executor.Execute(ctx, "title", plan, fallbackTitle)
	return res.Value
}

// resolved accumulates resolver output for one turn. Each resolver owns a
// disjoint set of fields, so the concurrent writers need no lock.
type resolved struct {
	factCheckData  *factcheck.Data
	factContext    string
	searchResults  []search.Result
	searchContext  string
	imagePrompt    string
	generatedImage string
}

// Turn runs a normal conversational turn through the full pipeline.
func (s *Service) Turn(ctx context.Context, req TurnRequest) *TurnResponse {
	trig := classifier.Classify(req.Message, req.Plugins, s.triggers)

	s.logger.Debug("Turn classified",
		zap.Bool("fact_check", trig.FactCheck),
		zap.Bool("web_search", trig.WebSearch),
		zap.Bool("image", trig.Image))

	out := s.resolve(ctx, req.Message, trig)

	history := prompt.TruncateHistory(req.History, s.cfg.Chat.MaxHistoryTurns)
	system := prompt.Assemble(prompt.Input{
		Character:     req.Character,
		UserConfig:    req.UserConfig,
		SearchContext: out.factContext + out.searchContext,
		ImagePrompt:   out.imagePrompt,
	})

	plan := s.buildPlan(provider.Request{
		System:      system,
		History:     toProviderHistory(history),
		Message:     req.Message,
		Temperature: s.cfg.Chat.Temperature,
		MaxTokens:   s.cfg.Chat.MaxTokens,
	})
	res := s.executor.Execute(ctx, "main_chat", plan, apologyResponse)

	return &TurnResponse{
		Response:       res.Value,
		SearchResults:  out.searchResults,
		ImagePrompt:    out.imagePrompt,
		GeneratedImage: out.generatedImage,
		FactCheck:      out.factCheckData,
		IsFactCheck:    trig.FactCheck,
	}
}

// resolve fans the triggered resolvers out concurrently. Each resolver has
// its own failure boundary: one vendor outage cannot starve the others.
func (s *Service) resolve(ctx context.Context, message string, trig classifier.Triggers) *resolved {
	out := &resolved{}

	var wg sync.WaitGroup

	if trig.FactCheck {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.resolveFactCheck(ctx, message, out)
		}()
	}

	if trig.WebSearch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.resolveSearch(ctx, message, out)
		}()
	}

	if trig.Image {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.resolveImage(ctx, message, out)
		}()
	}

	wg.Wait()
	return out
}

// resolveFactCheck queries the fact-check vendor once. No retries, no
// alternate vendor; failure leaves the turn unaugmented.
func (s *Service) resolveFactCheck(ctx context.Context, message string, out *resolved) {
	data, err := s.factCheck.Check(ctx, message)
	if err != nil {
		s.logger.Warn("Fact-check resolver failed", zap.Error(err))
		return
	}
	out.factCheckData = data
	out.factContext = factcheck.FormatContext(message, data)
}

// resolveSearch extracts a search query through the fallback plan, then
// queries the search vendor. Query-extraction exhaustion degrades to the
// original message; a vendor error degrades to no results.
func (s *Service) resolveSearch(ctx context.Context, message string, out *resolved) {
	plan := s.buildPlan(provider.Request{
		System:      querySystemPrompt,
		Message:     fmt.Sprintf(queryPromptFmt, message),
		Temperature: s.cfg.Chat.TitleTemperature,
		MaxTokens:   50,
	})
	query := s.executor.Execute(ctx, "search_query", plan, message).Value

	results, err := s.search.Search(ctx, query)
	if err != nil {
		s.logger.Warn("Search resolver failed", zap.String("query", query), zap.Error(err))
		return
	}
	out.searchResults = results
	out.searchContext = search.FormatContext(query, results)
}

// resolveImage detects image intent, then synthesizes and hosts the image.
// A synthesis failure leaves generatedImage unset entirely; a hosting
// failure alone still yields a data-URI reference from the generator.
func (s *Service) resolveImage(ctx context.Context, message string, out *resolved) {
	plan := s.buildPlan(provider.Request{
		System:      imageSystemPrompt,
		Message:     fmt.Sprintf(imagePromptFmt, message),
		Temperature: s.cfg.Chat.Temperature,
		MaxTokens:   300,
	})
	detection := s.executor.Execute(ctx, "image_intent", plan, imageIntentSentinel).Value

	if detection == imageIntentSentinel || len(detection) <= minImagePromptLen {
		return
	}
	out.imagePrompt = detection

	url, err := s.images.Generate(ctx, detection)
	if err != nil {
		s.logger.Warn("Image synthesis failed", zap.Error(err))
		return
	}
	out.generatedImage = url
}

// buildPlan applies the standard tier ordering to one request, giving the
// secondary provider its own temperature since its accepted range differs.
func (s *Service) buildPlan(req provider.Request) []fallback.Step {
	secondaryReq := req
	secondaryReq.Temperature = s.cfg.Chat.GeminiTemperature
	return fallback.BuildPlan(
		s.primary,
		s.secondary,
		s.cfg.Groq.FlagshipModel,
		s.cfg.Groq.Models,
		s.cfg.Gemini.Models,
		req,
		secondaryReq,
	)
}

func toProviderHistory(history []Message) []provider.Message {
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		role := provider.RoleUser
		if m.Role == string(provider.RoleAssistant) {
			role = provider.RoleAssistant
		}
		msgs = append(msgs, provider.Message{Role: role, Content: m.Content})
	}
	return msgs
}

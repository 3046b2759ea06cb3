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

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kothakunjo/kothakunjo-server/internal/config"
	"github.com/kothakunjo/kothakunjo-server/internal/factcheck"
	"github.com/kothakunjo/kothakunjo-server/internal/fallback"
	"github.com/kothakunjo/kothakunjo-server/internal/imagegen"
	"github.com/kothakunjo/kothakunjo-server/internal/provider"
	"github.com/kothakunjo/kothakunjo-server/internal/search"
	"go.uber.org/zap/zaptest"
)

// scriptedProvider routes each completion attempt through a test-supplied
// function keyed on the request contents
type scriptedProvider struct {
	id string
	fn func(req provider.Request) (string, error)
}

func (p *scriptedProvider) ID() string { return p.id }

func (p *scriptedProvider) Complete(_ context.Context, req provider.Request) (string, error) {
	return p.fn(req)
}

func failingProvider(id string) *scriptedProvider {
	return &scriptedProvider{id: id, fn: func(provider.Request) (string, error) {
		return "", errors.New("vendor unavailable")
	}}
}

func testAppConfig() *config.Config {
	return &config.Config{
		Groq: config.GroqConfig{
			FlagshipModel: "flagship",
			Models:        []string{"flagship", "backup"},
		},
		Gemini: config.GeminiConfig{
			Models: []string{"gem-1"},
		},
		Triggers: config.TriggersConfig{
			Mode:             config.TriggerModeKeywordsOrFlags,
			FactCheckPhrases: config.DefaultFactCheckPhrases(),
			WebSearchPhrases: config.DefaultWebSearchPhrases(),
			ImagePhrases:     config.DefaultImagePhrases(),
		},
		Chat: config.ChatConfig{
			Temperature:       0.7,
			TitleTemperature:  0.5,
			MaxTokens:         8192,
			MaxHistoryTurns:   30,
			GeminiTemperature: 1.0,
		},
	}
}

// newTestService wires a service whose vendor clients point at the given
// endpoints. Unreachable endpoints stand in for vendors that must not be
// called or whose failure is under test.
func newTestService(t *testing.T, primary, secondary provider.Provider, khojURL, serperURL, synthURL, hostURL string) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := testAppConfig()

	return NewService(
		cfg,
		primary,
		secondary,
		fallback.NewExecutor(logger, nil),
		factcheck.NewClient(khojURL, "khoj-key", logger),
		search.NewClient(serperURL, "serper-key", 5, logger),
		imagegen.NewGenerator(imagegen.Config{
			SynthesisEndpoint: synthURL,
			SynthesisAPIKey:   "poll-key",
			Model:             "flux",
			Width:             1024,
			Height:            1024,
			SynthesisTimeout:  5 * time.Second,
			HostingEndpoint:   hostURL,
			HostingAPIKey:     "host-key",
		}, logger),
		logger,
	)
}

const unreachable = "http://127.0.0.1:1/unreachable"

func TestTurnApologyOnTotalExhaustion(t *testing.T) {
	svc := newTestService(t, failingProvider("groq"), failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "কেমন আছো?"})

	if resp.Response == "" {
		t.Fatal("response must never be empty")
	}
	if resp.Response != apologyResponse {
		t.Errorf("expected apology text, got %q", resp.Response)
	}
	if resp.IsFactCheck {
		t.Error("plain message must not flag fact-check")
	}
}

func TestTurnPlainCompletion(t *testing.T) {
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		return "ভালো আছি, ধন্যবাদ!", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "কেমন আছো?"})

	if resp.Response != "ভালো আছি, ধন্যবাদ!" {
		t.Errorf("unexpected response %q", resp.Response)
	}
	if resp.SearchResults != nil || resp.ImagePrompt != "" || resp.GeneratedImage != "" || resp.FactCheck != nil {
		t.Error("plain turn must carry no augmentation fields")
	}
}

func TestTurnFallsThroughToSecondary(t *testing.T) {
	secondary := &scriptedProvider{id: "gemini", fn: func(req provider.Request) (string, error) {
		return "answered by secondary", nil
	}}

	svc := newTestService(t, failingProvider("groq"), secondary,
		unreachable, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "hello"})

	if resp.Response != "answered by secondary" {
		t.Errorf("expected secondary provider's answer, got %q", resp.Response)
	}
}

func TestIsFactCheckReportsTriggerNotVendorOutcome(t *testing.T) {
	khoj := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "vendor down", http.StatusInternalServerError)
	}))
	defer khoj.Close()

	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		return "reply", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		khoj.URL, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "এটা ফ্যাক্টচেক করো"})

	if !resp.IsFactCheck {
		t.Error("isFactCheck must reflect the trigger, not the vendor outcome")
	}
	if resp.FactCheck != nil {
		t.Error("failed vendor call must leave factCheck unset")
	}
	if resp.Response != "reply" {
		t.Errorf("fact-check failure must not affect the main completion, got %q", resp.Response)
	}
}

func TestFactCheckSuccessPopulatesEnvelopeAndPrompt(t *testing.T) {
	khoj := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"verdict": "False",
				"report":  "no evidence",
				"sources": []string{"https://khoj-bd.com/x"},
			},
		})
	}))
	defer khoj.Close()

	var sawVerdict atomic.Bool
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if strings.Contains(req.System, "Verdict: False") {
			sawVerdict.Store(true)
		}
		return "checked reply", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		khoj.URL, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "এই দাবিটা যাচাই করো"})

	if resp.FactCheck == nil || resp.FactCheck.Verdict != "False" {
		t.Fatalf("expected fact-check data in envelope, got %+v", resp.FactCheck)
	}
	if !resp.IsFactCheck {
		t.Error("isFactCheck must be true")
	}
	if !sawVerdict.Load() {
		t.Error("verdict block must reach the main-chat system prompt")
	}
}

func TestSearchScenarioWeatherMessage(t *testing.T) {
	serper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["q"] != "dhaka weather today" {
			t.Errorf("expected extracted query, got %q", body["q"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"organic": []search.Result{
				{Title: "Dhaka Weather", Link: "https://weather.example", Snippet: "32°C, humid"},
			},
		})
	}))
	defer serper.Close()

	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System == querySystemPrompt {
			return "dhaka weather today", nil
		}
		return "আজ ঢাকায় গরম পড়েছে [1]", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, serper.URL, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "আজকের আবহাওয়া কেমন?"})

	if len(resp.SearchResults) != 1 {
		t.Fatalf("expected 1 search result, got %d", len(resp.SearchResults))
	}
	if resp.SearchResults[0].Title != "Dhaka Weather" {
		t.Errorf("unexpected result %+v", resp.SearchResults[0])
	}
	if resp.IsFactCheck {
		t.Error("weather message must not flag fact-check")
	}
}

func TestSearchQueryExhaustionDegradesToOriginalMessage(t *testing.T) {
	var gotQuery atomic.Value
	serper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery.Store(body["q"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"organic": []search.Result{}})
	}))
	defer serper.Close()

	// Query extraction fails everywhere; only the main chat answers
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System == querySystemPrompt {
			return "", errors.New("rate limited")
		}
		return "here is what I know", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, serper.URL, unreachable, unreachable)

	message := "সার্চ করো জাতীয় সংসদ নির্বাচন"
	resp := svc.Turn(context.Background(), TurnRequest{Message: message})

	if got, _ := gotQuery.Load().(string); got != message {
		t.Errorf("exhausted query extraction must fall back to the original message, got %q", got)
	}
	if len(resp.SearchResults) != 0 {
		t.Errorf("empty organic list must yield no results, got %d", len(resp.SearchResults))
	}
	if resp.Response != "here is what I know" {
		t.Errorf("search degradation must not affect the completion, got %q", resp.Response)
	}
}

func TestImageScenarioGeneratesAndAcknowledges(t *testing.T) {
	synth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer synth.Close()

	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status_code": 200,
			"image":       map[string]string{"url": "https://img.example/cat.png"},
		})
	}))
	defer host.Close()

	const renderPrompt = "A high-quality 4k digital painting of a cat"

	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System == imageSystemPrompt {
			return renderPrompt, nil
		}
		if !strings.Contains(req.System, renderPrompt) {
			t.Error("main-chat prompt must carry the image acknowledgment instruction")
		}
		return "অবশ্যই, এই যে আপনার ছবিটি!", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, synth.URL, host.URL)

	resp := svc.Turn(context.Background(), TurnRequest{Message: "ছবি বানাও একটা বিড়ালের"})

	if resp.ImagePrompt != renderPrompt {
		t.Errorf("expected image prompt in envelope, got %q", resp.ImagePrompt)
	}
	if resp.GeneratedImage != "https://img.example/cat.png" {
		t.Errorf("expected hosted image URL, got %q", resp.GeneratedImage)
	}
	if strings.Contains(strings.ToLower(resp.Response), "cannot") {
		t.Errorf("response must not contain a refusal, got %q", resp.Response)
	}
}

func TestImageIntentSentinelSkipsGeneration(t *testing.T) {
	var synthCalls atomic.Int32
	synth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		synthCalls.Add(1)
		_, _ = w.Write([]byte{1})
	}))
	defer synth.Close()

	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System == imageSystemPrompt {
			return "NO", nil
		}
		return "reply", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, synth.URL, unreachable)

	// Explicit plugin flag forces the image resolver, the detector declines
	resp := svc.Turn(context.Background(), TurnRequest{
		Message: "ami valo achi",
		Plugins: []string{"image-generation"},
	})

	if resp.ImagePrompt != "" || resp.GeneratedImage != "" {
		t.Error("sentinel must leave image fields unset")
	}
	if synthCalls.Load() != 0 {
		t.Error("sentinel must prevent the synthesis call")
	}
}

func TestImageShortDetectionRejected(t *testing.T) {
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System == imageSystemPrompt {
			return "cat", nil
		}
		return "reply", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	resp := svc.Turn(context.Background(), TurnRequest{
		Message: "draw koro",
	})

	if resp.ImagePrompt != "" {
		t.Errorf("near-empty detection must be rejected, got %q", resp.ImagePrompt)
	}
}

func TestTitleGeneration(t *testing.T) {
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		if req.System != titleSystemPrompt {
			t.Errorf("unexpected system prompt %q", req.System)
		}
		return "  মন খারাপের দিন  ", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	title := svc.Title(context.Background(), "আমার আজকে মন ভালো নেই")
	if title != "মন খারাপের দিন" {
		t.Errorf("expected trimmed title, got %q", title)
	}
}

func TestTitleFallsBackOnExhaustion(t *testing.T) {
	svc := newTestService(t, failingProvider("groq"), failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	title := svc.Title(context.Background(), "কিছু একটা")
	if title != fallbackTitle {
		t.Errorf("expected %q, got %q", fallbackTitle, title)
	}
}

func TestResolverFailuresAreIndependent(t *testing.T) {
	// Fact-check and search both fail at the vendor; image succeeds
	synth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer synth.Close()

	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status_code": 200,
			"image":       map[string]string{"url": "https://img.example/z.png"},
		})
	}))
	defer host.Close()

	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		switch req.System {
		case imageSystemPrompt:
			return "A detailed painting of a river at dusk", nil
		case querySystemPrompt:
			return "some query", nil
		default:
			return "final reply", nil
		}
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, synth.URL, host.URL)

	resp := svc.Turn(context.Background(), TurnRequest{
		Message: "আজকের আবহাওয়া? ফ্যাক্টচেক করো আর ছবি আঁকো",
	})

	if resp.GeneratedImage == "" {
		t.Error("image resolver must succeed despite sibling failures")
	}
	if resp.FactCheck != nil {
		t.Error("failed fact-check must stay unset")
	}
	if len(resp.SearchResults) != 0 {
		t.Error("failed search must yield no results")
	}
	if !resp.IsFactCheck {
		t.Error("fact-check trigger still fired")
	}
	if resp.Response != "final reply" {
		t.Errorf("completion must survive resolver failures, got %q", resp.Response)
	}
}

func TestHistoryTruncationBeforeCompletion(t *testing.T) {
	var gotHistory atomic.Int32
	primary := &scriptedProvider{id: "groq", fn: func(req provider.Request) (string, error) {
		gotHistory.Store(int32(len(req.History)))
		return "ok", nil
	}}

	svc := newTestService(t, primary, failingProvider("gemini"),
		unreachable, unreachable, unreachable, unreachable)

	history := make([]Message, 50)
	for i := range history {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history[i] = Message{Role: role, Content: "turn"}
	}

	svc.Turn(context.Background(), TurnRequest{Message: "hi", History: history})

	if gotHistory.Load() != 30 {
		t.Errorf("expected history truncated to 30 turns, got %d", gotHistory.Load())
	}
}

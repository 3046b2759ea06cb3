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

package diagnostics

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestRecordAndCounts(t *testing.T) {
	recorder := NewRecorder(zaptest.NewLogger(t))

	recorder.Record("groq", "main_chat", errors.New("rate limit exceeded"))
	recorder.Record("groq", "title", errors.New("timeout"))
	recorder.Record("serper", "search", errors.New("connection refused"))
	recorder.Record("khoj", "fact_check", nil) // nil errors are ignored

	counts := recorder.Counts()
	if counts["groq"] != 2 {
		t.Errorf("expected 2 groq failures, got %d", counts["groq"])
	}
	if counts["serper"] != 1 {
		t.Errorf("expected 1 serper failure, got %d", counts["serper"])
	}
	if _, ok := counts["khoj"]; ok {
		t.Error("nil error must not be recorded")
	}
}

func TestLastEvent(t *testing.T) {
	recorder := NewRecorder(zaptest.NewLogger(t))

	recorder.Record("gemini", "main_chat", errors.New("deadline exceeded"))
	recorder.Record("gemini", "image_intent", errors.New("unauthorized"))

	event, ok := recorder.LastEvent("gemini")
	if !ok {
		t.Fatal("expected an event")
	}
	if event.Concern != "image_intent" || event.Kind != KindAuth {
		t.Errorf("expected latest auth event, got %+v", event)
	}

	if _, ok := recorder.LastEvent("unknown"); ok {
		t.Error("expected no event for unknown vendor")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err      string
		expected FailureKind
	}{
		{"request timeout after 30s", KindTimeout},
		{"context deadline exceeded", KindTimeout},
		{"401 unauthorized", KindAuth},
		{"invalid api key provided", KindAuth},
		{"rate limit reached for model", KindRateLimit},
		{"429 too many requests", KindRateLimit},
		{"dial tcp: connection refused", KindNetwork},
		{"lookup host: no such host", KindNetwork},
		{"vendor returned unexpected status 500", KindBadResponse},
		{"failed to decode search response", KindBadResponse},
		{"something completely novel", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			if got := classify(errors.New(tt.err)); got != tt.expected {
				t.Errorf("classify(%q) = %s, expected %s", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRecorderConcurrentUse(t *testing.T) {
	recorder := NewRecorder(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder.Record("groq", "main_chat", errors.New("boom"))
			recorder.Counts()
			recorder.LastEvent("groq")
		}()
	}
	wg.Wait()

	if got := recorder.Counts()["groq"]; got != 20 {
		t.Errorf("expected 20 recorded failures, got %d", got)
	}
}

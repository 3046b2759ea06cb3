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

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSearchCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-API-KEY"); key != "serper-key" {
			t.Errorf("unexpected api key header %q", key)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["q"] != "dhaka weather" {
			t.Errorf("unexpected query %q", body["q"])
		}

		organic := make([]Result, 8)
		for i := range organic {
			organic[i] = Result{
				Title:   fmt.Sprintf("Result %d", i+1),
				Link:    fmt.Sprintf("https://example.com/%d", i+1),
				Snippet: "snippet",
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"organic": organic})
	}))
	defer server.Close()

	client := NewClient(server.URL, "serper-key", 5, zaptest.NewLogger(t))

	results, err := client.Search(context.Background(), "dhaka weather")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected results capped at 5, got %d", len(results))
	}
	if results[0].Title != "Result 1" {
		t.Errorf("expected declared order preserved, got %q first", results[0].Title)
	}
}

func TestSearchVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "serper-key", 5, zaptest.NewLogger(t))

	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestSearchEmptyOrganic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"organic": []Result{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "serper-key", 5, zaptest.NewLogger(t))

	results, err := client.Search(context.Background(), "obscure query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestFormatContext(t *testing.T) {
	results := []Result{
		{Title: "First", Link: "https://a.example", Snippet: "first snippet"},
		{Title: "Second", Link: "https://b.example", Snippet: "second snippet"},
	}

	got := FormatContext("some query", results)

	if !strings.Contains(got, "[1] First\nfirst snippet\nURL: https://a.example") {
		t.Error("first citation block malformed")
	}
	if !strings.Contains(got, "[2] Second") {
		t.Error("second citation block missing")
	}
	if !strings.Contains(got, "Cite sources using [1], [2]") {
		t.Error("citation instruction missing")
	}
}

func TestFormatContextEmpty(t *testing.T) {
	if got := FormatContext("query", nil); got != "" {
		t.Errorf("expected empty context for no results, got %q", got)
	}
}

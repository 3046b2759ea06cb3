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

// Package search queries the Serper web-search API and formats organic
// results as a numbered citation block for prompt injection.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds the vendor call
const DefaultTimeout = 30 * time.Second

// Result is a single organic search hit
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// vendorResponse is the Serper API envelope, reduced to what we consume
type vendorResponse struct {
	Organic []Result `json:"organic"`
}

// Client calls the Serper search API
type Client struct {
	endpoint   string
	apiKey     string
	maxResults int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a search client. maxResults caps the organic results
// kept per query.
func NewClient(endpoint, apiKey string, maxResults int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// Search runs the query and returns up to maxResults organic results
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search vendor returned unexpected status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var vendor vendorResponse
	if err := json.NewDecoder(resp.Body).Decode(&vendor); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := vendor.Organic
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}

	c.logger.Info("Web search completed",
		zap.String("query", query),
		zap.Int("results", len(results)))

	return results, nil
}

// FormatContext renders the results as a numbered citation block with
// bracket-number citation instructions for the downstream model. Returns
// the empty string for an empty result list.
func FormatContext(query string, results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\nWeb Search Results for %q:\n", query)

	blocks := make([]string, 0, len(results))
	for i, result := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] %s\n%s\nURL: %s",
			i+1, result.Title, result.Snippet, result.Link))
	}
	sb.WriteString(strings.Join(blocks, "\n\n"))

	sb.WriteString("\n\nIMPORTANT: Use these search results to answer the user's question. " +
		"Cite sources using [1], [2], etc. format when referencing information from the search results.")

	return sb.String()
}

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

// Package factcheck queries the Khoj fact-checking service and formats its
// verdict for prompt injection. There is no retry and no alternate vendor:
// any failure means the turn simply proceeds without a fact-check block.
package factcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds the vendor call
const DefaultTimeout = 30 * time.Second

// Data is the vendor's verdict payload, forwarded verbatim to the caller
type Data struct {
	Verdict string   `json:"verdict"`
	Report  string   `json:"report"`
	Sources []string `json:"sources"`
	Claim   string   `json:"claim,omitempty"`
}

// vendorResponse is the Khoj API envelope
type vendorResponse struct {
	Success bool `json:"success"`
	Data    Data `json:"data"`
}

// Client calls the Khoj fact-check API
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a fact-check client
func NewClient(endpoint, apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// Check sends the user's claim to the vendor and returns its verdict. A
// non-success envelope is an error so callers treat it like any other
// vendor failure.
func (c *Client) Check(ctx context.Context, query string) (*Data, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fact-check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create fact-check request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fact-check request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fact-check vendor returned unexpected status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var vendor vendorResponse
	if err := json.NewDecoder(resp.Body).Decode(&vendor); err != nil {
		return nil, fmt.Errorf("failed to decode fact-check response: %w", err)
	}

	if !vendor.Success {
		return nil, fmt.Errorf("fact-check vendor reported non-success payload")
	}

	c.logger.Info("Fact-check completed",
		zap.String("verdict", vendor.Data.Verdict),
		zap.Int("sources", len(vendor.Data.Sources)))

	return &vendor.Data, nil
}

// FormatContext renders the verdict as an instruction block for the system
// prompt, telling the downstream model to incorporate the result and credit
// the vendor by name.
func FormatContext(claim string, data *Data) string {
	return fmt.Sprintf(`

Fact-Check Report for %q:
Verdict: %s
Report: %s
Sources used for verification: %d

Fact checked by [khoj](https://khoj-bd.com)

IMPORTANT: Incorporate this fact-check result into your answer. If the claim is false or unverified, clearly state that based on the provided report. At the end of your response, if you used this fact check, mention "Fact checked by [khoj](https://khoj-bd.com)".`,
		claim, data.Verdict, data.Report, len(data.Sources))
}

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

// Package imagegen synthesizes images from text prompts via the
// Pollinations API and uploads them to FreeImage for durable hosting. When
// hosting fails the base64 payload is returned as a data URI, so a
// successful synthesis always yields a usable image reference.
package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// uploadTimeout bounds the hosting upload; the synthesis timeout comes from
// configuration because rendering time dominates.
const uploadTimeout = 30 * time.Second

// Config contains both image vendors' settings
type Config struct {
	SynthesisEndpoint string
	SynthesisAPIKey   string
	Model             string
	Width             int
	Height            int
	SynthesisTimeout  time.Duration
	HostingEndpoint   string
	HostingAPIKey     string
}

// Generator renders prompts into hosted image URLs
type Generator struct {
	cfg          Config
	synthClient  *http.Client
	uploadClient *http.Client
	logger       *zap.Logger
}

// NewGenerator creates an image generator
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SynthesisTimeout <= 0 {
		cfg.SynthesisTimeout = 30 * time.Second
	}
	return &Generator{
		cfg:          cfg,
		synthClient:  &http.Client{Timeout: cfg.SynthesisTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
		logger:       logger,
	}
}

// Generate renders the prompt and returns an image reference: the hosted
// URL when the upload succeeds, otherwise a data URI carrying the base64
// payload. Synthesis failure returns an error and no partial state.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	b64, err := g.synthesize(ctx, prompt)
	if err != nil {
		return "", err
	}

	hostedURL, err := g.upload(ctx, b64)
	if err != nil {
		g.logger.Warn("Image hosting upload failed, falling back to data URI", zap.Error(err))
		return "data:image/png;base64," + b64, nil
	}

	return hostedURL, nil
}

// synthesize requests image rendering and returns the base64-encoded bytes
func (g *Generator) synthesize(ctx context.Context, prompt string) (string, error) {
	params := url.Values{}
	params.Set("model", g.cfg.Model)
	params.Set("width", strconv.Itoa(g.cfg.Width))
	params.Set("height", strconv.Itoa(g.cfg.Height))
	params.Set("nologo", "true")
	params.Set("enhance", "true")

	endpoint := fmt.Sprintf("%s/%s?%s",
		strings.TrimSuffix(g.cfg.SynthesisEndpoint, "/"),
		url.PathEscape(prompt),
		params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create image synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.SynthesisAPIKey)

	start := time.Now()
	resp, err := g.synthClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image synthesis request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("image synthesis returned unexpected status %d: %s",
			resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image payload: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("image synthesis returned an empty payload")
	}

	g.logger.Info("Image synthesis completed",
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)))

	return base64.StdEncoding.EncodeToString(raw), nil
}

// hostingResponse is the FreeImage upload envelope
type hostingResponse struct {
	StatusCode int `json:"status_code"`
	Image      struct {
		URL string `json:"url"`
	} `json:"image"`
}

// upload pushes the base64 payload to the hosting vendor and returns the
// permanent URL
func (g *Generator) upload(ctx context.Context, b64 string) (string, error) {
	var body strings.Builder
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"key":    g.cfg.HostingAPIKey,
		"action": "upload",
		"source": b64,
		"format": "json",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to build upload form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.HostingEndpoint,
		strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.uploadClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image upload request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var hosted hostingResponse
	if err := decodeJSON(resp.Body, &hosted); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	if hosted.StatusCode != http.StatusOK || hosted.Image.URL == "" {
		return "", fmt.Errorf("image host returned non-success status %d", hosted.StatusCode)
	}

	g.logger.Info("Image uploaded to durable hosting", zap.String("url", hosted.Image.URL))

	return hosted.Image.URL, nil
}

// decodeJSON decodes a JSON body
func decodeJSON(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

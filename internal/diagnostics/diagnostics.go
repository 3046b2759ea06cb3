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

// Package diagnostics records vendor failures that the request pipeline
// absorbs. End users get a degraded-but-successful response; operators get a
// structured event and a counter, so vendor outages stay observable.
package diagnostics

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FailureKind classifies an absorbed vendor failure
type FailureKind string

const (
	// KindTimeout indicates the vendor call exceeded its deadline
	KindTimeout FailureKind = "timeout"
	// KindAuth indicates the vendor rejected our credentials
	KindAuth FailureKind = "auth"
	// KindRateLimit indicates the vendor throttled us
	KindRateLimit FailureKind = "rate_limit"
	// KindBadResponse indicates a malformed or non-success vendor payload
	KindBadResponse FailureKind = "bad_response"
	// KindNetwork indicates a transport-level failure
	KindNetwork FailureKind = "network"
	// KindOther covers everything else
	KindOther FailureKind = "other"
)

// Event describes a single absorbed vendor failure
type Event struct {
	Vendor    string      `json:"vendor"`
	Concern   string      `json:"concern"`
	Kind      FailureKind `json:"kind"`
	Error     string      `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// Recorder accumulates absorbed-failure counts per vendor and emits a
// structured log event for each one. Safe for concurrent use.
type Recorder struct {
	logger *zap.Logger

	mu     sync.RWMutex
	counts map[string]int64
	last   map[string]Event
}

// NewRecorder creates a new failure recorder
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger: logger,
		counts: make(map[string]int64),
		last:   make(map[string]Event),
	}
}

// Record logs an absorbed vendor failure and bumps the vendor's counter
func (r *Recorder) Record(vendor, concern string, err error) {
	if err == nil {
		return
	}

	event := Event{
		Vendor:    vendor,
		Concern:   concern,
		Kind:      classify(err),
		Error:     err.Error(),
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	r.counts[vendor]++
	r.last[vendor] = event
	r.mu.Unlock()

	r.logger.Warn("Absorbed vendor failure",
		zap.String("vendor", vendor),
		zap.String("concern", concern),
		zap.String("kind", string(event.Kind)),
		zap.Error(err))
}

// Counts returns a snapshot of absorbed-failure counts per vendor
func (r *Recorder) Counts() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]int64, len(r.counts))
	for vendor, count := range r.counts {
		snapshot[vendor] = count
	}
	return snapshot
}

// LastEvent returns the most recent absorbed failure for a vendor, if any
func (r *Recorder) LastEvent(vendor string) (Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.last[vendor]
	return event, ok
}

// classify maps an error to a failure kind by inspecting its text. Vendor
// SDKs do not share an error taxonomy, so string matching is the common
// denominator.
func classify(err error) FailureKind {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "invalid api key"):
		return KindAuth
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return KindRateLimit
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") || strings.Contains(errStr, "network is unreachable"):
		return KindNetwork
	case strings.Contains(errStr, "unexpected status") || strings.Contains(errStr, "decode") ||
		strings.Contains(errStr, "unmarshal") || strings.Contains(errStr, "non-success"):
		return KindBadResponse
	default:
		return KindOther
	}
}

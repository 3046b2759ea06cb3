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

// Package health aggregates liveness checks for the chat server: the
// history database, vendor credential presence, and the diagnostics
// recorder's view of recent vendor outages. Vendor trouble degrades the
// status rather than failing it, mirroring how the pipeline absorbs
// vendor errors.
package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/kothakunjo/kothakunjo-server/internal/diagnostics"
	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"

	// DefaultTimeout bounds one full check pass
	DefaultTimeout = 5 * time.Second
)

// CheckResult is the outcome of a single dependency check
type CheckResult struct {
	Status    string                 `json:"status"`
	Latency   time.Duration          `json:"latency"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Response is the complete health report
type Response struct {
	Status       string                 `json:"status"`
	Service      string                 `json:"service"`
	Version      string                 `json:"version"`
	Uptime       time.Duration          `json:"uptime"`
	Dependencies map[string]CheckResult `json:"dependencies"`
	Metadata     map[string]interface{} `json:"metadata"`
	Timestamp    time.Time              `json:"timestamp"`
}

// Checker checks one dependency
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckerFunc is a function adapter for the Checker interface
type CheckerFunc func(ctx context.Context) CheckResult

// Check implements the Checker interface
func (f CheckerFunc) Check(ctx context.Context) CheckResult {
	return f(ctx)
}

// Manager runs the registered checkers and folds their statuses
type Manager struct {
	serviceName string
	version     string
	startTime   time.Time
	checkers    map[string]Checker
	timeout     time.Duration
	logger      *zap.Logger
}

// NewManager creates a health check manager
func NewManager(serviceName, version string, logger *zap.Logger) *Manager {
	return &Manager{
		serviceName: serviceName,
		version:     version,
		startTime:   time.Now(),
		checkers:    make(map[string]Checker),
		timeout:     DefaultTimeout,
		logger:      logger,
	}
}

// SetTimeout overrides the check pass timeout
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// AddChecker registers a dependency checker under a name
func (m *Manager) AddChecker(name string, checker Checker) {
	m.checkers[name] = checker
}

// Check runs every registered checker. Any unhealthy dependency makes the
// overall status unhealthy; degraded dependencies degrade it.
func (m *Manager) Check(ctx context.Context) Response {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	dependencies := make(map[string]CheckResult)
	overallStatus := StatusHealthy

	for name, checker := range m.checkers {
		start := time.Now()
		result := checker.Check(ctx)
		result.Latency = time.Since(start)
		result.Timestamp = time.Now()

		dependencies[name] = result

		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	return Response{
		Status:       overallStatus,
		Service:      m.serviceName,
		Version:      m.version,
		Uptime:       time.Since(m.startTime),
		Dependencies: dependencies,
		Metadata:     runtimeMetadata(),
		Timestamp:    time.Now(),
	}
}

func runtimeMetadata() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"memory_alloc": memStats.Alloc,
		"gc_runs":      memStats.NumGC,
	}
}

// DatabaseChecker checks the history database connection
func DatabaseChecker(name string, pingFunc func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()

		if err := pingFunc(ctx); err != nil {
			return CheckResult{
				Status:    StatusUnhealthy,
				Error:     fmt.Sprintf("database ping failed: %v", err),
				Latency:   time.Since(start),
				Timestamp: time.Now(),
			}
		}

		return CheckResult{
			Status:    StatusHealthy,
			Latency:   time.Since(start),
			Timestamp: time.Now(),
			Metadata: map[string]interface{}{
				"database": name,
			},
		}
	})
}

// CredentialChecker reports which vendor credentials are configured. A
// missing key degrades the service: the pipeline still answers, with the
// affected concern falling back.
func CredentialChecker(keys map[string]bool) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		missing := []string{}
		for vendor, present := range keys {
			if !present {
				missing = append(missing, vendor)
			}
		}

		if len(missing) > 0 {
			return CheckResult{
				Status:    StatusDegraded,
				Error:     fmt.Sprintf("missing credentials for %d vendor(s)", len(missing)),
				Timestamp: time.Now(),
				Metadata: map[string]interface{}{
					"missing": missing,
				},
			}
		}

		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}
	})
}

// VendorOutageChecker surfaces the diagnostics recorder's absorbed-failure
// counts. Failures at or above threshold for any vendor degrade the status;
// they never mark the service unhealthy because every vendor failure has a
// defined fallback.
func VendorOutageChecker(recorder *diagnostics.Recorder, threshold int64) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		counts := recorder.Counts()

		elevated := map[string]int64{}
		for vendor, count := range counts {
			if count >= threshold {
				elevated[vendor] = count
			}
		}

		if len(elevated) > 0 {
			return CheckResult{
				Status:    StatusDegraded,
				Error:     fmt.Sprintf("%d vendor(s) with elevated failure counts", len(elevated)),
				Timestamp: time.Now(),
				Metadata: map[string]interface{}{
					"failure_counts": elevated,
				},
			}
		}

		return CheckResult{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Metadata: map[string]interface{}{
				"failure_counts": counts,
			},
		}
	})
}

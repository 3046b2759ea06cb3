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

// Package fallback implements the ordered provider-fallback walk shared by
// every model-backed concern (title generation, search-query extraction,
// image-intent detection, main chat). Entries are tried strictly in order,
// one in flight at a time; the first non-empty response wins outright. Total
// exhaustion resolves to a concern-specific fallback value, never an error.
package fallback

import (
	"context"
	"strings"

	"github.com/kothakunjo/kothakunjo-server/internal/diagnostics"
	"github.com/kothakunjo/kothakunjo-server/internal/provider"
	"go.uber.org/zap"
)

// Step is one entry in an ordered fallback plan
type Step struct {
	// ProviderID names the vendor, for logs and the result
	ProviderID string
	// Model names the vendor model tried by this entry
	Model string
	// Invoke performs the single completion attempt
	Invoke func(ctx context.Context) (string, error)
}

// Result is the outcome of walking a plan
type Result struct {
	// Value is the winning response, or the fallback value on exhaustion
	Value string
	// SucceededVia names the provider that produced Value, empty on exhaustion
	SucceededVia string
	// Model names the winning model, empty on exhaustion
	Model string
	// Succeeded is false only when every entry failed or returned blank text
	Succeeded bool
}

// Executor walks fallback plans, recording each absorbed entry failure
type Executor struct {
	logger   *zap.Logger
	recorder *diagnostics.Recorder
}

// NewExecutor creates a plan executor
func NewExecutor(logger *zap.Logger, recorder *diagnostics.Recorder) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = diagnostics.NewRecorder(logger)
	}
	return &Executor{logger: logger, recorder: recorder}
}

// Execute walks the plan in order and returns the first non-empty response.
// An entry that errors, or that returns whitespace-only content, advances
// the walk; its failure is recorded but never propagated. When the plan is
// exhausted the concern's fallbackValue is returned with Succeeded=false.
func (e *Executor) Execute(ctx context.Context, concern string, plan []Step, fallbackValue string) Result {
	for _, step := range plan {
		content, err := step.Invoke(ctx)
		if err != nil {
			e.recorder.Record(step.ProviderID, concern, err)
			e.logger.Debug("Fallback entry failed, advancing",
				zap.String("concern", concern),
				zap.String("provider", step.ProviderID),
				zap.String("model", step.Model),
				zap.Error(err))
			continue
		}

		content = strings.TrimSpace(content)
		if content == "" {
			e.logger.Debug("Fallback entry returned empty content, advancing",
				zap.String("concern", concern),
				zap.String("provider", step.ProviderID),
				zap.String("model", step.Model))
			continue
		}

		return Result{
			Value:        content,
			SucceededVia: step.ProviderID,
			Model:        step.Model,
			Succeeded:    true,
		}
	}

	e.logger.Warn("Fallback plan exhausted, using concern fallback value",
		zap.String("concern", concern),
		zap.Int("entries_tried", len(plan)))

	return Result{Value: fallbackValue}
}

// BuildPlan constructs the standard tier ordering for a completion request:
// the primary provider's flagship model as a single-entry first tier, the
// secondary provider's models in declared order, then the primary provider's
// remaining models with the flagship skipped. The secondary provider gets
// its own request because its accepted parameters differ (temperature range,
// token accounting).
func BuildPlan(
	primary provider.Provider,
	secondary provider.Provider,
	flagshipModel string,
	primaryModels []string,
	secondaryModels []string,
	primaryReq provider.Request,
	secondaryReq provider.Request,
) []Step {
	var plan []Step

	plan = append(plan, NewStep(primary, flagshipModel, primaryReq))

	for _, model := range secondaryModels {
		plan = append(plan, NewStep(secondary, model, secondaryReq))
	}

	for _, model := range primaryModels {
		if model == flagshipModel {
			continue
		}
		plan = append(plan, NewStep(primary, model, primaryReq))
	}

	return plan
}

// NewStep binds one provider/model pair to a request
func NewStep(p provider.Provider, model string, req provider.Request) Step {
	r := req
	r.Model = model
	return Step{
		ProviderID: p.ID(),
		Model:      model,
		Invoke: func(ctx context.Context) (string, error) {
			return p.Complete(ctx, r)
		},
	}
}

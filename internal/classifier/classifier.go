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

// Package classifier decides which augmentation concerns an inbound chat
// turn activates. Classification is a pure function of the message text, the
// explicit plugin flags, and the configured trigger policy.
package classifier

import (
	"strings"

	"github.com/kothakunjo/kothakunjo-server/internal/config"
)

// Plugin identifiers accepted in the request's plugins array.
const (
	PluginWebSearch  = "web-search"
	PluginFactCheck  = "fact-check"
	PluginImage      = "image-generation"
	PluginDeepSearch = "deep-search"
)

// Triggers holds the per-concern activation decisions for one turn
type Triggers struct {
	FactCheck bool
	WebSearch bool
	Image     bool
}

// Config contains the trigger policy and phrase lists
type Config struct {
	Mode             string
	FactCheckPhrases []string
	WebSearchPhrases []string
	ImagePhrases     []string
}

// FromAppConfig builds a classifier config from the application config
func FromAppConfig(cfg config.TriggersConfig) Config {
	return Config{
		Mode:             cfg.Mode,
		FactCheckPhrases: cfg.FactCheckPhrases,
		WebSearchPhrases: cfg.WebSearchPhrases,
		ImagePhrases:     cfg.ImagePhrases,
	}
}

// Classify computes the trigger set for a message. A concern fires when its
// explicit plugin flag is set, or — in keywords_or_flags mode — when any of
// its phrases is a case-insensitive substring of the message. Phrases are
// literal substrings: no tokenization, no stemming. Under flags_only mode
// the phrase lists are ignored entirely.
func Classify(message string, plugins []string, cfg Config) Triggers {
	triggers := Triggers{
		FactCheck: hasPlugin(plugins, PluginFactCheck),
		WebSearch: hasPlugin(plugins, PluginWebSearch) || hasPlugin(plugins, PluginDeepSearch),
		Image:     hasPlugin(plugins, PluginImage),
	}

	if cfg.Mode == config.TriggerModeFlagsOnly {
		return triggers
	}

	messageLower := strings.ToLower(message)
	triggers.FactCheck = triggers.FactCheck || matchesAny(messageLower, cfg.FactCheckPhrases)
	triggers.WebSearch = triggers.WebSearch || matchesAny(messageLower, cfg.WebSearchPhrases)
	triggers.Image = triggers.Image || matchesAny(messageLower, cfg.ImagePhrases)

	return triggers
}

// matchesAny reports whether any phrase is a substring of the lower-cased message
func matchesAny(messageLower string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(messageLower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// hasPlugin checks for an explicit plugin flag
func hasPlugin(plugins []string, id string) bool {
	for _, p := range plugins {
		if p == id {
			return true
		}
	}
	return false
}

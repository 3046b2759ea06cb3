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

// Package prompt assembles the system prompt for a chat turn: persona
// block, user memory and preference blocks, resolver context, and the
// image acknowledgment instruction, concatenated in that fixed order.
package prompt

import (
	"fmt"
	"strings"
)

// Persona is a user-authored character definition, immutable for the turn
type Persona struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Age          string `json:"age,omitempty"`
	History      string `json:"history"`
	Relationship string `json:"relationship"`
	Theme        string `json:"theme,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

// UserConfig carries free-text personalization injected verbatim
type UserConfig struct {
	Memory     string `json:"memory,omitempty"`
	Preference string `json:"preference,omitempty"`
}

// Input collects everything the assembler consumes
type Input struct {
	// Character selects the custom-persona block when non-nil
	Character *Persona
	// UserConfig adds memory/preference blocks when non-nil
	UserConfig *UserConfig
	// SearchContext is the accumulated resolver context (citations,
	// fact-check verdict), possibly empty
	SearchContext string
	// ImagePrompt is set when an image was already generated out-of-band
	ImagePrompt string
}

// defaultIdentity is the assistant's default persona. The behavioral rules
// travel with the persona: reply in the user's language and script (Banglish
// in, Bengali script out), never format answers as tables, standard
// markdown outside code blocks.
const defaultIdentity = `আপনি কথাকুঞ্জ (Kothakunjo), যা কথাকুঞ্জ দল (Kothakunjo Team) দ্বারা ডিজাইন করা হয়েছে। আপনার প্রতিষ্ঠাতা মাহাথির আহমেদ তুষার। আপনি বাংলা ভাষায় বানানো একটি সৃজনশীল এবং বহুমুখী এআই সহকারী।

আপনার উদ্দেশ্য:
১. ব্যবহারকারীর সাথে বাংলা ভাষায় আড্ডা দেওয়া, গল্প শোনানো এবং জ্ঞান দান করা।
২. ব্যবহারকারীর বন্ধুর মতো আচরণ করা, যার সাথে জীবনের সুখ-দুঃখ ভাগ করা যায়।
৩. প্রযুক্তি, বিজ্ঞান, সাহিত্য এবং দর্শনের মতো বিষয়ে গভীর আলোচনা করা।
৪. ব্যবহারকারী বাংলিশ (যেমন: "ki obostha") ব্যবহার করলে অবশ্যই বাংলা অক্ষরে উত্তর দিন।
৫. কক্ষনো কোনো তথ্য টেবিল (Table) আকারে তৈরি করবেন না।
৬. কোড ব্লক ছাড়া সব জায়গাতে প্রমিত মার্কডাউন ফরম্যাট মেনে চলুন।`

// characterTemplate is the custom-persona block; the same language rules
// apply, plus staying in character.
const characterTemplate = `আপনি কথাকুঞ্জ (Kothakunjo), যা কথাকুঞ্জ দল (Kothakunjo Team) দ্বারা ডিজাইন করা হয়েছে। আপনি বাংলা ভাষায় বানানো একটি সৃজনশীল এবং বহুমুখী এআই সহকারী।

আপনার বর্তমান চরিত্র:
নাম: %s, ভূমিকা: %s।
পটভূমি: %s।
সম্পর্ক: %s।

ভাষা সংক্রান্ত নিয়ম:
১. যদি ব্যবহারকারী ইংরেজিতে কথা বলেন, তবে ইংরেজিতে উত্তর দিন।
২. যদি ব্যবহারকারী বাংলিশ (যেমন: "ki obostha") ব্যবহার করেন, তবে অবশ্যই বাংলা অক্ষরে উত্তর দিন।
৩. কক্ষনো কোনো তথ্য টেবিল (Table) আকারে তৈরি করবেন না।
৪. কোড ব্লক ছাড়া সব জায়গাতে প্রমিত মার্কডাউন ফরম্যাট মেনে চলুন।
৫. সর্বদা আপনার চরিত্রের সাথে সামঞ্জস্য রেখে কথা বলুন।`

// Assemble builds the system prompt by concatenation in fixed order:
// persona, memory, preference, resolver context, image instruction. No
// token-budget trimming happens here; history truncation is the caller's
// responsibility before the provider call.
func Assemble(in Input) string {
	var sb strings.Builder

	if in.Character != nil {
		fmt.Fprintf(&sb, characterTemplate,
			in.Character.Name, in.Character.Role, in.Character.History, in.Character.Relationship)
	} else {
		sb.WriteString(defaultIdentity)
	}

	if in.UserConfig != nil {
		if in.UserConfig.Memory != "" {
			sb.WriteString("\n\nব্যবহারকারীর স্মৃতি (User Memory - These are facts about the user you should remember): \n")
			sb.WriteString(in.UserConfig.Memory)
		}
		if in.UserConfig.Preference != "" {
			sb.WriteString("\n\nব্যবহারকারীর পছন্দ (Response Preference - Follow these instructions for your response style): \n")
			sb.WriteString(in.UserConfig.Preference)
		}
	}

	sb.WriteString(in.SearchContext)
	sb.WriteString(ImageInstruction(in.ImagePrompt))

	return sb.String()
}

// ImageInstruction returns the acknowledgment block injected when an image
// was already generated for this turn. The model must not claim it cannot
// generate images, because generation happened out-of-band before the
// completion call. Empty when no image prompt was accepted.
func ImageInstruction(imagePrompt string) string {
	if imagePrompt == "" {
		return ""
	}
	return fmt.Sprintf(`

IMPORTANT: The user wants to generate an image and your internal tools have already successfully triggered the image generation based on this prompt: %q.
Do NOT say "I cannot help" or "I am an AI and cannot create images".
Instead, respond positively and briefly in the user's language.
Suggested Bengali: "অবশ্যই, এই যে আপনার অনুরোধ করা ছবিটি তৈরি করে ফেলেছি!"
Suggested English: "Sure, I have generated the image you asked for!"`, imagePrompt)
}

// TruncateHistory keeps the most recent maxTurns messages. Providers reject
// or silently truncate over-long contexts; trimming here makes the policy
// explicit and deterministic.
func TruncateHistory[T any](history []T, maxTurns int) []T {
	if maxTurns <= 0 || len(history) <= maxTurns {
		return history
	}
	return history[len(history)-maxTurns:]
}

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

// Seeds the conversation history database with demo chats for local
// development of the conversation endpoints.
package main

import (
	"context"
	"log"
	"os"

	"github.com/kothakunjo/kothakunjo-server/internal/history"
)

type demoConversation struct {
	title string
	turns []struct{ role, content string }
}

var demoConversations = []demoConversation{
	{
		title: "আবহাওয়া নিয়ে আড্ডা",
		turns: []struct{ role, content string }{
			{"user", "আজকের আবহাওয়া কেমন?"},
			{"assistant", "আজ ঢাকায় আকাশ মেঘলা, বৃষ্টির সম্ভাবনা আছে [1]।"},
		},
	},
	{
		title: "বিড়ালের ছবি",
		turns: []struct{ role, content string }{
			{"user", "ছবি বানাও একটা বিড়ালের"},
			{"assistant", "অবশ্যই, এই যে আপনার অনুরোধ করা ছবিটি তৈরি করে ফেলেছি!"},
		},
	},
	{
		title: "মন খারাপের দিন",
		turns: []struct{ role, content string }{
			{"user", "আমার আজকে মন ভালো নেই"},
			{"assistant", "মন খারাপ থাকলে একটু হাঁটাহাঁটি করে আসুন, ভালো লাগবে। কী হয়েছে, বলবেন?"},
		},
	},
}

func main() {
	log.Println("🌱 Seeding demo conversation history...")

	dbPath := os.Getenv("HISTORY_DB_PATH")
	if dbPath == "" {
		dbPath = "./conversations.db"
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		log.Fatalf("❌ Failed to open history store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	for _, demo := range demoConversations {
		conv, err := store.CreateConversation(ctx, demo.title)
		if err != nil {
			log.Fatalf("❌ Failed to create conversation %q: %v", demo.title, err)
		}

		for _, turn := range demo.turns {
			if _, err := store.AppendMessage(ctx, conv.ID, turn.role, turn.content); err != nil {
				log.Fatalf("❌ Failed to append message: %v", err)
			}
		}

		log.Printf("✅ Seeded %q (%d messages)", demo.title, len(demo.turns))
	}

	log.Printf("🎉 Done: %d conversations in %s", len(demoConversations), dbPath)
}

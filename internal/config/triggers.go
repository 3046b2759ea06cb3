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

package config

// Default trigger-phrase tables for the three augmentation concerns. The
// lists mix Bengali script, romanized Banglish, and English because users
// switch freely between the three. Matching is case-insensitive substring
// containment; phrases are literal, not tokenized.

// DefaultFactCheckPhrases returns the default fact-check trigger phrases
func DefaultFactCheckPhrases() []string {
	return []string{
		"ফ্যাক্টচেক করো", "ফ্যাক্টচেক", "ফ্যাক্ট চেক", "যাচাই করে জানাও", "fact check it",
		"factcheck it", "verify it", "ভেরিফাই করো", "ভেরিফাই কর", "ভ্যারিফাই করো",
		"ভ্যারিফাই কর", "সত্যি কীনা", "এই দাবিটা সত্যি কিনা", "is the claim true",
		"verify the claim", "এই দাবিটা যাচাই করো", "এই দাবিটা যাচাই কর",
	}
}

// DefaultWebSearchPhrases returns the default web-search trigger phrases
func DefaultWebSearchPhrases() []string {
	return []string{
		"চলমান", "এইমাত্র প্রকাশিত", "দাম কত", "বর্তমান মূল্য", "ফলাফল", "স্কোর", "ভোটের ফল",
		"আবহাওয়া", "আপডেট দাও", "কবে প্রকাশ হয়েছে", "রিসেন্ট কিছু মুভি", "recent kichu movie",
		"recent kichu series", "এখন পাওয়া যাচ্ছে কি না", "ডাউনলোড লিংক",
		"সার্চ করো", "সার্চ কর", "search koro", "price koto", "update dao", "current price",
		"current news", "latest score", "IMDB", "score koto", "খোঁজ নাও", "বর্তমানে কোন",
		"বর্তমানে এভাইলেবল", "ekhon available", "currently available", "ajker weather",
		"recent news", "lastest news",
		"ajker date", "today's date", "আজকের তারিখ", "আজকের আবহাওয়া", "আজকের ওয়েদার",
		"কবে আসবে", "কোথায় পাবো", "কী কী আছে", "কি কি আছে", "ki ki ache", "ki ki ase",
		"kobe ashbe", "kobe asbe", "kbe asbe", "kothay pabo", "kothai pbo", "kthy pbo",
		"kobe release hobe", "khelar score koto", "কবে মুক্তি পাবে", "কবে রিলিজ হবে",
		"খেলার স্কোর কতো", "খেলার স্কোর কত", "আশেপাশে রেস্টুরেন্ট", "কাছে হাসপাতাল",
		"আশেপাশে হাসপাতাল", "when will it be released", "restaurant near", "hospital near",
		"ashe pashe hospital", "bhalo doctor kothay", "bhalo kono doctor",
		"bhalo restaurant suggest", "restaurant suggest", "recent movie suggest",
		"রিসেন্ট মুভি সাজেস্ট", "রিসেন্ট মুভি রিকমেন্ড", "সাম্প্রতিক সময়ের সিনেমা",
		"recent movie recommend", "recent kichu movie recommend", "recent book fair e",
		"এবারের বই মেলায়", "এই বছর কি", "search it", "khoj niye janao",
		"bengali ai fact checker", "who is the founder of", "খোঁজ এর প্রতিষ্ঠাতা কে",
		"যাচাই করো", "বাংলা এআই ফ্যাক্টচেকার", "খোঁজ ফ্যাক্টচেকার", "খোঁজ ফ্যাক্ট চেকার",
		"এআই ফ্যাক্টচেক", "এআই ফ্যাক্ট চেক", "এ বছর কী",
	}
}

// DefaultImagePhrases returns the default image-generation trigger phrases
func DefaultImagePhrases() []string {
	return []string{
		"generate image", "ছবি বানাও", "ছবি জেনারেট করো", "generate pic", "generate an image",
		"generate a photo", "generate photo", "ছবি আঁকো", "ফটো বানাও", "জেনারেট কর",
		"জেনারেট করো", "জেনারেট করেন", "জেনারেট করুন", "আঁকো", "draw an image",
		"draw a photo", "make a photo", "make an image", "aako", "aak", "ako",
		"draw koro", "draw kro", "draw kor", "eke dao", "aika dao", "aika daw", "eke daw",
		"create an image", "ছবি বানান", "ছবি বানা",
	}
}

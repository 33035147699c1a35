package moderation

import (
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/negahbanbot/negahban/internal/utils/text"
)

var (
	linkKeywords = []string{
		"http://", "https://", "www.",
		".com", ".ir", ".net", ".org",
		"t.me", "bit.ly",
	}

	skeletonSites = []string{
		"google", "youtube", "instagram", "telegram", "whatsapp",
		"sex", "porn", "xxx",
	}

	skeletonExtensions = []string{
		"com", "ir", "net", "org", "xyz", "tk", "info", "io", "me", "site",
	}

	skeletonPrefixes = []string{"http", "https", "www", "tme"}

	obfuscationSymbols = "./,\\_"
)

// HasLink reports whether a message carries a URL, in plain or obfuscated
// form. Detection is layered: platform entities first, then raw keyword
// substrings, then skeleton matching that survives spacing and separator
// tricks like "g o o g l e . c o m" or "google[.]com".
func HasLink(msg *api.Message) bool {
	if msg == nil {
		return false
	}

	for _, entities := range [][]api.MessageEntity{msg.Entities, msg.CaptionEntities} {
		for _, entity := range entities {
			if entity.IsURL() || entity.IsTextLink() {
				return true
			}
		}
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	if content == "" {
		return false
	}

	lowered := strings.ToLower(content)
	for _, keyword := range linkKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}

	// letters defeats spacing and separator insertion, skeleton
	// additionally defeats character repetition.
	letters := strings.Map(func(r rune) rune {
		if r < 'a' || r > 'z' {
			return -1
		}
		return r
	}, lowered)
	if letters == "" {
		return false
	}
	skeleton := text.Skeleton(content)

	for _, site := range skeletonSites {
		collapsedSite := text.Skeleton(site)
		for _, ext := range skeletonExtensions {
			if strings.Contains(letters, site+ext) {
				return true
			}
			// Short collapsed forms like "x" for "xxx" would match
			// almost anything, so the repetition-tolerant pass only
			// runs for sites that keep a recognizable stem.
			if len(collapsedSite) >= 3 && strings.Contains(skeleton, collapsedSite+ext) {
				return true
			}
		}
	}
	// The marker may sit anywhere in the stream, "join t me channel"
	// hides "tme" mid-sentence. Repeated markers like "www" never survive
	// skeleton collapsing, so this pass runs on the uncollapsed letters.
	for _, prefix := range skeletonPrefixes {
		if strings.Contains(letters, prefix) || strings.Contains(skeleton, prefix) {
			return true
		}
	}

	// A trailing extension alone is not enough: ordinary words end in
	// "me" or "ir" too. Require a separator symbol in the raw text and
	// a skeleton long enough to hold a host before the extension.
	if strings.ContainsAny(content, obfuscationSymbols) {
		for _, ext := range skeletonExtensions {
			if strings.HasSuffix(skeleton, ext) && len(skeleton) > len(ext)+2 {
				return true
			}
		}
	}

	return false
}

// MatchBannedWord returns the first listed word found in the content,
// checking both the raw lowercase form and the normalized form that
// collapses repeated characters and strips separators. Returns "" when
// nothing matches.
func MatchBannedWord(content string, words []string) string {
	if content == "" || len(words) == 0 {
		return ""
	}

	lowered := strings.ToLower(content)
	normalized := text.Normalize(content)
	for _, word := range words {
		if word == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(word)) {
			return word
		}
		if normalizedWord := text.Normalize(word); normalizedWord != "" && strings.Contains(normalized, normalizedWord) {
			return word
		}
	}
	return ""
}

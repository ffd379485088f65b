// Package splitter turns a block of input text into ordered scene texts of
// bounded size. The split is deterministic and idempotent: the same input
// always yields the same scene list.
package splitter

import (
	"regexp"
	"strings"
)

const (
	// Soft bounds for one scene. A scene closes once adding the next
	// sentence would push it past maxWords.
	minWords = 5
	maxWords = 18

	// Hard-chunk size applied to overlong scenes in post-processing.
	chunkWords = 15
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]+`)

	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`,
		"‘", "'", "’", "'", "‚", "'",
	)
)

// Split breaks text into scene texts of roughly minWords..maxWords words.
// Degenerate input (too short to split) yields the whole cleaned text as a
// single scene.
func Split(text string) []string {
	clean := normalize(text)
	if clean == "" {
		return nil
	}

	var sentences []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(clean, -1) {
		sentences = append(sentences, clean[loc[0]:loc[1]])
		end = loc[1]
	}
	// keep any trailing clause with no terminal punctuation
	if tail := strings.TrimSpace(clean[end:]); tail != "" {
		sentences = append(sentences, tail)
	}

	var scenes []string
	var current string
	wordCount := 0

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		words := len(strings.Fields(sentence))

		if wordCount > 0 && wordCount+words > maxWords {
			scenes = append(scenes, strings.TrimSpace(current))
			current = sentence
			wordCount = words
			continue
		}
		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
		wordCount += words
	}
	if strings.TrimSpace(current) != "" {
		scenes = append(scenes, strings.TrimSpace(current))
	}

	if len(scenes) == 0 {
		scenes = []string{clean}
	}

	return validate(scenes)
}

// validate applies the post-processing bounds: scenes longer than maxWords
// are hard-chunked into pieces of at most chunkWords words, and scenes
// shorter than minWords are merged into the preceding scene. The first scene
// is never merged away.
func validate(scenes []string) []string {
	var out []string
	for _, scene := range scenes {
		words := strings.Fields(scene)

		switch {
		case len(words) > maxWords:
			for start := 0; start < len(words); start += chunkWords {
				end := start + chunkWords
				if end > len(words) {
					end = len(words)
				}
				out = append(out, strings.Join(words[start:end], " "))
			}
		case len(words) < minWords && len(out) > 0:
			out[len(out)-1] += " " + scene
		default:
			out = append(out, scene)
		}
	}
	return out
}

// normalize collapses whitespace and folds typographic quotes to ASCII.
func normalize(text string) string {
	clean := strings.TrimSpace(text)
	clean = whitespaceRe.ReplaceAllString(clean, " ")
	return quoteReplacer.Replace(clean)
}

package splitter

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSceneBounds(t *testing.T) {
	text := "The sun rose slowly over the quiet mountain village that morning. " +
		"Children ran through the narrow streets laughing and calling to each other. " +
		"An old baker opened his shop and the smell of fresh bread drifted out. " +
		"Travelers arrived from distant towns seeking shelter and a warm meal. " +
		"By evening the square was full of music and dancing under the stars."

	scenes := Split(text)
	if len(scenes) < 2 {
		t.Fatalf("expected multiple scenes, got %d", len(scenes))
	}
	for i, scene := range scenes {
		if strings.TrimSpace(scene) == "" {
			t.Fatalf("scene %d is empty", i)
		}
		words := len(strings.Fields(scene))
		if i < len(scenes)-1 && (words < 5 || words > 18) {
			t.Errorf("scene %d has %d words, want 5..18: %q", i, words, scene)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "One small step. One giant leap for everyone watching at home! " +
		"Nothing would ever be quite the same after that broadcast. " +
		"The world had changed. Slowly people began to understand what it meant."

	first := Split(text)
	second := Split(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("splitter not deterministic:\n%v\n%v", first, second)
	}
}

func TestSplitDegenerateInput(t *testing.T) {
	scenes := Split("Just three words")
	if len(scenes) != 1 {
		t.Fatalf("expected single scene for short text, got %v", scenes)
	}
	if scenes[0] != "Just three words" {
		t.Fatalf("scene = %q", scenes[0])
	}

	if got := Split("   "); got != nil {
		t.Fatalf("blank input: got %v, want nil", got)
	}
}

func TestSplitHardChunksLongSentence(t *testing.T) {
	// One 30-word sentence with no internal punctuation must be chunked.
	words := make([]string, 30)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ") + "."

	scenes := Split(text)
	if len(scenes) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(scenes), scenes)
	}
	if n := len(strings.Fields(scenes[0])); n != 15 {
		t.Errorf("first chunk has %d words, want 15", n)
	}
}

func TestSplitMergesShortTrailingScene(t *testing.T) {
	text := "The storm arrived without any warning late in the afternoon hours. It ended."

	scenes := Split(text)
	if len(scenes) != 1 {
		t.Fatalf("expected short sentence merged into previous scene, got %v", scenes)
	}
	if !strings.HasSuffix(scenes[0], "It ended.") {
		t.Fatalf("merged scene = %q", scenes[0])
	}
}

func TestSplitNormalizesWhitespaceAndQuotes(t *testing.T) {
	text := "She said “hello there my old friend” and\t\n waved both hands."

	scenes := Split(text)
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes", len(scenes))
	}
	want := `She said "hello there my old friend" and waved both hands.`
	if scenes[0] != want {
		t.Fatalf("scene = %q, want %q", scenes[0], want)
	}
}

func TestSplitKeepsUnpunctuatedTail(t *testing.T) {
	text := "The keeper climbed the spiral stairs every evening at dusk without fail. " +
		"and the beam swept across the dark water until dawn"

	scenes := Split(text)
	joined := strings.Join(scenes, " ")
	if !strings.Contains(joined, "until dawn") {
		t.Fatalf("trailing clause lost: %v", scenes)
	}
	if normalize(joined) != normalize(text) {
		t.Fatalf("concatenated scenes differ from input:\n%q\n%q", joined, text)
	}
}

func TestSplitContentPreserved(t *testing.T) {
	text := "Deep beneath the city an ancient river still flows in darkness. " +
		"Engineers discovered it while digging a new subway tunnel last spring. " +
		"Their maps had shown nothing but solid rock at that depth."

	scenes := Split(text)
	joined := strings.Join(scenes, " ")
	if normalize(joined) != normalize(text) {
		t.Fatalf("concatenated scenes differ from input:\n%q\n%q", joined, text)
	}
}

package docparse

import (
	"strings"
	"testing"
)

// wordsOn lays words out left to right on one visual line.
func wordsOn(top float64, texts ...string) []Word {
	words := make([]Word, 0, len(texts))
	x := 10.0
	for _, txt := range texts {
		w := float64(len(txt)) * 6
		words = append(words, Word{
			Text: txt,
			Box:  Rect{X0: x, Top: top, X1: x + w, Bottom: top + 12},
		})
		x += w + 4
	}
	return words
}

func TestMatchLineToWordsSimple(t *testing.T) {
	pos, ok := matchLineToWords("Hello world", wordsOn(100, "Hello", "world"))
	if !ok {
		t.Fatal("expected a match")
	}
	if pos != 100 {
		t.Errorf("pos = %v, want 100", pos)
	}
}

func TestMatchLineToWordsPartial(t *testing.T) {
	words := wordsOn(50, "The", "quick", "brown", "fox")
	pos, ok := matchLineToWords("The quick brown", words)
	if !ok || pos != 50 {
		t.Errorf("pos, ok = %v, %v, want 50, true", pos, ok)
	}
}

func TestMatchLineToWordsNoMatch(t *testing.T) {
	if _, ok := matchLineToWords("Nonexistent text", wordsOn(100, "Other", "words")); ok {
		t.Error("expected no match")
	}
}

func TestMatchLineToWordsEmptyInputs(t *testing.T) {
	if _, ok := matchLineToWords("", wordsOn(100, "Hello")); ok {
		t.Error("empty line must not match")
	}
	if _, ok := matchLineToWords("Some text", nil); ok {
		t.Error("empty word list must not match")
	}
}

func TestMatchLineToWordsVerticalDrift(t *testing.T) {
	// "line" sits 50 units below "First", so the run ends after one word
	// and only its position counts.
	words := append(wordsOn(100, "First"), wordsOn(150, "line")...)
	pos, ok := matchLineToWords("First line", words)
	if !ok {
		t.Fatal("expected a match on the first word")
	}
	if pos != 100 {
		t.Errorf("pos = %v, want 100", pos)
	}
}

func TestMatchLineToWordsPunctuation(t *testing.T) {
	// Raw-text tokens carry punctuation the word records lack.
	pos, ok := matchLineToWords("Hello, world!", wordsOn(80, "Hello", "world"))
	if !ok || pos != 80 {
		t.Errorf("pos, ok = %v, %v, want 80, true", pos, ok)
	}
}

func TestMatchLineToWordsPrefersLongestRun(t *testing.T) {
	// A short echo of the line near the top must lose to the full run
	// further down.
	words := append(wordsOn(10, "alpha", "beta"), wordsOn(200, "alpha", "beta", "gamma")...)
	pos, ok := matchLineToWords("alpha beta gamma", words)
	if !ok || pos != 200 {
		t.Errorf("pos, ok = %v, %v, want 200, true", pos, ok)
	}
}

func TestMatchLineToWordsFirstRunWinsTies(t *testing.T) {
	words := append(wordsOn(10, "alpha", "beta"), wordsOn(200, "alpha", "beta")...)
	pos, ok := matchLineToWords("alpha beta", words)
	if !ok || pos != 10 {
		t.Errorf("pos, ok = %v, %v, want 10, true", pos, ok)
	}
}

func threeLineWords() []Word {
	words := wordsOn(100, "Line", "1")
	words = append(words, wordsOn(150, "Line", "2")...)
	words = append(words, wordsOn(200, "Line", "3")...)
	return words
}

func TestInsertTokensBetweenLines(t *testing.T) {
	refs := []visualRef{
		{pos: 125, token: "<<IMAGE_1>>"},
		{pos: 175, token: "<<DIAGRAM_2>>"},
	}
	got := insertTokens("Line 1\nLine 2\nLine 3", threeLineWords(), refs)
	want := "Line 1\n<<IMAGE_1>>\nLine 2\n<<DIAGRAM_2>>\nLine 3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertTokensTrailing(t *testing.T) {
	refs := []visualRef{{pos: 300, token: "<<IMAGE_1>>"}}
	got := insertTokens("Line 1\nLine 2\nLine 3", threeLineWords(), refs)
	want := "Line 1\nLine 2\nLine 3\n<<IMAGE_1>>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInsertTokensEqualPositionGoesAfter(t *testing.T) {
	// A visual level with a line is not "before" it; it flushes ahead of
	// the next lower line instead.
	refs := []visualRef{{pos: 150, token: "<<IMAGE_1>>"}}
	got := insertTokens("Line 1\nLine 2\nLine 3", threeLineWords(), refs)
	want := "Line 1\nLine 2\n<<IMAGE_1>>\nLine 3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAppendTokens(t *testing.T) {
	refs := []visualRef{
		{pos: 100, token: "<<IMAGE_1>>"},
		{pos: 200, token: "<<DIAGRAM_2>>"},
	}
	got := appendTokens("Some text", refs)
	want := "Some text\n<<IMAGE_1>>\n<<DIAGRAM_2>>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatPageBranches(t *testing.T) {
	refs := []visualRef{
		{pos: 100, token: "<<IMAGE_1>>"},
		{pos: 200, token: "<<DIAGRAM_2>>"},
	}

	if got := formatPage("", nil, refs); got != "<<IMAGE_1>>\n<<DIAGRAM_2>>" {
		t.Errorf("visuals-only page: got %q", got)
	}
	if got := formatPage("Just text", nil, nil); got != "Just text" {
		t.Errorf("text-only page: got %q", got)
	}
	if got := formatPage("Some text", nil, refs); got != "Some text\n<<IMAGE_1>>\n<<DIAGRAM_2>>" {
		t.Errorf("no word data: got %q", got)
	}
}

func TestFilterDiagramText(t *testing.T) {
	words := []Word{
		{Text: "Word1", Box: Rect{X0: 10, Top: 100, X1: 50, Bottom: 120}},
		{Text: "Word2", Box: Rect{X0: 60, Top: 100, X1: 100, Bottom: 120}},
		{Text: "Word3", Box: Rect{X0: 200, Top: 100, X1: 240, Bottom: 120}},
	}
	boxes := []Rect{{X0: 55, Top: 95, X1: 105, Bottom: 125}}

	text, kept := filterDiagramText("Word1 Word2 Word3", words, boxes)
	if text != "Word1 Word3" {
		t.Errorf("filtered text = %q, want %q", text, "Word1 Word3")
	}
	if len(kept) != 2 {
		t.Errorf("kept %d words, want 2", len(kept))
	}
}

func TestFilterDiagramTextNoBoxes(t *testing.T) {
	words := wordsOn(100, "Word1", "Word2")
	text, kept := filterDiagramText("Word1 Word2", words, nil)
	if text != "Word1 Word2" || len(kept) != 2 {
		t.Errorf("no boxes must leave input untouched, got %q, %d words", text, len(kept))
	}
}

func TestFilterDiagramTextAllFiltered(t *testing.T) {
	words := []Word{
		{Text: "Word1", Box: Rect{X0: 10, Top: 100, X1: 50, Bottom: 120}},
		{Text: "Word2", Box: Rect{X0: 60, Top: 100, X1: 100, Bottom: 120}},
	}
	boxes := []Rect{{X0: 0, Top: 0, X1: 200, Bottom: 200}}

	text, kept := filterDiagramText("Word1 Word2", words, boxes)
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
	if len(kept) != 0 {
		t.Errorf("expected no words kept, got %d", len(kept))
	}
}

func TestFilterDiagramTextDropsEmptiedLines(t *testing.T) {
	words := []Word{
		{Text: "Line1Word1", Box: Rect{X0: 10, Top: 100, X1: 50, Bottom: 120}},
		{Text: "Line1Word2", Box: Rect{X0: 60, Top: 100, X1: 100, Bottom: 120}},
		{Text: "Line2Word1", Box: Rect{X0: 10, Top: 150, X1: 50, Bottom: 170}},
		{Text: "Line2Word2", Box: Rect{X0: 60, Top: 150, X1: 100, Bottom: 170}},
	}
	boxes := []Rect{{X0: 0, Top: 140, X1: 200, Bottom: 180}}

	text, kept := filterDiagramText("Line1Word1 Line1Word2\nLine2Word1 Line2Word2", words, boxes)
	if text != "Line1Word1 Line1Word2" {
		t.Errorf("second line should vanish, got %q", text)
	}
	if len(kept) != 2 {
		t.Errorf("kept %d words, want 2", len(kept))
	}
	if strings.Contains(text, "Line2Word1") {
		t.Error("diagram-internal word leaked into text")
	}
}

func TestFilterDiagramTextBoundaryInclusive(t *testing.T) {
	words := []Word{
		{Text: "Edge", Box: Rect{X0: 100, Top: 100, X1: 150, Bottom: 130}},
	}
	boxes := []Rect{{X0: 100, Top: 100, X1: 150, Bottom: 130}}

	text, kept := filterDiagramText("Edge", words, boxes)
	if text != "" || len(kept) != 0 {
		t.Errorf("word on the boundary counts as inside, got %q, %d words", text, len(kept))
	}
}

func TestFilterDiagramTextCountsOccurrences(t *testing.T) {
	// Two tokens with the same text, only one inside a diagram: exactly one
	// occurrence must disappear.
	words := []Word{
		{Text: "dup", Box: Rect{X0: 10, Top: 100, X1: 40, Bottom: 120}},
		{Text: "dup", Box: Rect{X0: 60, Top: 300, X1: 90, Bottom: 320}},
	}
	boxes := []Rect{{X0: 50, Top: 290, X1: 100, Bottom: 330}}

	text, kept := filterDiagramText("dup dup", words, boxes)
	if text != "dup" {
		t.Errorf("filtered text = %q, want %q", text, "dup")
	}
	if len(kept) != 1 {
		t.Errorf("kept %d words, want 1", len(kept))
	}
}

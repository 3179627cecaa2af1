package docparse

import (
	"math"
	"strings"
	"testing"
)

func almostEq(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssembleWordsSingleLine(t *testing.T) {
	spans := []textSpan{
		{S: "Hello", X: 10, Y: 700, W: 30, FontSize: 12},
		{S: "world", X: 45, Y: 700, W: 30, FontSize: 12},
	}
	words, text := assembleWords(spans, 792)

	if text != "Hello world" {
		t.Errorf("text = %q, want %q", text, "Hello world")
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	w := words[0]
	if w.Text != "Hello" {
		t.Errorf("word 0 = %q", w.Text)
	}
	if !almostEq(w.Box.Top, 792-700-0.8*12) || !almostEq(w.Box.Bottom, 792-700+0.2*12) {
		t.Errorf("word 0 box = %+v", w.Box)
	}
	if !almostEq(w.Box.X0, 10) || !almostEq(w.Box.X1, 40) {
		t.Errorf("word 0 horizontal extent = %+v", w.Box)
	}
}

func TestAssembleWordsSplitsOnSpaces(t *testing.T) {
	spans := []textSpan{{S: "Hello world", X: 10, Y: 700, W: 66, FontSize: 12}}
	words, text := assembleWords(spans, 792)

	if text != "Hello world" {
		t.Errorf("text = %q", text)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d: %+v", len(words), words)
	}
	if words[0].Text != "Hello" || words[1].Text != "world" {
		t.Errorf("words = %q, %q", words[0].Text, words[1].Text)
	}
	if !almostEq(words[1].Box.X0, 46) {
		t.Errorf("second word X0 = %v, want 46", words[1].Box.X0)
	}
}

func TestAssembleWordsOrdersRowsTopFirst(t *testing.T) {
	spans := []textSpan{
		{S: "C", X: 10, Y: 650, W: 6, FontSize: 12},
		{S: "D", X: 20, Y: 650, W: 6, FontSize: 12},
		{S: "A", X: 10, Y: 700, W: 6, FontSize: 12},
		{S: "B", X: 20, Y: 700, W: 6, FontSize: 12},
	}
	_, text := assembleWords(spans, 792)
	if text != "A B\nC D" {
		t.Errorf("text = %q, want %q", text, "A B\nC D")
	}
}

func TestAssembleWordsRowTolerance(t *testing.T) {
	// Baselines one unit apart belong to the same visual row.
	spans := []textSpan{
		{S: "right", X: 60, Y: 699, W: 30, FontSize: 12},
		{S: "left", X: 10, Y: 700, W: 24, FontSize: 12},
	}
	_, text := assembleWords(spans, 792)
	if text != "left right" {
		t.Errorf("text = %q, want %q", text, "left right")
	}
}

func TestAssembleWordsJoinsAdjacentSpans(t *testing.T) {
	// A word broken across spans with no real gap stays one word.
	spans := []textSpan{
		{S: "ab", X: 10, Y: 700, W: 12, FontSize: 12},
		{S: "cd", X: 23, Y: 700, W: 12, FontSize: 12},
	}
	words, text := assembleWords(spans, 792)
	if text != "abcd" || len(words) != 1 {
		t.Errorf("got %q, %d words, want one word %q", text, len(words), "abcd")
	}

	spans[1].X = 40
	words, text = assembleWords(spans, 792)
	if text != "ab cd" || len(words) != 2 {
		t.Errorf("got %q, %d words, want two words", text, len(words))
	}
}

func TestAssembleWordsEmpty(t *testing.T) {
	words, text := assembleWords(nil, 792)
	if len(words) != 0 || text != "" {
		t.Errorf("expected empty result, got %q, %d words", text, len(words))
	}
}

func TestAssembleWordsMatchableText(t *testing.T) {
	// Every line of the assembled text must position-match against the
	// assembled words, since downstream interleaving relies on it.
	spans := []textSpan{
		{S: "Lab Report 3", X: 10, Y: 720, W: 72, FontSize: 12},
		{S: "Results and discussion", X: 10, Y: 700, W: 132, FontSize: 12},
		{S: "The circuit worked", X: 10, Y: 680, W: 108, FontSize: 12},
	}
	words, text := assembleWords(spans, 792)
	for _, line := range strings.Split(text, "\n") {
		if _, ok := matchLineToWords(line, words); !ok {
			t.Errorf("line %q did not match its own words", line)
		}
	}
}

package docparse

import (
	"sort"
	"strings"
	"unicode"
)

// textSpan is one positioned run of characters from the underlying reader,
// with X/Y the baseline origin in bottom-origin page coordinates.
type textSpan struct {
	S        string
	X, Y     float64
	W        float64
	FontSize float64
}

// rowYTolerance groups spans whose baselines differ by no more than this
// into one visual row.
const rowYTolerance = 2.0

// assembleWords turns raw text spans into reading-order words with top-origin
// boxes, plus the page text those words spell: rows top to bottom, words left
// to right, one row per line, single spaces between words. Building the text
// from the same word records keeps the two views consistent, which the
// line-position matcher depends on.
func assembleWords(spans []textSpan, pageHeight float64) ([]Word, string) {
	rows := groupRows(spans)
	if len(rows) == 0 {
		return nil, ""
	}

	var words []Word
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		rowWords := splitRowWords(row, pageHeight)
		if len(rowWords) == 0 {
			continue
		}
		texts := make([]string, len(rowWords))
		for i, w := range rowWords {
			texts[i] = w.Text
		}
		words = append(words, rowWords...)
		lines = append(lines, strings.Join(texts, " "))
	}
	return words, strings.Join(lines, "\n")
}

// groupRows sorts spans top-of-page first and buckets them into baseline
// rows, each row ordered left to right.
func groupRows(spans []textSpan) [][]textSpan {
	kept := make([]textSpan, 0, len(spans))
	for _, s := range spans {
		if s.S != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Y != kept[j].Y {
			return kept[i].Y > kept[j].Y
		}
		return kept[i].X < kept[j].X
	})

	var rows [][]textSpan
	current := []textSpan{kept[0]}
	rowY := kept[0].Y
	for _, s := range kept[1:] {
		if rowY-s.Y > rowYTolerance {
			rows = append(rows, current)
			current = nil
			rowY = s.Y
		}
		current = append(current, s)
	}
	rows = append(rows, current)

	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	}
	return rows
}

// wordBuilder accumulates one word's characters and box extents.
type wordBuilder struct {
	text   strings.Builder
	x0, x1 float64
	top    float64
	bottom float64
}

func (b *wordBuilder) add(r rune, x0, x1, top, bottom float64) {
	if b.text.Len() == 0 {
		b.x0, b.top, b.bottom = x0, top, bottom
	} else {
		if top < b.top {
			b.top = top
		}
		if bottom > b.bottom {
			b.bottom = bottom
		}
	}
	b.x1 = x1
	b.text.WriteRune(r)
}

func (b *wordBuilder) flush(words []Word) []Word {
	if b.text.Len() == 0 {
		return words
	}
	words = append(words, Word{
		Text: b.text.String(),
		Box:  Rect{X0: b.x0, Top: b.top, X1: b.x1, Bottom: b.bottom},
	})
	b.text.Reset()
	return words
}

// splitRowWords walks a row's spans character by character, breaking words on
// whitespace and on horizontal gaps wider than a fraction of the font size.
// Character boxes come from spreading each span's width evenly over its
// runes, which is close enough for position matching and region tests.
func splitRowWords(row []textSpan, pageHeight float64) []Word {
	var words []Word
	var b wordBuilder
	prevEnd := 0.0
	started := false

	for _, s := range row {
		fs := s.FontSize
		if fs <= 0 {
			fs = 10
		}
		top := pageHeight - s.Y - 0.8*fs
		bottom := pageHeight - s.Y + 0.2*fs

		runes := []rune(s.S)
		charW := s.W / float64(len(runes))

		gapLimit := 0.3 * fs
		if gapLimit < 1.5 {
			gapLimit = 1.5
		}
		if started && s.X-prevEnd > gapLimit {
			words = b.flush(words)
		}

		x := s.X
		for _, r := range runes {
			if unicode.IsSpace(r) {
				words = b.flush(words)
			} else {
				b.add(r, x, x+charW, top, bottom)
			}
			x += charW
		}
		prevEnd = s.X + s.W
		started = true
	}
	return b.flush(words)
}

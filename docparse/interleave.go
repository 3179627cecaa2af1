package docparse

import (
	"math"
	"strings"
)

// visualRef is one pending token insertion: where a visual sits vertically
// and the placeholder that stands in for it.
type visualRef struct {
	pos   float64
	token string
}

// matchLineToWords estimates a text line's vertical position by locating the
// longest run of page words that matches the line's tokens in sequence. A
// token matches a word when they are equal or either contains the other,
// which tolerates the punctuation and hyphenation differences between raw
// text extraction and word records. A run ends at the first mismatch, or
// when two consecutive matched words drift apart vertically by more than
// lineYTolerance, which keeps textually identical content elsewhere on the
// page from hijacking the match. Ties between equal-length runs go to the
// earliest. The reported position is the mean top of the winning run; ok is
// false when nothing matches.
func matchLineToWords(line string, words []Word) (pos float64, ok bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || len(words) == 0 {
		return 0, false
	}

	var best []Word
	for start := range words {
		run := matchRun(tokens, words[start:])
		if len(run) > len(best) {
			best = run
		}
		if len(best) == len(tokens) {
			break
		}
	}
	if len(best) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, w := range best {
		sum += w.Box.Top
	}
	return sum / float64(len(best)), true
}

func matchRun(tokens []string, words []Word) []Word {
	var run []Word
	for i, tok := range tokens {
		if i >= len(words) {
			break
		}
		w := words[i]
		if !fuzzyMatch(tok, w.Text) {
			break
		}
		if len(run) > 0 && math.Abs(w.Box.Top-run[len(run)-1].Box.Top) > lineYTolerance {
			break
		}
		run = append(run, w)
	}
	return run
}

func fuzzyMatch(token, word string) bool {
	return token == word || strings.Contains(word, token) || strings.Contains(token, word)
}

// insertTokens walks the text line by line, flushing every pending visual
// whose position falls strictly above the current line before emitting the
// line itself. Lines whose position cannot be determined are passed through
// without flushing. Visuals left over after the last line trail the text.
func insertTokens(text string, words []Word, refs []visualRef) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+len(refs))
	next := 0
	for _, line := range lines {
		if pos, ok := matchLineToWords(line, words); ok {
			for next < len(refs) && refs[next].pos < pos {
				out = append(out, refs[next].token)
				next++
			}
		}
		out = append(out, line)
	}
	for ; next < len(refs); next++ {
		out = append(out, refs[next].token)
	}
	return strings.Join(out, "\n")
}

// appendTokens is the fallback when no word positions are available: the
// full text block first, then every token on its own line.
func appendTokens(text string, refs []visualRef) string {
	var b strings.Builder
	b.WriteString(text)
	for _, r := range refs {
		b.WriteString("\n")
		b.WriteString(r.token)
	}
	return b.String()
}

// tokensOnly renders a page that has visuals but no text, one token per line.
func tokensOnly(refs []visualRef) string {
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = r.token
	}
	return strings.Join(lines, "\n")
}

// formatPage merges one page's text and visual references into a single
// string, choosing the interleaving strategy the available data supports.
func formatPage(text string, words []Word, refs []visualRef) string {
	switch {
	case text == "":
		return tokensOnly(refs)
	case len(refs) == 0:
		return text
	case len(words) == 0:
		return appendTokens(text, refs)
	default:
		return insertTokens(text, words, refs)
	}
}

// wordInAny reports whether the word's box lies fully inside any of the
// boxes, boundary included.
func wordInAny(w Word, boxes []Rect) bool {
	for _, b := range boxes {
		if b.Contains(w.Box) {
			return true
		}
	}
	return false
}

// filterDiagramText drops words that sit inside a rendered diagram region,
// from both the word list and the raw text, so diagram-internal labels are
// not duplicated as page prose. Removal from text is by occurrence count:
// each excluded word cancels one matching token, scanning lines in order.
// Lines emptied by the removal disappear entirely.
func filterDiagramText(text string, words []Word, boxes []Rect) (string, []Word) {
	if len(boxes) == 0 {
		return text, words
	}

	kept := make([]Word, 0, len(words))
	removed := make(map[string]int)
	for _, w := range words {
		if wordInAny(w, boxes) {
			removed[w.Text]++
			continue
		}
		kept = append(kept, w)
	}
	if len(removed) == 0 {
		return text, words
	}

	var outLines []string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		keptFields := make([]string, 0, len(fields))
		for _, f := range fields {
			if removed[f] > 0 {
				removed[f]--
				continue
			}
			keptFields = append(keptFields, f)
		}
		if len(keptFields) > 0 {
			outLines = append(outLines, strings.Join(keptFields, " "))
		}
	}
	return strings.Join(outLines, "\n"), kept
}

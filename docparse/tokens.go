package docparse

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tokenPattern matches a visual placeholder token. Kind matching is
// case-insensitive on input for robustness against model-edited text, but
// tokens are always emitted uppercase.
var tokenPattern = regexp.MustCompile(`(?i)<<(IMAGE|DIAGRAM)_(\d+)>>`)

// Token returns the placeholder written into document text for this element:
// <<IMAGE_N>> or <<DIAGRAM_N>> with N the element's global index.
func (v VisualElement) Token() string {
	return fmt.Sprintf("<<%s_%d>>", strings.ToUpper(string(v.Kind)), v.GlobalIndex)
}

// ContentBlock is one entry of a multimodal message: either a span of text or
// a PNG image.
type ContentBlock struct {
	Type string // BlockText or BlockImage
	Text string
	PNG  []byte
}

const (
	BlockText  = "text"
	BlockImage = "image"
)

// DataURI encodes the block's PNG as a base64 data URI for transport.
func (b ContentBlock) DataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b.PNG)
}

// BuildContentBlocks inverts tokenization: it splits text on placeholder
// tokens and substitutes each token with its visual's image, yielding the
// ordered text/image sequence a multimodal request needs.
//
// A token with no matching visual (stale or hand-edited input) is dropped
// rather than passed through as stray text. Text segments that are empty,
// purely numeric, or bracket debris from a mangled token are skipped. The
// result always has at least one block: with no visuals, or when filtering
// consumes everything, the original text comes back as a single text block.
func BuildContentBlocks(text string, visuals []VisualElement) []ContentBlock {
	if len(visuals) == 0 {
		return []ContentBlock{{Type: BlockText, Text: text}}
	}

	byToken := make(map[string]VisualElement, len(visuals))
	for _, v := range visuals {
		if v.GlobalIndex > 0 {
			byToken[v.Token()] = v
		}
	}

	var blocks []ContentBlock
	for _, seg := range splitOnTokens(text) {
		if m := tokenPattern.FindStringSubmatch(seg); m != nil {
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			key := fmt.Sprintf("<<%s_%d>>", strings.ToUpper(m[1]), idx)
			if v, ok := byToken[key]; ok && len(v.PNG) > 0 {
				blocks = append(blocks, ContentBlock{Type: BlockImage, PNG: v.PNG})
			}
			continue
		}
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" || isTokenDebris(trimmed) {
			continue
		}
		blocks = append(blocks, ContentBlock{Type: BlockText, Text: trimmed})
	}

	if len(blocks) == 0 {
		return []ContentBlock{{Type: BlockText, Text: text}}
	}
	return blocks
}

// splitOnTokens splits text on the token pattern, keeping each token as its
// own segment so callers can substitute it in place.
func splitOnTokens(text string) []string {
	locs := tokenPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	var segs []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			segs = append(segs, text[prev:loc[0]])
		}
		segs = append(segs, text[loc[0]:loc[1]])
		prev = loc[1]
	}
	if prev < len(text) {
		segs = append(segs, text[prev:])
	}
	return segs
}

// isTokenDebris reports whether a trimmed segment is a leftover fragment of
// a broken token: all digits, or nothing but brackets and underscores.
func isTokenDebris(s string) bool {
	digits, brackets := true, true
	for _, r := range s {
		if r < '0' || r > '9' {
			digits = false
		}
		switch r {
		case '<', '>', '(', ')', '_':
		default:
			brackets = false
		}
	}
	return digits || brackets
}

package agents

import (
	"regexp"
	"strings"
)

var openTagPattern = regexp.MustCompile(`<(\w+)>`)

// ParseTaggedSections extracts <tag>content</tag> sections from a model
// response into a tag-to-content map. Content is trimmed; sections with no
// closing tag are skipped; a repeated tag keeps the last occurrence.
func ParseTaggedSections(s string) map[string]string {
	sections := make(map[string]string)
	for _, m := range openTagPattern.FindAllStringSubmatchIndex(s, -1) {
		tag := s[m[2]:m[3]]
		rest := s[m[1]:]
		end := strings.Index(rest, "</"+tag+">")
		if end < 0 {
			continue
		}
		sections[tag] = strings.TrimSpace(rest[:end])
	}
	return sections
}

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSONBlock pulls the JSON object out of a model response. It
// handles ```json fenced blocks, stray fence markers, and prose around the
// object; the returned string starts at the first '{' and ends at the last
// '}'. Returns "" when no object is present.
func ExtractJSONBlock(s string) string {
	if m := fencedJSONPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	} else {
		s = strings.TrimSpace(s)
		if rest, ok := strings.CutPrefix(s, "```json"); ok {
			s = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(s, "```"); ok {
			s = strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutSuffix(s, "```"); ok {
			s = strings.TrimSpace(rest)
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// SplitThinking separates a THINKING/FINAL_OUTPUT-templated response into
// its two parts. Without a FINAL_OUTPUT marker the whole response is
// returned as the final part.
func SplitThinking(s string) (thinking, final string) {
	const marker = "FINAL_OUTPUT:"
	idx := strings.Index(s, marker)
	if idx < 0 {
		return "", strings.TrimSpace(s)
	}
	head := s[:idx]
	if t := strings.Index(head, "THINKING:"); t >= 0 {
		head = head[t+len("THINKING:"):]
	}
	return strings.TrimSpace(head), strings.TrimSpace(s[idx+len(marker):])
}

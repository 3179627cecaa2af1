package docparse

import (
	"strconv"
)

// The underlying reader exposes positioned text but not vector paths or
// image placements, so those come from a small scan of the page's content
// stream: enough of the operator set to track the transform matrix, collect
// path extents, and catch image XObject draws. Everything irrelevant to
// geometry (text showing, color, clipping state) is consumed and ignored.

// matrix is a PDF transform [a b c d e f], mapping row vectors:
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix [6]float64

var identityMatrix = matrix{1, 0, 0, 1, 0, 0}

// mul returns the concatenation "apply m, then n".
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// bboxAcc accumulates min/max extents in bottom-origin device space.
type bboxAcc struct {
	minX, minY, maxX, maxY float64
	set                    bool
}

func (b *bboxAcc) add(x, y float64) {
	if !b.set {
		b.minX, b.maxX, b.minY, b.maxY = x, x, y, y
		b.set = true
		return
	}
	if x < b.minX {
		b.minX = x
	}
	if x > b.maxX {
		b.maxX = x
	}
	if y < b.minY {
		b.minY = y
	}
	if y > b.maxY {
		b.maxY = y
	}
}

// xobjectResolver answers whether a named XObject on the current page is a
// raster image.
type xobjectResolver interface {
	isImage(name string) bool
}

// contentScanner interprets one page's content stream, accumulating vector
// shapes and image placements in top-origin page coordinates.
type contentScanner struct {
	res        xobjectResolver
	pageHeight float64
	offX, offY float64 // media box origin

	ctm   matrix
	saved []matrix

	pathBox  bboxAcc
	rects    []bboxAcc // one per rectangle op in the current path
	hasCurve bool

	shapes []Shape
	images []ImagePlacement
}

// scanContent extracts shapes and image placements from raw content-stream
// bytes. It is best-effort: malformed operators are skipped, never fatal.
func scanContent(data []byte, res xobjectResolver, pageHeight, offX, offY float64) ([]Shape, []ImagePlacement) {
	s := &contentScanner{
		res:        res,
		pageHeight: pageHeight,
		offX:       offX,
		offY:       offY,
		ctm:        identityMatrix,
	}
	s.run(data)
	return s.shapes, s.images
}

func (s *contentScanner) run(data []byte) {
	lex := &csLexer{data: data}
	var nums []float64
	var lastName string

	for {
		tok, ok := lex.next()
		if !ok {
			return
		}
		switch tok.kind {
		case tokNumber:
			nums = append(nums, tok.num)
		case tokName:
			lastName = tok.str
		case tokOperator:
			s.exec(tok.str, nums, lastName, lex)
			nums = nums[:0]
			lastName = ""
		default:
			// strings, arrays, dicts: consumed, not operands we need
		}
	}
}

func (s *contentScanner) exec(op string, nums []float64, name string, lex *csLexer) {
	// take returns the last n numeric operands, or nil when short.
	take := func(n int) []float64 {
		if len(nums) < n {
			return nil
		}
		return nums[len(nums)-n:]
	}

	switch op {
	case "q":
		s.saved = append(s.saved, s.ctm)
	case "Q":
		if n := len(s.saved); n > 0 {
			s.ctm = s.saved[n-1]
			s.saved = s.saved[:n-1]
		}
	case "cm":
		if v := take(6); v != nil {
			s.ctm = matrix{v[0], v[1], v[2], v[3], v[4], v[5]}.mul(s.ctm)
		}
	case "m", "l":
		if v := take(2); v != nil {
			s.pathBox.add(s.ctm.apply(v[0], v[1]))
		}
	case "c":
		if v := take(6); v != nil {
			s.pathBox.add(s.ctm.apply(v[0], v[1]))
			s.pathBox.add(s.ctm.apply(v[2], v[3]))
			s.pathBox.add(s.ctm.apply(v[4], v[5]))
			s.hasCurve = true
		}
	case "v", "y":
		if v := take(4); v != nil {
			s.pathBox.add(s.ctm.apply(v[0], v[1]))
			s.pathBox.add(s.ctm.apply(v[2], v[3]))
			s.hasCurve = true
		}
	case "re":
		if v := take(4); v != nil {
			var box bboxAcc
			x, y, w, h := v[0], v[1], v[2], v[3]
			box.add(s.ctm.apply(x, y))
			box.add(s.ctm.apply(x+w, y))
			box.add(s.ctm.apply(x, y+h))
			box.add(s.ctm.apply(x+w, y+h))
			s.rects = append(s.rects, box)
			s.pathBox.add(box.minX, box.minY)
			s.pathBox.add(box.maxX, box.maxY)
		}
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		s.flushPath(true)
	case "n":
		s.flushPath(false)
	case "Do":
		if name != "" && s.res != nil && s.res.isImage(name) {
			var box bboxAcc
			box.add(s.ctm.apply(0, 0))
			box.add(s.ctm.apply(1, 0))
			box.add(s.ctm.apply(0, 1))
			box.add(s.ctm.apply(1, 1))
			s.images = append(s.images, ImagePlacement{Box: s.toPage(box)})
		}
	case "BI":
		lex.skipInlineImage()
	}
}

// flushPath closes the current path, recording its shapes when painted and
// discarding them when the path only defined a clip.
func (s *contentScanner) flushPath(painted bool) {
	if painted {
		for _, r := range s.rects {
			s.shapes = append(s.shapes, Shape{Kind: ShapeRect, Box: s.toPage(r)})
		}
		if s.hasCurve && s.pathBox.set {
			s.shapes = append(s.shapes, Shape{Kind: ShapeCurve, Box: s.toPage(s.pathBox)})
		}
	}
	s.pathBox = bboxAcc{}
	s.rects = nil
	s.hasCurve = false
}

// toPage converts a device-space accumulation to a top-origin page box.
func (s *contentScanner) toPage(b bboxAcc) Rect {
	return Rect{
		X0:     b.minX - s.offX,
		Top:    s.pageHeight - (b.maxY - s.offY),
		X1:     b.maxX - s.offX,
		Bottom: s.pageHeight - (b.minY - s.offY),
	}
}

type csTokenKind int

const (
	tokNumber csTokenKind = iota
	tokName
	tokOperator
	tokString
	tokDelim
)

type csToken struct {
	kind csTokenKind
	num  float64
	str  string
}

// csLexer tokenizes a content stream just enough for the scanner: numbers,
// names, operators, with strings and collection delimiters consumed and
// discarded.
type csLexer struct {
	data []byte
	pos  int
}

func isCSWhite(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isCSDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *csLexer) next() (csToken, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isCSWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.skipLiteralString()
			return csToken{kind: tokString}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return csToken{kind: tokDelim}, true
			}
			l.skipHexString()
			return csToken{kind: tokString}, true
		case c == '>':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
			} else {
				l.pos++
			}
			return csToken{kind: tokDelim}, true
		case c == '[' || c == ']' || c == '{' || c == '}':
			l.pos++
			return csToken{kind: tokDelim}, true
		case c == '/':
			l.pos++
			start := l.pos
			for l.pos < len(l.data) && !isCSWhite(l.data[l.pos]) && !isCSDelim(l.data[l.pos]) {
				l.pos++
			}
			return csToken{kind: tokName, str: string(l.data[start:l.pos])}, true
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			start := l.pos
			l.pos++
			for l.pos < len(l.data) {
				d := l.data[l.pos]
				if d == '.' || d == '+' || d == '-' || (d >= '0' && d <= '9') {
					l.pos++
					continue
				}
				break
			}
			n, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
			if err != nil {
				return csToken{kind: tokDelim}, true
			}
			return csToken{kind: tokNumber, num: n}, true
		default:
			start := l.pos
			for l.pos < len(l.data) && !isCSWhite(l.data[l.pos]) && !isCSDelim(l.data[l.pos]) {
				l.pos++
			}
			if l.pos == start {
				l.pos++ // stray delimiter byte, e.g. an unbalanced paren
				return csToken{kind: tokDelim}, true
			}
			return csToken{kind: tokOperator, str: string(l.data[start:l.pos])}, true
		}
	}
	return csToken{}, false
}

func (l *csLexer) skipLiteralString() {
	l.pos++ // opening paren
	depth := 1
	for l.pos < len(l.data) && depth > 0 {
		switch l.data[l.pos] {
		case '\\':
			l.pos++ // escaped char
		case '(':
			depth++
		case ')':
			depth--
		}
		l.pos++
	}
}

func (l *csLexer) skipHexString() {
	l.pos++ // opening angle
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		l.pos++
	}
	if l.pos < len(l.data) {
		l.pos++
	}
}

// skipInlineImage consumes a BI ... ID <binary> EI sequence. The binary run
// has no declared length, so the only way out is scanning for a delimited EI.
func (l *csLexer) skipInlineImage() {
	for {
		tok, ok := l.next()
		if !ok {
			return
		}
		if tok.kind == tokOperator && tok.str == "ID" {
			break
		}
	}
	if l.pos < len(l.data) && isCSWhite(l.data[l.pos]) {
		l.pos++
	}
	for i := l.pos; i+1 < len(l.data); i++ {
		if l.data[i] == 'E' && l.data[i+1] == 'I' &&
			(i == 0 || isCSWhite(l.data[i-1])) &&
			(i+2 >= len(l.data) || isCSWhite(l.data[i+2]) || isCSDelim(l.data[i+2])) {
			l.pos = i + 2
			return
		}
	}
	l.pos = len(l.data)
}

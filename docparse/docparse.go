// Package docparse turns paginated PDF documents into a single text stream
// with positional placeholder tokens for visual content, plus the rendered
// visuals themselves. The output feeds multimodal LLM calls downstream: the
// tokens mark where each image or diagram sits in reading order, and
// BuildContentBlocks expands them back into mixed text/image message content.
package docparse

import "fmt"

// Tuning constants for diagram detection. These match the behavior the
// grading prompts were calibrated against; changing them shifts which vector
// graphics get promoted to diagram visuals.
const (
	// minClusterSize is the minimum number of vector shapes a cluster needs
	// to count as a diagram rather than stray lines or borders.
	minClusterSize = 3

	// clusterGap is the maximum vertical distance between a shape and the
	// previously added shape for them to land in the same cluster.
	clusterGap = 50.0

	// diagramPadding expands a cluster's bounding box on every side before
	// rendering, so strokes at the edge are not clipped.
	diagramPadding = 10.0

	// renderDPI is the resolution visuals are rendered at.
	renderDPI = 150

	// lineYTolerance is the maximum vertical drift between two consecutive
	// matched words before a line-position match attempt is abandoned.
	lineYTolerance = 5.0
)

// Rect is an axis-aligned box in page coordinates with the origin at the
// top-left corner, so Top < Bottom and larger Top means lower on the page.
type Rect struct {
	X0     float64 `json:"x0"`
	Top    float64 `json:"top"`
	X1     float64 `json:"x1"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the box.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Union returns the smallest box containing both r and o.
func (r Rect) Union(o Rect) Rect {
	out := r
	if o.X0 < out.X0 {
		out.X0 = o.X0
	}
	if o.Top < out.Top {
		out.Top = o.Top
	}
	if o.X1 > out.X1 {
		out.X1 = o.X1
	}
	if o.Bottom > out.Bottom {
		out.Bottom = o.Bottom
	}
	return out
}

// Expand grows the box by pad on every side.
func (r Rect) Expand(pad float64) Rect {
	return Rect{X0: r.X0 - pad, Top: r.Top - pad, X1: r.X1 + pad, Bottom: r.Bottom + pad}
}

// ClampTo restricts the box to the page area [0,w] x [0,h].
func (r Rect) ClampTo(w, h float64) Rect {
	out := r
	if out.X0 < 0 {
		out.X0 = 0
	}
	if out.Top < 0 {
		out.Top = 0
	}
	if out.X1 > w {
		out.X1 = w
	}
	if out.Bottom > h {
		out.Bottom = h
	}
	return out
}

// Contains reports whether o lies fully within r, boundary included.
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.X1 <= r.X1 && o.Top >= r.Top && o.Bottom <= r.Bottom
}

// Empty reports whether the box has no positive area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Bottom <= r.Top }

// Word is a single text token with its position on the page.
type Word struct {
	Text string `json:"text"`
	Box  Rect   `json:"box"`
}

// ShapeKind identifies the class of a vector-graphic primitive.
type ShapeKind string

const (
	ShapeCurve ShapeKind = "curve"
	ShapeRect  ShapeKind = "rect"
)

// Shape is a vector-graphic primitive reduced to what clustering needs.
type Shape struct {
	Kind ShapeKind
	Box  Rect
}

// Top returns the shape's vertical position.
func (s Shape) Top() float64 { return s.Box.Top }

// ImagePlacement records where an embedded raster image is drawn on a page.
type ImagePlacement struct {
	Box Rect
}

// Page is one unit of the source document, fully extracted.
type Page struct {
	Number int     // 1-indexed
	Width  float64 // page size in points
	Height float64

	Text   string  // assembled text, lines top to bottom
	Words  []Word  // position records backing Text
	Images []ImagePlacement
	Shapes []Shape // curves and rectangles, content-stream order
}

// VisualKind identifies the class of a visual element.
type VisualKind string

const (
	VisualImage   VisualKind = "image"
	VisualDiagram VisualKind = "diagram"
)

// VisualElement is one extracted visual: an embedded image or a rendered
// diagram region. Elements are immutable once created; GlobalIndex is
// assigned exactly once by the document orchestrator.
type VisualElement struct {
	Kind         VisualKind `json:"kind"`
	PNG          []byte     `json:"-"`
	PageNumber   int        `json:"page"`
	PerPageIndex int        `json:"index"`
	GlobalIndex  int        `json:"global_index"`
	Box          Rect       `json:"box"`
	Top          float64    `json:"top"`
	ShapeCount   int        `json:"shape_count,omitempty"` // diagrams only
}

// Filename returns the deterministic on-disk name used when visuals are
// saved: page{N}_{kind}{i}.png.
func (v VisualElement) Filename() string {
	return fmt.Sprintf("page%d_%s%d.png", v.PageNumber, v.Kind, v.PerPageIndex)
}

// ParsedDocument is the result of parsing a whole document.
type ParsedDocument struct {
	// Text is the concatenated page text with placeholder tokens embedded at
	// each visual's reading position and a banner line per page.
	Text string `json:"text"`

	// Visuals holds every extracted element in global-index order, which is
	// page-major, position-minor discovery order. GlobalIndex values are
	// dense: 1..len(Visuals).
	Visuals []VisualElement `json:"visuals"`

	// PageCount is the number of pages scanned.
	PageCount int `json:"page_count"`
}

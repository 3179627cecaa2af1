package docparse

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// Renderer renders a rectangular region of a document page to PNG bytes.
// pageNum is 1-indexed. Implementations may fail per region; callers treat a
// failed render as a dropped visual, never a fatal error.
type Renderer interface {
	RenderRegion(ctx context.Context, pageNum int, region Rect, dpi int) ([]byte, error)
}

// pageVisualCandidates lists every prospective visual on a page before any
// rendering happens: one candidate per embedded image, one per surviving
// shape cluster. Candidates carry their final metadata (kind, indices, box,
// position) but no image data; rendering decides which of them survive.
//
// An image candidate's box is the image's placement box and its position the
// box top. A diagram candidate's box is the cluster union expanded by
// diagramPadding and clamped to the page, while its position stays at the
// unpadded union's top. Per-page indices count images and diagrams
// separately, 1-based, in discovery order.
func pageVisualCandidates(p Page) []VisualElement {
	var candidates []VisualElement

	for i, img := range p.Images {
		candidates = append(candidates, VisualElement{
			Kind:         VisualImage,
			PageNumber:   p.Number,
			PerPageIndex: i + 1,
			Box:          img.Box,
			Top:          img.Box.Top,
		})
	}

	for i, cluster := range clusterShapes(p.Shapes) {
		bounds := clusterBounds(cluster)
		candidates = append(candidates, VisualElement{
			Kind:         VisualDiagram,
			PageNumber:   p.Number,
			PerPageIndex: i + 1,
			Box:          bounds.Expand(diagramPadding).ClampTo(p.Width, p.Height),
			Top:          bounds.Top,
			ShapeCount:   len(cluster),
		})
	}

	return candidates
}

// renderVisuals renders each candidate's box region and returns the ones
// that succeeded, image data attached. Failed candidates are dropped so a
// single malformed region cannot abort page processing.
func renderVisuals(ctx context.Context, candidates []VisualElement, r Renderer, log *slog.Logger) []VisualElement {
	visuals := make([]VisualElement, 0, len(candidates))
	for _, c := range candidates {
		png, err := r.RenderRegion(ctx, c.PageNumber, c.Box, renderDPI)
		if err != nil {
			log.Warn("render failed, dropping visual",
				"page", c.PageNumber, "kind", c.Kind, "index", c.PerPageIndex, "error", err)
			continue
		}
		// Diagram regions carry padding worth trimming; embedded images are
		// already cropped to their placement box. Hygiene failures keep the
		// raw render rather than losing the visual.
		if processed, perr := processRender(png, c.Kind == VisualDiagram); perr == nil {
			png = processed
		}
		c.PNG = png
		visuals = append(visuals, c)
	}
	return visuals
}

// saveVisuals writes each visual's PNG into dir using its deterministic
// filename. Disk trouble is logged and skipped; saving is observational and
// must never change parse results.
func saveVisuals(dir string, visuals []VisualElement, log *slog.Logger) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("cannot create visuals dir", "dir", dir, "error", err)
		return
	}
	for _, v := range visuals {
		path := filepath.Join(dir, v.Filename())
		if err := os.WriteFile(path, v.PNG, 0o644); err != nil {
			log.Warn("cannot save visual", "path", path, "error", err)
		}
	}
}

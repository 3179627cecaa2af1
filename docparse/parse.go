package docparse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type parseOptions struct {
	password        string
	visualDir       string
	renderer        Renderer
	logger          *slog.Logger
	keepDiagramText bool
}

// Option adjusts document parsing.
type Option func(*parseOptions)

// WithPassword supplies the password for an encrypted document.
func WithPassword(pw string) Option {
	return func(o *parseOptions) { o.password = pw }
}

// WithVisualDir also saves every extracted visual as a PNG under dir. Saving
// is observational; disk errors are logged and never fail the parse.
func WithVisualDir(dir string) Option {
	return func(o *parseOptions) { o.visualDir = dir }
}

// WithRenderer substitutes the region renderer. The default shells out to
// pdftoppm.
func WithRenderer(r Renderer) Option {
	return func(o *parseOptions) { o.renderer = r }
}

// WithLogger routes parser logging somewhere other than slog's default.
func WithLogger(log *slog.Logger) Option {
	return func(o *parseOptions) { o.logger = log }
}

// WithDiagramText keeps words that fall inside detected diagram regions in
// the page prose. By default they are dropped there, since the rendered
// diagram already carries them.
func WithDiagramText() Option {
	return func(o *parseOptions) { o.keepDiagramText = true }
}

func applyOptions(opts []Option) parseOptions {
	o := parseOptions{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Parse extracts a document into token-annotated text plus its visual
// elements. Pages are processed strictly in order because global indices
// are assigned in document order; failures confined to a single page or
// visual degrade that unit and keep going, while a document that cannot be
// opened fails outright with no partial result.
func Parse(ctx context.Context, path string, opts ...Option) (*ParsedDocument, error) {
	o := applyOptions(opts)
	log := o.logger

	doc, err := openDocument(path, o.password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	renderer := o.renderer
	if renderer == nil {
		renderer = newPopplerRenderer(path, o.password, log)
	}

	start := time.Now()
	result := &ParsedDocument{PageCount: doc.pageCount()}
	fragments := make([]string, 0, result.PageCount)
	counter := 0

	for idx := 0; idx < result.PageCount; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := doc.readPage(idx, log)

		var fragment string
		var visuals []VisualElement
		fragment, visuals, counter = processPage(ctx, page, renderer, counter, o)
		result.Visuals = append(result.Visuals, visuals...)
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	result.Text = strings.Join(fragments, "\n")

	log.Info("document parsed",
		"path", path,
		"pages", result.PageCount,
		"visuals", len(result.Visuals),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return result, nil
}

// processPage turns one extracted page into its text fragment and its
// globally indexed visuals. counter is the last global index assigned so
// far; the returned value carries it forward to the next page. A page with
// neither text nor visuals contributes nothing, not even a banner.
func processPage(ctx context.Context, page Page, r Renderer, counter int, o parseOptions) (string, []VisualElement, int) {
	visuals := renderVisuals(ctx, pageVisualCandidates(page), r, o.logger)

	sort.SliceStable(visuals, func(i, j int) bool { return visuals[i].Top < visuals[j].Top })
	for i := range visuals {
		counter++
		visuals[i].GlobalIndex = counter
	}

	if o.visualDir != "" && len(visuals) > 0 {
		saveVisuals(o.visualDir, visuals, o.logger)
	}

	text, words := page.Text, page.Words
	if !o.keepDiagramText {
		var diagramBoxes []Rect
		for _, v := range visuals {
			if v.Kind == VisualDiagram {
				diagramBoxes = append(diagramBoxes, v.Box)
			}
		}
		text, words = filterDiagramText(text, words, diagramBoxes)
	}

	if text == "" && len(visuals) == 0 {
		return "", visuals, counter
	}

	refs := make([]visualRef, len(visuals))
	for i, v := range visuals {
		refs[i] = visualRef{pos: v.Top, token: v.Token()}
	}
	banner := fmt.Sprintf("\n--- Page %d ---\n", page.Number)
	return banner + formatPage(text, words, refs), visuals, counter
}

// ContentBlocks expands the document text back into the ordered text/image
// sequence a multimodal request needs.
func (d *ParsedDocument) ContentBlocks() []ContentBlock {
	return BuildContentBlocks(d.Text, d.Visuals)
}

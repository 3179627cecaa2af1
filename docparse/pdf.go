package docparse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrDocumentOpen wraps any failure to open a source document: missing
	// file, wrong password, unreadable structure.
	ErrDocumentOpen = errors.New("docparse: cannot open document")

	// ErrPageRange reports a page request outside [0, PageCount).
	ErrPageRange = errors.New("docparse: page out of range")
)

// document is an open source file plus its parsed cross-reference data.
type document struct {
	file   *os.File
	reader *pdf.Reader
}

func openDocument(path, password string) (*document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentOpen, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrDocumentOpen, err)
	}
	reader, err := newReader(f, fi.Size(), password)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrDocumentOpen, err)
	}
	return &document{file: f, reader: reader}, nil
}

// newReader builds the underlying reader, offering the password exactly once
// so a wrong one fails instead of being retried forever. The reader panics
// on malformed cross-reference structures, hence the fence.
func newReader(f *os.File, size int64, password string) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed document: %v", p)
		}
	}()
	if password == "" {
		return pdf.NewReader(f, size)
	}
	offered := false
	return pdf.NewReaderEncrypted(f, size, func() string {
		if offered {
			return ""
		}
		offered = true
		return password
	})
}

func (d *document) Close() error { return d.file.Close() }

func (d *document) pageCount() int { return d.reader.NumPage() }

// readPage extracts one page's text, words, shapes, and image placements.
// idx is 0-based and assumed in range. The underlying reader panics on
// malformed objects, so extraction is fenced; a broken page degrades to
// whatever was gathered before the failure.
func (d *document) readPage(idx int, log *slog.Logger) (page Page) {
	page.Number = idx + 1
	defer func() {
		if r := recover(); r != nil {
			log.Warn("page extraction failed", "page", page.Number, "error", r)
		}
	}()

	p := d.reader.Page(idx + 1)
	if p.V.IsNull() {
		return page
	}

	var offX, offY float64
	page.Width, page.Height, offX, offY = pageGeometry(p)

	content := p.Content()
	spans := make([]textSpan, 0, len(content.Text))
	for _, t := range content.Text {
		spans = append(spans, textSpan{S: t.S, X: t.X - offX, Y: t.Y - offY, W: t.W, FontSize: t.FontSize})
	}
	page.Words, page.Text = assembleWords(spans, page.Height)

	data, err := pageContentBytes(p)
	if err != nil {
		log.Warn("content stream unavailable", "page", page.Number, "error", err)
		return page
	}
	page.Shapes, page.Images = scanContent(data, pageXObjects(p), page.Height, offX, offY)
	return page
}

// pageGeometry reads the page's media box, falling back to US Letter when
// it is missing or malformed.
func pageGeometry(p pdf.Page) (w, h, offX, offY float64) {
	mb := inheritedAttr(p.V, "MediaBox")
	if mb.IsNull() || mb.Len() < 4 {
		return 612, 792, 0, 0
	}
	x0, y0 := mb.Index(0).Float64(), mb.Index(1).Float64()
	x1, y1 := mb.Index(2).Float64(), mb.Index(3).Float64()
	if x1 <= x0 || y1 <= y0 {
		return 612, 792, 0, 0
	}
	return x1 - x0, y1 - y0, x0, y0
}

// inheritedAttr resolves a page attribute that may live on an ancestor node
// of the page tree. The depth guard breaks parent cycles in damaged files.
func inheritedAttr(v pdf.Value, key string) pdf.Value {
	for depth := 0; depth < 64 && !v.IsNull(); depth++ {
		if a := v.Key(key); !a.IsNull() {
			return a
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

// pageContentBytes concatenates the page's content streams, decoded.
func pageContentBytes(p pdf.Page) ([]byte, error) {
	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		return readStream(contents)
	case pdf.Array:
		var buf bytes.Buffer
		for i := 0; i < contents.Len(); i++ {
			b, err := readStream(contents.Index(i))
			if err != nil {
				return nil, err
			}
			buf.Write(b)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("page has no content stream")
}

func readStream(v pdf.Value) ([]byte, error) {
	if v.Kind() != pdf.Stream {
		return nil, fmt.Errorf("not a stream")
	}
	rc := v.Reader()
	defer rc.Close()
	return io.ReadAll(rc)
}

// xobjects resolves XObject names against a page's resource dictionary.
type xobjects struct {
	dict pdf.Value
}

func pageXObjects(p pdf.Page) xobjects {
	return xobjects{dict: inheritedAttr(p.V, "Resources").Key("XObject")}
}

func (x xobjects) isImage(name string) bool {
	if x.dict.IsNull() {
		return false
	}
	return x.dict.Key(name).Key("Subtype").Name() == "Image"
}

// ReadText extracts plain text from every page, joined by newlines, with no
// placeholder tokens and no page banners. Pages without text are skipped.
func ReadText(path string, opts ...Option) (string, error) {
	o := applyOptions(opts)
	doc, err := openDocument(path, o.password)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	var pages []string
	for idx := 0; idx < doc.pageCount(); idx++ {
		if page := doc.readPage(idx, o.logger); page.Text != "" {
			pages = append(pages, page.Text)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// ReadPageText extracts a single page's text. pageNum is 0-based;
// out-of-range requests fail with ErrPageRange.
func ReadPageText(path string, pageNum int, opts ...Option) (string, error) {
	o := applyOptions(opts)
	doc, err := openDocument(path, o.password)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	if pageNum < 0 || pageNum >= doc.pageCount() {
		return "", fmt.Errorf("%w: page %d, document has %d pages", ErrPageRange, pageNum, doc.pageCount())
	}
	return doc.readPage(pageNum, o.logger).Text, nil
}

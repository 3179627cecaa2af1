package docparse

import "testing"

type fakeResolver struct{ images map[string]bool }

func (f fakeResolver) isImage(name string) bool { return f.images[name] }

func scanStr(t *testing.T, stream string) ([]Shape, []ImagePlacement) {
	t.Helper()
	return scanContent([]byte(stream), fakeResolver{images: map[string]bool{"Im1": true}}, 792, 0, 0)
}

func TestScanContentRect(t *testing.T) {
	shapes, _ := scanStr(t, "10 20 100 50 re f")
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.Kind != ShapeRect {
		t.Errorf("kind = %q, want rect", s.Kind)
	}
	want := Rect{X0: 10, Top: 722, X1: 110, Bottom: 772}
	if s.Box != want {
		t.Errorf("box = %+v, want %+v", s.Box, want)
	}
}

func TestScanContentMultipleRectsInOnePath(t *testing.T) {
	shapes, _ := scanStr(t, "10 10 20 20 re 50 50 20 20 re f")
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
}

func TestScanContentCurve(t *testing.T) {
	shapes, _ := scanStr(t, "10 700 m 20 710 30 690 40 700 c S")
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	s := shapes[0]
	if s.Kind != ShapeCurve {
		t.Errorf("kind = %q, want curve", s.Kind)
	}
	want := Rect{X0: 10, Top: 82, X1: 40, Bottom: 102}
	if s.Box != want {
		t.Errorf("box = %+v, want %+v", s.Box, want)
	}
}

func TestScanContentClipPathDiscarded(t *testing.T) {
	// A clip rectangle ended with n is not a drawn shape. Page borders set
	// up this way must not feed the diagram detector.
	shapes, _ := scanStr(t, "0 0 612 792 re W n")
	if len(shapes) != 0 {
		t.Errorf("expected no shapes, got %+v", shapes)
	}
}

func TestScanContentLinesIgnored(t *testing.T) {
	shapes, _ := scanStr(t, "10 10 m 200 10 l S")
	if len(shapes) != 0 {
		t.Errorf("pure line paths are not shapes, got %+v", shapes)
	}
}

func TestScanContentTransformStack(t *testing.T) {
	shapes, _ := scanStr(t, "q 2 0 0 2 0 0 cm 10 10 20 20 re f Q 5 5 10 10 re f")
	if len(shapes) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(shapes))
	}
	scaled := Rect{X0: 20, Top: 732, X1: 60, Bottom: 772}
	if shapes[0].Box != scaled {
		t.Errorf("scaled box = %+v, want %+v", shapes[0].Box, scaled)
	}
	plain := Rect{X0: 5, Top: 777, X1: 15, Bottom: 787}
	if shapes[1].Box != plain {
		t.Errorf("post-restore box = %+v, want %+v", shapes[1].Box, plain)
	}
}

func TestScanContentImagePlacement(t *testing.T) {
	_, images := scanStr(t, "q 200 0 0 100 50 600 cm /Im1 Do Q")
	if len(images) != 1 {
		t.Fatalf("expected 1 placement, got %d", len(images))
	}
	want := Rect{X0: 50, Top: 92, X1: 250, Bottom: 192}
	if images[0].Box != want {
		t.Errorf("box = %+v, want %+v", images[0].Box, want)
	}
}

func TestScanContentNonImageXObjectIgnored(t *testing.T) {
	_, images := scanStr(t, "q 100 0 0 100 0 0 cm /Fm1 Do Q")
	if len(images) != 0 {
		t.Errorf("expected no placements, got %+v", images)
	}
}

func TestScanContentTextOpsIgnored(t *testing.T) {
	stream := `BT /F1 12 Tf 72 712 Td (Hello (nested) \) paren) Tj [ (a) -120 (b) ] TJ ET 10 20 30 40 re f`
	shapes, _ := scanStr(t, stream)
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	want := Rect{X0: 10, Top: 732, X1: 40, Bottom: 772}
	if shapes[0].Box != want {
		t.Errorf("box = %+v, want %+v", shapes[0].Box, want)
	}
}

func TestScanContentInlineImageSkipped(t *testing.T) {
	stream := "BI /W 2 /H 2 /BPC 8 ID \x01\x02(\x03\x04 EI 10 20 30 40 re f"
	shapes, _ := scanStr(t, stream)
	if len(shapes) != 1 {
		t.Fatalf("binary run must be skipped cleanly, got %d shapes", len(shapes))
	}
}

func TestScanContentMalformedInput(t *testing.T) {
	shapes, images := scanStr(t, "re f Q Q )] >> 5 cm <deadbeef> Tj")
	if len(shapes) != 0 || len(images) != 0 {
		t.Errorf("malformed stream should yield nothing, got %d shapes, %d images", len(shapes), len(images))
	}
}

func TestScanContentMediaBoxOffset(t *testing.T) {
	shapes, _ := scanContent([]byte("15 30 10 10 re f"), nil, 100, 5, 10)
	if len(shapes) != 1 {
		t.Fatalf("expected 1 shape, got %d", len(shapes))
	}
	want := Rect{X0: 10, Top: 70, X1: 20, Bottom: 80}
	if shapes[0].Box != want {
		t.Errorf("box = %+v, want %+v", shapes[0].Box, want)
	}
}

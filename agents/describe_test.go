package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/brunobiangulo/labcheck/docparse"
)

func TestDescribeReturnsResultSection(t *testing.T) {
	mock := &scriptedProvider{visionResponse: `<reasoning>1. classify the image</reasoning>
<result>Flowchart: start, read input, sort, print, end.</result>`}

	describer := NewVisualDescriber(mock)
	v := docparse.VisualElement{
		Kind:        docparse.VisualDiagram,
		PNG:         []byte("fake-png"),
		GlobalIndex: 2,
		ShapeCount:  5,
	}

	got, err := describer.Describe(context.Background(), v)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "Flowchart: start, read input, sort, print, end." {
		t.Errorf("description = %q", got)
	}

	parts := mock.lastVision.Messages[0].Content
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want prompt + image", len(parts))
	}
	if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("image URL = %q", parts[1].ImageURL.URL)
	}
}

func TestDescribeWithoutTagsReturnsWholeReply(t *testing.T) {
	mock := &scriptedProvider{visionResponse: "A bar chart of runtimes."}

	describer := NewVisualDescriber(mock)
	got, err := describer.Describe(context.Background(), docparse.VisualElement{
		Kind: docparse.VisualImage, PNG: []byte("x"), GlobalIndex: 1,
	})
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got != "A bar chart of runtimes." {
		t.Errorf("description = %q", got)
	}
}

func TestDescribeNoImageData(t *testing.T) {
	describer := NewVisualDescriber(&scriptedProvider{})
	_, err := describer.Describe(context.Background(), docparse.VisualElement{
		Kind: docparse.VisualImage, GlobalIndex: 3,
	})
	if err == nil {
		t.Fatal("expected error for visual without image data")
	}
	if !strings.Contains(err.Error(), "<<IMAGE_3>>") {
		t.Errorf("error should name the visual token, got %v", err)
	}
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/pdf"
)

type fakeTranslator struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) Translate(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	return "译:" + text, nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]string)} }

func (f *fakeCache) Get(_ context.Context, text string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[text]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, text, translation string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[text] = translation
	return nil
}

func (f *fakeCache) Close() error { return nil }

type fakeDetector struct {
	elements []layout.Element
}

func (f *fakeDetector) DetectPage(context.Context, string, int) ([]layout.Element, error) {
	return f.elements, nil
}

func (f *fakeDetector) Close() error { return nil }

func newPipeline(t *testing.T, tr *fakeTranslator, c *fakeCache, det layout.Detector) *Pipeline {
	t.Helper()
	var pc Config
	pc.Translator = tr
	if c != nil {
		pc.Cache = c
	}
	pc.Detector = det
	pc.Options = models.TranslationOptions{Threads: 2}
	p, err := New(pc)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestTranslateBlocks(t *testing.T) {
	tr := &fakeTranslator{}
	c := newFakeCache()
	p := newPipeline(t, tr, c, nil)

	blocks := []pdf.TextBlock{
		{ID: "b1", Page: 1, Text: "first paragraph"},
		{ID: "b2", Page: 1, Text: "second paragraph"},
	}

	var progress []int
	translated, cached, err := p.translateBlocks(context.Background(), blocks, func(done int) {
		progress = append(progress, done)
	})
	if err != nil {
		t.Fatalf("translateBlocks returned error: %v", err)
	}
	if cached != 0 {
		t.Errorf("cached = %d, want 0", cached)
	}
	if len(translated) != 2 {
		t.Fatalf("got %d blocks, want 2", len(translated))
	}
	// Order is preserved regardless of completion order.
	if translated[0].ID != "b1" || translated[1].ID != "b2" {
		t.Errorf("block order not preserved: %s, %s", translated[0].ID, translated[1].ID)
	}
	if translated[0].TranslatedText != "译:first paragraph" {
		t.Errorf("TranslatedText = %q", translated[0].TranslatedText)
	}
	if len(progress) != 2 {
		t.Errorf("progress callback fired %d times, want 2", len(progress))
	}

	// Results land in the cache.
	if v, ok, _ := c.Get(context.Background(), "first paragraph"); !ok || v != "译:first paragraph" {
		t.Errorf("cache entry = (%q, %v)", v, ok)
	}
}

func TestTranslateBlocksUsesCache(t *testing.T) {
	tr := &fakeTranslator{}
	c := newFakeCache()
	c.Set(context.Background(), "cached paragraph", "缓存译文")
	p := newPipeline(t, tr, c, nil)

	blocks := []pdf.TextBlock{{ID: "b1", Page: 1, Text: "cached paragraph"}}
	translated, cached, err := p.translateBlocks(context.Background(), blocks, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cached != 1 {
		t.Errorf("cached = %d, want 1", cached)
	}
	if !translated[0].FromCache || translated[0].TranslatedText != "缓存译文" {
		t.Errorf("cache hit not used: %+v", translated[0])
	}
	if len(tr.calls) != 0 {
		t.Errorf("provider called %d times for cached text", len(tr.calls))
	}
}

func TestTranslateBlocksShieldsFormulaRuns(t *testing.T) {
	tr := &fakeTranslator{}
	p := newPipeline(t, tr, nil, nil)

	blocks := []pdf.TextBlock{{ID: "b1", Page: 1, Text: "energy ∑x grows"}}
	translated, _, err := p.translateBlocks(context.Background(), blocks, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(tr.calls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(tr.calls))
	}
	if strings.Contains(tr.calls[0], "∑") {
		t.Errorf("protected characters sent to provider: %q", tr.calls[0])
	}
	if !strings.Contains(tr.calls[0], "{v1}") {
		t.Errorf("no placeholder in provider input: %q", tr.calls[0])
	}
	// Output gets the original characters back.
	if !strings.Contains(translated[0].TranslatedText, "∑x") {
		t.Errorf("placeholder not restored: %q", translated[0].TranslatedText)
	}
}

func TestTranslateBlocksCancellation(t *testing.T) {
	tr := &fakeTranslator{fail: context.Canceled}
	p := newPipeline(t, tr, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.translateBlocks(ctx, []pdf.TextBlock{{ID: "b1", Text: "text"}}, nil)
	if err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSplitByLayout(t *testing.T) {
	det := &fakeDetector{elements: []layout.Element{
		{Type: layout.ElementFigure, Page: 1, BoundingBox: layout.BoundingBox{X: 0, Y: 0, Width: 200, Height: 200}},
		{Type: layout.ElementPlainText, Page: 1, BoundingBox: layout.BoundingBox{X: 0, Y: 300, Width: 200, Height: 200}},
	}}
	p := newPipeline(t, &fakeTranslator{}, nil, det)

	blocks := []pdf.TextBlock{
		{ID: "in-figure", Page: 1, Text: "axis label", X: 50, Y: 50, Width: 20, Height: 10},
		{ID: "body", Page: 1, Text: "body text", X: 50, Y: 400, Width: 20, Height: 10},
		{ID: "equation", Page: 1, Text: "y = ax + b", Kind: pdf.KindFormula, X: 50, Y: 500},
		{ID: "math-font", Page: 1, Text: "xyz", FontName: "CMMI10", X: 50, Y: 600},
	}

	translatable, kept := p.splitByLayout(context.Background(), "doc.pdf", blocks)
	if len(translatable) != 1 || translatable[0].ID != "body" {
		t.Errorf("translatable = %+v, want only body", ids(translatable))
	}
	if len(kept) != 3 {
		t.Errorf("kept = %v, want 3 blocks", ids(kept))
	}
}

func TestSplitByLayoutWithoutDetector(t *testing.T) {
	p := newPipeline(t, &fakeTranslator{}, nil, nil)
	blocks := []pdf.TextBlock{{ID: "b1", Page: 1, Text: "body text"}}
	translatable, kept := p.splitByLayout(context.Background(), "doc.pdf", blocks)
	if len(translatable) != 1 || len(kept) != 0 {
		t.Errorf("translatable=%v kept=%v", ids(translatable), ids(kept))
	}
}

func ids(blocks []pdf.TextBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

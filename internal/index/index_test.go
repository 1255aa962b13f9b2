package index

import (
	"context"
	"errors"
	"math"
	"testing"

	"exam-mapper/internal/models"
)

// stubEmbedder returns fixed unit vectors per known text so nearest
// neighbors are deterministic.
type stubEmbedder struct {
	vecs map[string][]float32
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func testChapters() []models.Chapter {
	return []models.Chapter{
		{ChapterNumber: 1, Title: "Magnetism and Matter", PageStart: 1, PageEnd: 40, Content: "magnetism content", Excerpt: "magnetism content"},
		{ChapterNumber: 2, Title: "Wave Optics", PageStart: 41, PageEnd: 80, Content: "optics content", Excerpt: "optics content"},
	}
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{vecs: map[string][]float32{
		"magnetism content":       {1, 0, 0},
		"optics content":          {0, 1, 0},
		"a question on magnetism": {1, 0, 0},
		"a question about optics": {0, 1, 0},
	}}
}

func TestBuildAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), testEmbedder())

	if err := store.Build(ctx, 1, testChapters()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	candidates, err := store.Query(ctx, 1, "a question on magnetism", TopK)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want min(5, 2) = 2", len(candidates))
	}
	best := candidates[0]
	if best.ChapterNumber != 1 || best.Title != "Magnetism and Matter" {
		t.Errorf("best candidate = %d %q, want chapter 1", best.ChapterNumber, best.Title)
	}
	if best.SimilarityScore != 100 {
		t.Errorf("exact-match score = %v, want 100", best.SimilarityScore)
	}
	if best.PageStart != 1 || best.PageEnd != 40 {
		t.Errorf("best candidate pages = %d-%d, want 1-40", best.PageStart, best.PageEnd)
	}
	if best.ContentPreview == "" {
		t.Error("candidate has no content preview")
	}
}

func TestQueryNotBuilt(t *testing.T) {
	store := NewStore(t.TempDir(), testEmbedder())
	_, err := store.Query(context.Background(), 42, "anything", TopK)
	if !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("err = %v, want ErrNotBuilt", err)
	}
	_, err = store.Titles(42)
	if !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("Titles err = %v, want ErrNotBuilt", err)
	}
}

func TestLoadPersistedIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	builder := NewStore(dir, testEmbedder())
	if err := builder.Build(ctx, 7, testChapters()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	// A fresh store with an empty cache must load the persisted artifacts.
	reader := NewStore(dir, testEmbedder())
	candidates, err := reader.Query(ctx, 7, "a question about optics", TopK)
	if err != nil {
		t.Fatalf("Query after reload: %v", err)
	}
	if candidates[0].ChapterNumber != 2 {
		t.Errorf("best candidate = chapter %d, want 2", candidates[0].ChapterNumber)
	}

	titles, err := reader.Titles(7)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(titles) != 2 || titles[0] != "1. Magnetism and Matter" {
		t.Errorf("titles = %v", titles)
	}
}

func TestRebuildReplacesIndex(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), testEmbedder())

	if err := store.Build(ctx, 1, testChapters()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	replacement := []models.Chapter{
		{ChapterNumber: 1, Title: "Wave Optics", PageStart: 1, PageEnd: 80, Content: "optics content", Excerpt: "optics content"},
	}
	if err := store.Build(ctx, 1, replacement); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	candidates, err := store.Query(ctx, 1, "a question on magnetism", TopK)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates after rebuild, want 1", len(candidates))
	}
	if candidates[0].Title != "Wave Optics" {
		t.Errorf("candidate = %q, want the replacement chapter", candidates[0].Title)
	}
}

func TestDisplayScore(t *testing.T) {
	cases := []struct {
		similarity float32
		want       float64
	}{
		{1, 100},
		{0.5, 90},
		{0, 100 - 10*math.Sqrt2},
		{-1, 80},
	}
	for _, c := range cases {
		got := displayScore(c.similarity)
		if math.Abs(got-math.Round(c.want*100)/100) > 0.01 {
			t.Errorf("displayScore(%v) = %v, want %v", c.similarity, got, c.want)
		}
	}
}

package mapper

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"exam-mapper/internal/chapters"
	"exam-mapper/internal/index"
	"exam-mapper/internal/models"
	"exam-mapper/internal/questions"
)

// keywordEmbedder assigns each text the axis of its dominant topic word,
// so nearest-neighbour search degenerates to keyword matching. Counting
// occurrences keeps the TOC page (which names every chapter) from pulling
// chapter one off its own axis.
type keywordEmbedder struct{}

func (keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	counts := []int{
		strings.Count(lower, "magnet"),
		strings.Count(lower, "optic"),
		strings.Count(lower, "nucle"),
	}
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	vec := []float32{0, 0, 0}
	vec[best] = 1
	return vec, nil
}

func textbookPages() []models.Page {
	pages := []models.Page{{
		PageNumber: 1,
		Text:       "Contents\n\n1. Magnetism and Matter 2\n2. Wave Optics 45\n3. Nuclei and Radioactivity 80\n",
	}}
	for p := 2; p <= 100; p++ {
		var text string
		switch {
		case p < 45:
			text = fmt.Sprintf("Page %d. A bar magnet aligns with the field. Magnetic dipoles and magnetisation of materials.", p)
		case p < 80:
			text = fmt.Sprintf("Page %d. Interference of light in optical systems. Wavefronts and optical path difference.", p)
		default:
			text = fmt.Sprintf("Page %d. The nucleus and nuclear binding energy. Radioactive decay of unstable nuclei.", p)
		}
		pages = append(pages, models.Page{PageNumber: p, Text: text})
	}
	return pages
}

func TestMapPaperAgainstBuiltIndex(t *testing.T) {
	ctx := context.Background()

	resolved := chapters.Resolve(textbookPages())
	if len(resolved) != 3 {
		t.Fatalf("resolved %d chapters, want 3", len(resolved))
	}

	idx := index.NewStore(t.TempDir(), keywordEmbedder{})
	if err := idx.Build(ctx, 1, resolved); err != nil {
		t.Fatalf("Build: %v", err)
	}

	paper := "1. State two properties of magnetic field lines around a bar magnet kept in a uniform field.\n\n" +
		"2. Describe the interference pattern produced in a double slit optical experiment with coherent light.\n"
	qs := questions.Resolve(paper, nil)
	if len(qs) != 2 {
		t.Fatalf("resolved %d questions, want 2: %+v", len(qs), qs)
	}

	refiner := &stubRefiner{pick: map[string]string{
		"1": "Magnetism and Matter",
		"2": "Wave Optics",
	}}
	results, err := New(idx, refiner, 0).MapPaper(ctx, 1, qs)
	if err != nil {
		t.Fatalf("MapPaper: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0].Chapters[0]
	if first.Title != "Magnetism and Matter" {
		t.Errorf("question 1 mapped to %q", first.Title)
	}
	if first.PageRange != "Pages 1-44" {
		t.Errorf("question 1 page range = %q", first.PageRange)
	}

	second := results[1].Chapters[0]
	if second.Title != "Wave Optics" {
		t.Errorf("question 2 mapped to %q", second.Title)
	}
	if second.PageRange != "Pages 45-79" {
		t.Errorf("question 2 page range = %q", second.PageRange)
	}

	for _, r := range results {
		if r.Chapters[0].SimilarityScore <= 0 {
			t.Errorf("question %s similarity score = %v, want > 0", r.Question.QuestionNumber, r.Chapters[0].SimilarityScore)
		}
	}
}

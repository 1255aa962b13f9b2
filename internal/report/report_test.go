package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exam-mapper/internal/models"
)

func testResults() []models.MatchResult {
	return []models.MatchResult{
		{
			Question: models.Question{QuestionNumber: "1", Text: "What is the principle of a moving coil galvanometer?"},
			Chapters: []models.MatchedChapter{{
				ChapterNumber:   4,
				Title:           "Moving Charges and Magnetism",
				PageRange:       "Pages 133-176",
				SimilarityScore: 91.2,
				Confidence:      "high",
				Reasoning:       "The galvanometer is introduced in this chapter.",
			}},
		},
		{
			Question: models.Question{QuestionNumber: "2", Text: "An unanswerable fragment."},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown("run-1", "Physics Part I", testResults())

	for _, want := range []string{
		"Physics Part I",
		"run-1",
		"| 1 | 4. Moving Charges and Magnetism | Pages 133-176 | 91.20 | high |",
		"| 2 | _no match_ |",
		"### Question 1",
		"The galvanometer is introduced in this chapter.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<table") {
		t.Errorf("rendered HTML missing expected elements: %q", html)
	}
}

func TestWriteBothFormats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.md")

	if err := Write(path, "# Report\n", true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("markdown file not written: %v", err)
	}
	htmlPath := filepath.Join(dir, "mapping.html")
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("html file not written: %v", err)
	}
	if !strings.Contains(string(data), "<h1") {
		t.Errorf("html content = %q", string(data))
	}
}

func TestNewRunID(t *testing.T) {
	a, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID: %v", err)
	}
	b, _ := NewRunID()
	if a == b || len(a) != 36 {
		t.Errorf("run ids %q and %q", a, b)
	}
}

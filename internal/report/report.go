package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"exam-mapper/internal/models"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// NewRunID creates a random unique id for one analysis run.
func NewRunID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %v", err)
	}
	return id.String(), nil
}

// Markdown renders the mapping results as a GFM report.
func Markdown(runID, textbookTitle string, results []models.MatchResult) string {
	var b strings.Builder
	b.WriteString("# Question-to-Chapter Mapping\n\n")
	fmt.Fprintf(&b, "- Textbook: %s\n", textbookTitle)
	fmt.Fprintf(&b, "- Run: %s\n", runID)
	fmt.Fprintf(&b, "- Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Questions: %d\n\n", len(results))

	b.WriteString("| Question | Chapter | Pages | Score | Confidence |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, res := range results {
		if len(res.Chapters) == 0 {
			fmt.Fprintf(&b, "| %s | _no match_ | - | - | - |\n", res.Question.QuestionNumber)
			continue
		}
		ch := res.Chapters[0]
		fmt.Fprintf(&b, "| %s | %d. %s | %s | %.2f | %s |\n",
			res.Question.QuestionNumber, ch.ChapterNumber, escapePipes(ch.Title), ch.PageRange, ch.SimilarityScore, ch.Confidence)
	}

	b.WriteString("\n## Details\n")
	for _, res := range results {
		fmt.Fprintf(&b, "\n### Question %s\n\n", res.Question.QuestionNumber)
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(res.Question.Text, "\n", " "))
		if res.Question.Instruction != "" {
			fmt.Fprintf(&b, "Instruction: %s\n\n", res.Question.Instruction)
		}
		if res.Question.HasDiagram {
			fmt.Fprintf(&b, "Diagram references: %s\n\n", strings.Join(res.Question.DiagramRefs, ", "))
		}
		for _, ch := range res.Chapters {
			fmt.Fprintf(&b, "**Chapter %d: %s** (%s, score %.2f)\n\n", ch.ChapterNumber, ch.Title, ch.PageRange, ch.SimilarityScore)
			if ch.Reasoning != "" {
				fmt.Fprintf(&b, "%s\n\n", ch.Reasoning)
			}
		}
	}
	return b.String()
}

// RenderHTML converts the markdown report to HTML.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Write saves the markdown report, plus an HTML rendering alongside it
// when htmlToo is set.
func Write(path string, markdown string, htmlToo bool) error {
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if !htmlToo {
		return nil
	}
	rendered, err := RenderHTML(markdown)
	if err != nil {
		return err
	}
	htmlPath := strings.TrimSuffix(path, ".md") + ".html"
	if err := os.WriteFile(htmlPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

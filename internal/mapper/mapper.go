package mapper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exam-mapper/internal/index"
	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// Retriever is the slice of the index store the orchestrator needs.
type Retriever interface {
	Query(ctx context.Context, textbookID int64, questionText string, k int) ([]models.CandidateChapter, error)
	Titles(textbookID int64) ([]string, error)
}

// Refiner reranks retrieval candidates. A nil Refiner disables the
// refinement stage entirely and the top candidate is used as-is.
type Refiner interface {
	Refine(ctx context.Context, question models.Question, candidates []models.CandidateChapter, allTitles []string) (*models.Refinement, error)
}

// Mapper runs the full question-to-chapter pipeline: retrieval, then
// refinement, sequentially per question with a fixed delay between
// refinement calls to stay under rate limits. Retrieval-only runs never
// sleep.
type Mapper struct {
	retriever Retriever
	refiner   Refiner
	delay     time.Duration
}

func New(retriever Retriever, refiner Refiner, delay time.Duration) *Mapper {
	return &Mapper{retriever: retriever, refiner: refiner, delay: delay}
}

// MapPaper maps every question against the textbook's index in order.
// A missing index aborts the run; any other per-question failure
// degrades that question's result instead of failing the batch.
func (m *Mapper) MapPaper(ctx context.Context, textbookID int64, questions []models.Question) ([]models.MatchResult, error) {
	titles, err := m.retriever.Titles(textbookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapter titles: %w", err)
	}

	results := make([]models.MatchResult, 0, len(questions))
	for i, q := range questions {
		if i > 0 && m.delay > 0 && m.refiner != nil {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}

		result, err := m.mapQuestion(ctx, textbookID, q, titles)
		if err != nil {
			if errors.Is(err, index.ErrNotBuilt) || errors.Is(err, context.Canceled) {
				return results, err
			}
			log.Warn().Err(err).Str("question", q.QuestionNumber).Msg("Failed to map question")
			results = append(results, models.MatchResult{Question: q})
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

func (m *Mapper) mapQuestion(ctx context.Context, textbookID int64, q models.Question, titles []string) (*models.MatchResult, error) {
	candidates, err := m.retriever.Query(ctx, textbookID, queryText(q), index.TopK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &models.MatchResult{Question: q}, nil
	}

	chosen := candidates[0]
	var ref *models.Refinement
	if m.refiner != nil {
		top := candidates
		if len(top) > 3 {
			top = top[:3]
		}
		ref, err = m.refiner.Refine(ctx, q, top, titles)
		if err != nil {
			log.Warn().Err(err).Str("question", q.QuestionNumber).Msg("Refinement failed, using top retrieval candidate")
			ref = nil
		} else {
			for _, c := range top {
				if c.Title == ref.ChapterTitle {
					chosen = c
					break
				}
			}
		}
	}

	matched := models.MatchedChapter{
		ChapterNumber:   chosen.ChapterNumber,
		Title:           chosen.Title,
		PageStart:       chosen.PageStart,
		PageEnd:         chosen.PageEnd,
		PageRange:       fmt.Sprintf("Pages %d-%d", chosen.PageStart, chosen.PageEnd),
		SimilarityScore: chosen.SimilarityScore,
		Preview:         finalPreview(chosen.ContentPreview),
	}
	if ref != nil {
		matched.Confidence = ref.Confidence
		matched.Reasoning = ref.Reasoning
	} else {
		matched.Confidence = "low"
	}

	return &models.MatchResult{Question: q, Chapters: []models.MatchedChapter{matched}}, nil
}

// queryText is the text embedded for retrieval. The propagated
// instruction often names the topic a bare sub-part omits.
func queryText(q models.Question) string {
	if q.Instruction != "" {
		return q.Instruction + "\n" + q.Text
	}
	return q.Text
}

func finalPreview(content string) string {
	if len(content) <= models.FinalPreviewLength {
		return content
	}
	return models.Truncate(content, models.FinalPreviewLength) + "..."
}

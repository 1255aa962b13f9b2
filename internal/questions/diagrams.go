package questions

import (
	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// linkDiagrams attaches page-level diagram references to diagram-bearing
// questions. A question's page is estimated proportionally from its
// character offset; the estimated page, the previous and the next are
// checked in that order. The estimate is a known approximation: it assumes
// roughly even text density across pages.
func linkDiagrams(questions []models.Question, offsets map[string]int, totalChars int, pages []models.Page) {
	byPage := make(map[int][]string)
	for _, p := range pages {
		if len(p.DiagramRefs) > 0 {
			byPage[p.PageNumber] = append(byPage[p.PageNumber], p.DiagramRefs...)
		}
	}
	if len(byPage) == 0 {
		return
	}

	charsPerPage := float64(totalChars) / float64(len(byPage))
	if charsPerPage <= 0 {
		return
	}

	for i := range questions {
		q := &questions[i]
		if !q.HasDiagram {
			continue
		}
		offset, ok := offsets[q.QuestionNumber]
		if !ok {
			continue
		}
		estimated := int(float64(offset)/charsPerPage) + 1

		for _, delta := range []int{0, -1, 1} {
			page := estimated + delta
			if refs, ok := byPage[page]; ok {
				q.DiagramRefs = append(q.DiagramRefs, refs...)
				log.Debug().Str("question", q.QuestionNumber).Int("page", page).Int("refs", len(refs)).Msg("Linked diagrams to question")
				break
			}
		}
		if len(q.DiagramRefs) == 0 {
			log.Debug().Str("question", q.QuestionNumber).Int("page", estimated).Msg("Question mentions a diagram but none found nearby")
		}
	}
}

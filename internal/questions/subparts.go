package questions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// markerSpan is one lettered or Roman-numeral marker inside a block,
// together with the text span it governs (up to the next marker).
type markerSpan struct {
	label string
	text  string
}

var subPartMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\(([a-z])\)`),
	regexp.MustCompile(`\(([ivxlcdm]+)\)`),
	regexp.MustCompile(`(?m)^([a-z])\)`),
	regexp.MustCompile(`(?m)^([ivxlcdm]+)\)`),
}

// expandBlock turns one block into its questions. Blocks with repeated
// lettered markers are either a multiple-choice question (kept whole, the
// options stay verbatim in the text) or a multi-part question (split into
// one question per marked span, identified as parent number + label).
func expandBlock(b block) []models.Question {
	for _, re := range subPartMarkers {
		matches := re.FindAllStringSubmatchIndex(b.text, -1)
		if len(matches) < 2 {
			continue
		}

		spans := collectSpans(b.text, matches)
		if isMCQOptions(spans) {
			log.Debug().Int("num", b.num).Msg("Markers classified as MCQ options, keeping block whole")
			break
		}

		leadIn := strings.TrimSpace(b.text[:matches[0][0]])
		subs := splitSubParts(b, leadIn, spans)
		if len(subs) > 0 {
			log.Debug().Int("num", b.num).Int("parts", len(subs)).Msg("Split block into sub-questions")
			return subs
		}
	}

	return []models.Question{{
		QuestionNumber: strconv.Itoa(b.num),
		Text:           cleanQuestionText(b.text),
		Instruction:    b.instruction,
		HasDiagram:     detectDiagramRef(b.text),
	}}
}

func collectSpans(text string, matches [][]int) []markerSpan {
	spans := make([]markerSpan, 0, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		spans = append(spans, markerSpan{
			label: strings.ToLower(text[m[2]:m[3]]),
			text:  strings.TrimSpace(text[m[1]:end]),
		})
	}
	return spans
}

// isMCQOptions classifies repeated marked spans as answer options rather
// than sub-questions. Options are short and uniform: exactly four spans
// with lengths within the tolerance of their mean, or a first span using
// common option wording with a short average.
func isMCQOptions(spans []markerSpan) bool {
	if len(spans) < 2 {
		return false
	}
	total := 0
	for _, s := range spans {
		total += len(s.text)
	}
	avg := float64(total) / float64(len(spans))

	if avg < models.MCQMaxOptionLen && len(spans) == models.MCQOptionCount {
		uniform := true
		for _, s := range spans {
			if absFloat(float64(len(s.text))-avg) >= avg*models.MCQLengthTolerance {
				uniform = false
				break
			}
		}
		if uniform {
			return true
		}
	}

	first := strings.ToLower(spans[0].text)
	if avg < models.MCQVocabMaxLen {
		for _, w := range models.MCQVocab {
			if strings.Contains(first, w) {
				return true
			}
		}
	}
	return false
}

// splitSubParts builds one question per marked span. Each combines the
// block's lead-in (when substantial) with the span, is identified as
// parent number + label, and inherits a diagram flag from the lead-in.
func splitSubParts(b block, leadIn string, spans []markerSpan) []models.Question {
	leadDiagram := detectDiagramRef(leadIn)
	parent := strconv.Itoa(b.num)

	var subs []models.Question
	for _, s := range spans {
		body := whitespaceRe.ReplaceAllString(strings.ReplaceAll(s.text, "\n", " "), " ")

		var text string
		if len(leadIn) > models.MinLeadInLen {
			text = fmt.Sprintf("%s (%s) %s", leadIn, s.label, body)
		} else {
			text = fmt.Sprintf("(%s) %s", s.label, body)
		}
		text = whitespaceRe.ReplaceAllString(text, " ")
		text = models.Truncate(text, 2500)
		if len(text) <= 15 {
			continue
		}

		subs = append(subs, models.Question{
			QuestionNumber: parent + s.label,
			Text:           strings.TrimSpace(text),
			SubPartOf:      parent,
			Instruction:    b.instruction,
			HasDiagram:     leadDiagram || detectDiagramRef(body),
		})
	}
	return subs
}

// detectDiagramRef reports whether text references a figure or diagram.
func detectDiagramRef(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range models.DiagramVocab {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

package questions

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// startMatch is one candidate question start: the character offset of the
// structural marker and the number it captured.
type startMatch struct {
	pos int
	end int
	num int
}

// block is a contiguous run of text belonging to one question number,
// before sub-part expansion.
type block struct {
	num         int
	text        string
	startPos    int
	instruction string
}

// Resolve partitions raw paper text into questions. The text is taken
// uncleaned; OCR pre-correction, candidate detection, deduplication,
// false-positive filtering, gap recovery, block materialization,
// instruction propagation, sub-part expansion and diagram linking run in
// that order. Returns nil only when no structural signal exists anywhere;
// callers then use ParagraphFallback.
func Resolve(rawText string, pages []models.Page) []models.Question {
	text := normalizeSymbols(rawText)
	text = fixDigitConfusions(text)
	text = joinMarginNumbers(text)

	starts := detectStarts(text)
	starts = dedupeByPosition(starts)
	starts = filterFalsePositives(text, starts)
	starts = firstOccurrences(starts)
	starts = recoverGaps(text, starts)

	blocks := materializeBlocks(text, starts)
	if len(blocks) == 0 {
		log.Warn().Msg("No question blocks found")
		return nil
	}
	log.Info().Int("blocks", len(blocks)).Msg("Materialized question blocks")

	var questions []models.Question
	offsets := make(map[string]int)
	for _, b := range blocks {
		expanded := expandBlock(b)
		for _, q := range expanded {
			offsets[q.QuestionNumber] = b.startPos
		}
		questions = append(questions, expanded...)
	}

	linkDiagrams(questions, offsets, len(text), pages)
	return questions
}

// ParagraphFallback treats paragraph breaks as synthetic question
// boundaries. Used by callers when Resolve finds no structural signal.
func ParagraphFallback(rawText string) []models.Question {
	var questions []models.Question
	for _, para := range strings.Split(rawText, "\n\n") {
		para = strings.TrimSpace(para)
		if len(para) <= 30 {
			continue
		}
		para = models.Truncate(para, 800)
		questions = append(questions, models.Question{
			QuestionNumber: strconv.Itoa(len(questions) + 1),
			Text:           cleanQuestionText(para),
		})
	}
	return questions
}

var startPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*(\d+)\s*[\.\)]\s*`),
	regexp.MustCompile(`(?m)^(\d+)\s*[\.\)]`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*,\s*`),
	regexp.MustCompile(`(?m)^(\d+)\s*,\s+[A-Z]`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s+[A-Z]`),
	regexp.MustCompile(`(?m)^(\d+)\s+[A-Za-z]`),
	regexp.MustCompile(`(?m)^Q\.?\s*(\d+)`),
	regexp.MustCompile(`(?m)^Question\s+(\d+)`),
	regexp.MustCompile(`\b(\d+)\s*[\.\)]\s+[A-Z]`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*\.`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*\)`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s{2,}`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*[:\-]`),
	regexp.MustCompile(`(?m)^\s*(\d+)\s*$`),
	regexp.MustCompile(`(?m)^\s*(\d+)[\.\),]\s*(?:A|The|Which|What|How|Find|Calculate|Determine|State|Define|Explain|Describe|Write|Name|Give|Show|Prove|Draw|Identify)`),
}

func detectStarts(text string) []startMatch {
	var all []startMatch
	for _, re := range startPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			num, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil {
				continue
			}
			all = append(all, startMatch{pos: m[0], end: m[1], num: num})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].pos < all[j].pos })
	return all
}

// dedupeByPosition drops matches within DedupeWindow characters of one
// already kept: the same question found by different patterns.
func dedupeByPosition(starts []startMatch) []startMatch {
	var kept []startMatch
	for _, s := range starts {
		dup := false
		for _, k := range kept {
			if abs(s.pos-k.pos) < models.DedupeWindow {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
		}
	}
	return kept
}

var falsePositivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Class\s+\d+`),
	regexp.MustCompile(`(?i)Grade\s+\d+`),
	regexp.MustCompile(`(?i)Page\s+\d+`),
	regexp.MustCompile(`(?i)Roll\s+No`),
	regexp.MustCompile(`(?i)Time:\s*\d+`),
	regexp.MustCompile(`(?i)Marks:\s*\d+`),
	regexp.MustCompile(`(?i)Total\s+Marks`),
	regexp.MustCompile(`(?i)Maximum\s+Marks`),
	regexp.MustCompile(`(?i)P\.?T\.?O\.?`),
	regexp.MustCompile(`\d+[-/]\d+[-/]\d+`),
	regexp.MustCompile(`(?i)Set\s+[A-Z]`),
	regexp.MustCompile(`(?i)Code\s+No`),
}

// filterFalsePositives drops matches whose surrounding context is a
// header label (class, page, marks, set codes) and whose captured number
// is literally part of that label.
func filterFalsePositives(text string, starts []startMatch) []startMatch {
	var kept []startMatch
	for _, s := range starts {
		ctxStart := s.pos - 100
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := s.end + 100
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		ctx := text[ctxStart:ctxEnd]
		numStr := strconv.Itoa(s.num)

		fp := false
		for _, re := range falsePositivePatterns {
			frag := re.FindString(ctx)
			if frag != "" && strings.Contains(frag, numStr) {
				log.Debug().Int("num", s.num).Str("fragment", frag).Msg("Dropping false-positive question start")
				fp = true
				break
			}
		}
		if !fp {
			kept = append(kept, s)
		}
	}
	return kept
}

// firstOccurrences keeps only the first match per question number; later
// repeats come from running headers repeated across pages.
func firstOccurrences(starts []startMatch) []startMatch {
	seen := make(map[int]bool)
	var kept []startMatch
	dropped := 0
	for _, s := range starts {
		if s.num <= 0 {
			continue
		}
		if seen[s.num] {
			dropped++
			continue
		}
		seen[s.num] = true
		kept = append(kept, s)
	}
	if dropped > 0 {
		log.Debug().Int("count", dropped).Msg("Dropped repeated question numbers")
	}
	return kept
}

var recoveryPatterns = []string{
	`(?m)^\s*%d\s*[\.\)]`,
	`(?m)^\s*%d\s*,`,
	`(?m)^%d\s+[A-Za-z]`,
	`\b%d\s*[\.\),]\s+[A-Z]`,
	`Q\.?\s*%d`,
	`Question\s+%d`,
	`\b%d\s*,\s+[A-Z]`,
	`(?m)^\s*%d\s*[:\-—–]`,
	`(?m)^\s*%d\s{2,}[A-Z]`,
	`\b%d\s*[\.\),:\-]\s*\w`,
	`(?m)^\s*%d[^\d]`,
}

// recoverGaps searches for question numbers missing from the contiguous
// min..max range using a widened pattern set and splices hits back in.
// When too many numbers are missing the gaps are reported unrecovered.
func recoverGaps(text string, starts []startMatch) []startMatch {
	if len(starts) == 0 {
		return starts
	}
	present := make(map[int]bool, len(starts))
	min, max := starts[0].num, starts[0].num
	for _, s := range starts {
		present[s.num] = true
		if s.num < min {
			min = s.num
		}
		if s.num > max {
			max = s.num
		}
	}

	var missing []int
	for n := min; n <= max; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return starts
	}
	if len(missing) >= models.MaxRecoverableGaps {
		log.Warn().Int("count", len(missing)).Msg("Too many missing question numbers to recover")
		return starts
	}

	var unrecovered []int
	for _, n := range missing {
		found := false
		for _, p := range recoveryPatterns {
			re := regexp.MustCompile(fmt.Sprintf(p, n))
			if m := re.FindStringIndex(text); m != nil {
				starts = append(starts, startMatch{pos: m[0], end: m[1], num: n})
				log.Debug().Int("num", n).Int("pos", m[0]).Msg("Recovered missing question")
				found = true
				break
			}
		}
		if !found {
			unrecovered = append(unrecovered, n)
		}
	}
	if len(unrecovered) > 0 {
		log.Warn().Ints("numbers", unrecovered).Msg("Question numbers remain missing after recovery")
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].pos < starts[j].pos })
	return starts
}

var (
	mcqOptionRe     = regexp.MustCompile(`(?i)\([A-D]\)`)
	instructionRe   = regexp.MustCompile(`(?i)(?:For questions?|Questions?|Read the following|Refer to|Based on)[^\n]{0,150}`)
	instructRangeRe = regexp.MustCompile(`(\d+)\s*(?:[-–—]+|to)\s*(\d+)`)
	alphaRe         = regexp.MustCompile(`[a-zA-Z]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// materializeBlocks slices the text into per-question blocks, discarding
// junk and instruction-only blocks and attaching applicable instructions.
func materializeBlocks(text string, starts []startMatch) []block {
	var blocks []block
	for i, s := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1].pos
		}
		body := strings.TrimSpace(text[s.pos:end])

		if len(body) < models.MinBlockLen || !alphaRe.MatchString(body) {
			continue
		}

		likely := looksLikeQuestion(body)
		if isInstructionOnly(body) && !likely {
			log.Debug().Int("num", s.num).Msg("Dropping instruction-only block")
			continue
		}
		if len(body) < models.MinQuestionLen && !likely {
			continue
		}

		blocks = append(blocks, block{
			num:         s.num,
			text:        body,
			startPos:    s.pos,
			instruction: findInstruction(text, s.pos, s.num),
		})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].num < blocks[j].num })
	return blocks
}

func isInstructionOnly(body string) bool {
	lower := strings.ToLower(body)
	for _, kw := range models.InstructionOnlyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// looksLikeQuestion reports whether a block carries any question
// indicator: a question mark, an option pattern, or an imperative cue.
func looksLikeQuestion(body string) bool {
	if strings.Contains(body, "?") {
		return true
	}
	if mcqOptionRe.MatchString(body) {
		return true
	}
	lower := strings.ToLower(body)
	for _, verb := range models.QuestionVerbs {
		if containsWord(lower, verb) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		before := start == 0 || !isWordByte(text[start-1])
		after := end == len(text) || !isWordByte(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// findInstruction looks in the text immediately preceding a block for a
// scoped ("For questions 1-5") or unscoped ("Read the following")
// instruction that applies to this question.
func findInstruction(text string, startPos, num int) string {
	ctxStart := startPos - models.InstructionLookback
	if ctxStart < 0 {
		ctxStart = 0
	}
	pre := text[ctxStart:startPos]

	m := instructionRe.FindString(pre)
	if m == "" {
		return ""
	}
	instruction := strings.TrimSpace(m)

	if r := instructRangeRe.FindStringSubmatch(instruction); r != nil {
		lo, _ := strconv.Atoi(r[1])
		hi, _ := strconv.Atoi(r[2])
		if lo <= num && num <= hi {
			return instruction
		}
		return ""
	}
	lower := strings.ToLower(instruction)
	if strings.Contains(lower, "following") || strings.Contains(lower, "refer to") {
		return instruction
	}
	return ""
}

func cleanQuestionText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = models.Truncate(text, 2000)
	return strings.TrimSpace(text)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

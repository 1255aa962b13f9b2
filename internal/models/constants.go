package models

// Heuristic vocabularies and thresholds used by the resolvers. Kept as
// package data so the classification functions stay pure and testable.

const (
	// ExcerptLength bounds the chapter excerpt persisted for preview.
	ExcerptLength = 500
	// PreviewLength bounds the candidate content preview sent to refinement.
	PreviewLength = 1000
	// FinalPreviewLength bounds the preview kept in a MatchResult.
	FinalPreviewLength = 300

	// TOCSearchPages is how many leading pages are scanned for a TOC.
	TOCSearchPages = 20
	// TemplateSearchPages is how many leading pages are joined when probing
	// for a known-template textbook.
	TemplateSearchPages = 50
	// HeadingScanLines is how many leading lines of a page are scanned for
	// in-body chapter headings.
	HeadingScanLines = 10
	// FallbackPagesPerSection is the block size of the uniform fallback.
	FallbackPagesPerSection = 10

	// MinTitleLen and MaxTitleLen bound accepted chapter titles.
	MinTitleLen = 5
	MaxTitleLen = 80

	// DedupeWindow is the character distance under which two question-start
	// matches are treated as the same question.
	DedupeWindow = 10
	// MaxRecoverableGaps caps how many missing question numbers gap
	// recovery will attempt to find.
	MaxRecoverableGaps = 30
	// InstructionLookback is how far before a block start the resolver
	// searches for an applicable instruction.
	InstructionLookback = 300

	// MCQOptionCount, MCQMaxOptionLen and MCQLengthTolerance define when
	// repeated lettered spans are options rather than sub-questions: exactly
	// four spans, short on average, with lengths within the tolerance of
	// their mean.
	MCQOptionCount     = 4
	MCQMaxOptionLen    = 100
	MCQLengthTolerance = 0.5
	// MCQVocabMaxLen is the average-length ceiling for the vocabulary rule.
	MCQVocabMaxLen = 80

	// MinQuestionLen discards blocks shorter than this with no question
	// indicators. MinBlockLen discards blocks with no usable content at all.
	MinQuestionLen = 30
	MinBlockLen    = 5
	// MinLeadInLen is the minimum lead-in length worth prefixing to a
	// sub-question.
	MinLeadInLen = 10
)

// TOCIndicators mark a page as a likely table of contents when found in
// its leading text.
var TOCIndicators = []string{"contents", "table of contents", "index", "syllabus", "chapter"}

// InvalidTitleStarts reject TOC/heading lines that are sentence fragments
// rather than chapter titles.
var InvalidTitleStarts = []string{
	"what", "to calculate", "determine", "find", "calculate",
	"however", "therefore", "thus", "hence",
	"electric field at", "magnetic field at",
}

// InterrogativeStarts reject titles that read as questions.
var InterrogativeStarts = []string{"how", "why", "when", "where"}

// InstructionOnlyKeywords mark a block as paper front-matter rather than a
// question.
var InstructionOnlyKeywords = []string{
	"general instructions",
	"read the following instructions",
	"instructions to candidates",
	"note:",
	"important:",
	"all questions are compulsory",
	"attempt all questions",
	"time allowed",
	"maximum marks",
	"this question paper contains",
	"section",
	"part -",
}

// QuestionVerbs are imperative cues that a block is a real question.
var QuestionVerbs = []string{
	"what", "which", "who", "where", "when", "why", "how",
	"find", "calculate", "determine", "state", "define", "explain",
	"describe", "write", "name", "give", "show", "prove", "draw", "identify",
}

// MCQVocab is common option wording; a first span matching it marks the
// span set as options.
var MCQVocab = []string{
	"both", "none", "all of the above", "none of the above",
	"only", "and", "or", "neither",
}

// DiagramVocab marks a question as diagram-bearing.
var DiagramVocab = []string{
	"diagram", "figure", "graph", "chart", "image", "picture",
	"illustration", "shown", "given below", "as shown",
	"in the figure", "in the diagram", "refer to",
	"circuit", "table", "map", "drawing", "following figure",
}

// OCRDigitConfusions maps single letters that OCR commonly produces in
// place of question-number digits.
var OCRDigitConfusions = map[byte]byte{
	'q': '7',
	'l': '1',
	'o': '0',
	's': '5',
	'b': '6',
	'g': '9',
}

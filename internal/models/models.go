package models

// Page is one page of extracted document text, as produced by the
// extraction collaborator. Pages are ordered by PageNumber.
type Page struct {
	PageNumber  int      `json:"page_number"`
	Text        string   `json:"text"`
	DiagramRefs []string `json:"diagram_refs,omitempty"`
}

// Chapter is one resolved textbook chapter. Content is transient and only
// used to build the embedding; Excerpt is the bounded prefix kept for
// preview.
type Chapter struct {
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
	Content       string `json:"-"`
	Excerpt       string `json:"content_excerpt"`
}

// Question is one resolved question from a paper. QuestionNumber may be
// composite ("7a") when the question is a sub-part; SubPartOf then holds
// the parent number.
type Question struct {
	QuestionNumber string   `json:"question_number"`
	Text           string   `json:"question_text"`
	SubPartOf      string   `json:"sub_part_of,omitempty"`
	HasDiagram     bool     `json:"has_diagram"`
	DiagramRefs    []string `json:"diagram_refs,omitempty"`
	Instruction    string   `json:"instruction,omitempty"`
}

// CandidateChapter is a chapter returned by nearest-neighbor retrieval for
// a question, not yet confirmed by refinement.
type CandidateChapter struct {
	ChapterNumber   int     `json:"chapter_number"`
	Title           string  `json:"chapter_title"`
	PageStart       int     `json:"page_start"`
	PageEnd         int     `json:"page_end"`
	SimilarityScore float64 `json:"similarity_score"`
	ContentPreview  string  `json:"content_preview"`
}

// MatchedChapter is one chapter in the final output for a question.
type MatchedChapter struct {
	ChapterNumber   int     `json:"chapter_number"`
	Title           string  `json:"chapter_title"`
	PageStart       int     `json:"page_start"`
	PageEnd         int     `json:"page_end"`
	PageRange       string  `json:"page_range"`
	SimilarityScore float64 `json:"similarity_score"`
	Preview         string  `json:"preview"`
	Confidence      string  `json:"confidence,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// MatchResult is the final per-question output. Chapters is non-empty by
// construction: when refinement is unavailable or invalid the top
// retrieval candidate is used.
type MatchResult struct {
	Question Question         `json:"question"`
	Chapters []MatchedChapter `json:"chapters"`
}

// Refinement is the structured record extracted from a completion-service
// response. Method names the parser strategy that succeeded.
type Refinement struct {
	ChapterTitle string `json:"chapter_title"`
	Confidence   string `json:"confidence"`
	Reasoning    string `json:"reasoning"`
	Method       string `json:"-"`
}

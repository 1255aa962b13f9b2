package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"exam-mapper/internal/config"
	"exam-mapper/internal/models"
	"exam-mapper/internal/retry"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidResponse means the completion came back but could not be
	// parsed into a refinement, or named a chapter outside the candidates.
	ErrInvalidResponse = errors.New("refinement response not usable")
	// ErrRateLimited is returned on HTTP 429 so the retry layer backs off.
	ErrRateLimited = errors.New("rate limited by completion API")
)

// Client reranks retrieval candidates with a chat-completion model. The
// model only ever picks among the supplied candidates; anything else is
// rejected.
type Client struct {
	cfg        *config.CompletionConfig
	httpClient *http.Client
	policy     retry.Policy
}

func New(cfg *config.CompletionConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout.Std()},
		policy: retry.Policy{
			BaseDelay:   cfg.Retry.BaseDelay.Std(),
			Multiplier:  cfg.Retry.Multiplier,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Refine asks the model to pick the best chapter among the top candidates.
// The returned refinement always names one of the candidate titles.
func (c *Client) Refine(ctx context.Context, question models.Question, candidates []models.CandidateChapter, allTitles []string) (*models.Refinement, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to refine: %w", ErrInvalidResponse)
	}

	top := candidates
	if len(top) > 3 {
		top = top[:3]
	}
	prompt := buildPrompt(question, top, allTitles)

	content, err := retry.Do(ctx, c.policy, "refine", func() (string, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	ref, err := parseRefinement(content, top)
	if err != nil {
		log.Warn().Str("question", question.QuestionNumber).Str("response", truncate(content, 200)).Msg("Unusable refinement response")
		return nil, err
	}
	return ref, nil
}

func buildPrompt(question models.Question, candidates []models.CandidateChapter, allTitles []string) string {
	var b strings.Builder
	b.WriteString("You are matching an exam question to the textbook chapter it is drawn from.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(question.Text)
	if question.Instruction != "" {
		b.WriteString("\n\nInstruction preceding the question:\n")
		b.WriteString(question.Instruction)
	}
	b.WriteString("\n\nCandidate chapters (pick exactly one):\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n%d. %q (Chapter %d, pages %d-%d, similarity score %.2f)\n", i+1, c.Title, c.ChapterNumber, c.PageStart, c.PageEnd, c.SimilarityScore)
		fmt.Fprintf(&b, "   Opening content: %s\n", truncate(c.ContentPreview, models.FinalPreviewLength))
	}
	if len(allTitles) > 0 {
		b.WriteString("\nFor context, the textbook's full chapter list:\n")
		b.WriteString(strings.Join(allTitles, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with ONLY a JSON object, no other text:\n")
	b.WriteString(`{"chapter_title": "<exact title of the chosen candidate>", "confidence": "high|medium|low", "reasoning": "<one sentence>"}`)
	return b.String()
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to encode completion request: %w", err))
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("failed to create completion request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.cfg.Key, "Bearer "))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	// Only rate limiting and transport failures are worth retrying; a bad
	// key or malformed request fails the same way every attempt.
	if resp.StatusCode != http.StatusOK {
		return "", retry.Permanent(fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if chat.Error != nil {
		return "", retry.Permanent(fmt.Errorf("completion API error: %s", chat.Error.Message))
	}
	if len(chat.Choices) == 0 {
		return "", retry.Permanent(fmt.Errorf("completion response has no choices: %w", ErrInvalidResponse))
	}
	return chat.Choices[0].Message.Content, nil
}

type refinementPayload struct {
	ChapterTitle string `json:"chapter_title"`
	Confidence   string `json:"confidence"`
	Reasoning    string `json:"reasoning"`
}

var (
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	objectRe = regexp.MustCompile(`(?s)\{[^{}]*"chapter_title"[^{}]*\}`)
)

// parseRefinement tries three strategies in order: a fenced code block,
// a bare JSON object containing the expected key, and finally the widest
// brace-to-brace slice of the text. The first strategy to yield a valid,
// candidate-grounded payload wins.
func parseRefinement(content string, candidates []models.CandidateChapter) (*models.Refinement, error) {
	strategies := []struct {
		method  string
		extract func(string) (string, bool)
	}{
		{"json_fenced", extractFenced},
		{"json_object", extractObject},
		{"json_scan", extractBraceSpan},
	}

	for _, st := range strategies {
		raw, ok := st.extract(content)
		if !ok {
			continue
		}
		var payload refinementPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			continue
		}
		title, ok := matchCandidate(payload.ChapterTitle, candidates)
		if !ok {
			continue
		}
		return &models.Refinement{
			ChapterTitle: title,
			Confidence:   normalizeConfidence(payload.Confidence),
			Reasoning:    strings.TrimSpace(payload.Reasoning),
			Method:       st.method,
		}, nil
	}
	return nil, ErrInvalidResponse
}

func extractFenced(content string) (string, bool) {
	m := fencedRe.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func extractObject(content string) (string, bool) {
	m := objectRe.FindString(content)
	if m == "" {
		return "", false
	}
	return m, true
}

func extractBraceSpan(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// matchCandidate enforces title grounding: the chosen title must be one
// of the candidates, compared case-insensitively after trimming. The
// canonical candidate title is returned.
func matchCandidate(title string, candidates []models.CandidateChapter) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" {
		return "", false
	}
	for _, c := range candidates {
		if strings.ToLower(strings.TrimSpace(c.Title)) == want {
			return c.Title, true
		}
	}
	return "", false
}

func normalizeConfidence(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "high", "medium", "low":
		return strings.ToLower(strings.TrimSpace(c))
	default:
		return "medium"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return models.Truncate(s, n) + "..."
}

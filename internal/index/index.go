package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"exam-mapper/internal/embedding"
	"exam-mapper/internal/models"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// ErrNotBuilt means no index artifacts exist for the requested textbook.
var ErrNotBuilt = errors.New("index not built")

const (
	collectionName = "chapters"
	// TopK is the default number of candidates returned per query.
	TopK = 5
)

// Store owns the retrieval indexes, one per textbook id. Each index is
// persisted as two artifacts under the store directory: a chromem
// collection holding the chapter vectors and a JSON file holding the
// chapter metadata. Loaded indexes are cached in memory for the process
// lifetime; a rebuild replaces the cache entry wholesale.
type Store struct {
	dir      string
	embedder embedding.Embedder

	mu    sync.Mutex
	cache map[int64]*textbookIndex
}

type textbookIndex struct {
	collection *chromem.Collection
	chapters   []models.Chapter
}

type metadataFile struct {
	TextbookID int64            `json:"textbook_id"`
	Chapters   []models.Chapter `json:"chapters"`
}

func NewStore(dir string, embedder embedding.Embedder) *Store {
	return &Store{
		dir:      dir,
		embedder: embedder,
		cache:    make(map[int64]*textbookIndex),
	}
}

func (s *Store) vectorDir(textbookID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("textbook_%d", textbookID))
}

func (s *Store) metadataPath(textbookID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("textbook_%d.json", textbookID))
}

// Build embeds every chapter's content and writes a fresh index for the
// textbook. Rebuild is wholesale: any previous artifacts for the id are
// removed first and the cache entry is replaced.
func (s *Store) Build(ctx context.Context, textbookID int64, chapters []models.Chapter) error {
	if len(chapters) == 0 {
		return fmt.Errorf("no chapters to index for textbook %d", textbookID)
	}

	docs := make([]chromem.Document, 0, len(chapters))
	for _, ch := range chapters {
		vec, err := s.embedder.EmbedQuery(ctx, ch.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chapter %d: %w", ch.ChapterNumber, err)
		}
		preview := models.Truncate(ch.Content, models.PreviewLength)
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("chapter-%d", ch.ChapterNumber),
			Content: preview,
			Metadata: map[string]string{
				"chapter_number": strconv.Itoa(ch.ChapterNumber),
				"title":          ch.Title,
				"page_start":     strconv.Itoa(ch.PageStart),
				"page_end":       strconv.Itoa(ch.PageEnd),
			},
			Embedding: vec,
		})
	}

	vdir := s.vectorDir(textbookID)
	if err := os.RemoveAll(vdir); err != nil {
		return fmt.Errorf("failed to clear old index: %w", err)
	}
	db, err := chromem.NewPersistentDB(vdir, false)
	if err != nil {
		return fmt.Errorf("failed to create vector database: %w", err)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add chapter vectors: %w", err)
	}

	meta := metadataFile{TextbookID: textbookID, Chapters: chapters}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(s.metadataPath(textbookID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	s.mu.Lock()
	s.cache[textbookID] = &textbookIndex{collection: col, chapters: chapters}
	s.mu.Unlock()

	log.Info().Int64("textbook", textbookID).Int("chapters", len(chapters)).Msg("Built retrieval index")
	return nil
}

// load returns the cached index for a textbook, reading the persisted
// artifacts on first use. Absence of either artifact means not built.
func (s *Store) load(textbookID int64) (*textbookIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.cache[textbookID]; ok {
		return idx, nil
	}

	vdir := s.vectorDir(textbookID)
	if _, err := os.Stat(vdir); err != nil {
		return nil, fmt.Errorf("textbook %d: %w", textbookID, ErrNotBuilt)
	}
	data, err := os.ReadFile(s.metadataPath(textbookID))
	if err != nil {
		return nil, fmt.Errorf("textbook %d: %w", textbookID, ErrNotBuilt)
	}
	var meta metadataFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	db, err := chromem.NewPersistentDB(vdir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	idx := &textbookIndex{collection: col, chapters: meta.Chapters}
	s.cache[textbookID] = idx
	log.Debug().Int64("textbook", textbookID).Int("chapters", len(meta.Chapters)).Msg("Loaded retrieval index")
	return idx, nil
}

// Titles returns the full ordered chapter title list for a textbook,
// used as context by refinement.
func (s *Store) Titles(textbookID int64) ([]string, error) {
	idx, err := s.load(textbookID)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(idx.chapters))
	for i, ch := range idx.chapters {
		titles[i] = fmt.Sprintf("%d. %s", ch.ChapterNumber, ch.Title)
	}
	return titles, nil
}

// Query embeds the question text and returns the min(k, size) nearest
// chapters. Cosine similarity from the store is converted to the L2
// distance of the normalized vectors and then to a bounded display score;
// the score is a ranking aid, not a calibrated probability.
func (s *Store) Query(ctx context.Context, textbookID int64, questionText string, k int) ([]models.CandidateChapter, error) {
	idx, err := s.load(textbookID)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.EmbedQuery(ctx, questionText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	n := idx.collection.Count()
	if n == 0 {
		return nil, fmt.Errorf("textbook %d: %w", textbookID, ErrNotBuilt)
	}
	if k > n {
		k = n
	}

	results, err := idx.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vec,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	candidates := make([]models.CandidateChapter, 0, len(results))
	for _, res := range results {
		num, _ := strconv.Atoi(res.Metadata["chapter_number"])
		start, _ := strconv.Atoi(res.Metadata["page_start"])
		end, _ := strconv.Atoi(res.Metadata["page_end"])
		candidates = append(candidates, models.CandidateChapter{
			ChapterNumber:   num,
			Title:           res.Metadata["title"],
			PageStart:       start,
			PageEnd:         end,
			SimilarityScore: displayScore(res.Similarity),
			ContentPreview:  res.Content,
		})
	}
	return candidates, nil
}

// displayScore maps cosine similarity s to the L2 distance between the
// normalized vectors, d = sqrt(2 - 2s), and then to max(0, 100 - 10d).
func displayScore(similarity float32) float64 {
	s := float64(similarity)
	if s > 1 {
		s = 1
	}
	if s < -1 {
		s = -1
	}
	d := math.Sqrt(2 - 2*s)
	score := 100 - 10*d
	if score < 0 {
		score = 0
	}
	return math.Round(score*100) / 100
}

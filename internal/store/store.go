package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"exam-mapper/internal/config"
	"exam-mapper/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Textbook is one ingested textbook.
type Textbook struct {
	bun.BaseModel `bun:"table:textbooks,alias:t"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Title         string    `bun:"title,notnull"`
	FilePath      string    `bun:"file_path,notnull"`
	PageCount     int       `bun:"page_count,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ChapterRow is a resolved chapter boundary persisted per textbook.
type ChapterRow struct {
	bun.BaseModel `bun:"table:chapters,alias:c"`
	ID            int64  `bun:"id,pk,autoincrement"`
	TextbookID    int64  `bun:"textbook_id,notnull"`
	ChapterNumber int    `bun:"chapter_number,notnull"`
	Title         string `bun:"title,notnull"`
	PageStart     int    `bun:"page_start,notnull"`
	PageEnd       int    `bun:"page_end,notnull"`
	Excerpt       string `bun:"excerpt"`
}

// MatchRow is one question-to-chapter mapping from an analysis run.
type MatchRow struct {
	bun.BaseModel  `bun:"table:matches,alias:m"`
	ID             int64     `bun:"id,pk,autoincrement"`
	RunID          string    `bun:"run_id,notnull"`
	TextbookID     int64     `bun:"textbook_id,notnull"`
	QuestionNumber string    `bun:"question_number,notnull"`
	QuestionText   string    `bun:"question_text,notnull"`
	ChapterNumber  int       `bun:"chapter_number"`
	ChapterTitle   string    `bun:"chapter_title"`
	PageRange      string    `bun:"page_range"`
	Score          float64   `bun:"score"`
	Confidence     string    `bun:"confidence"`
	Reasoning      string    `bun:"reasoning"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Store persists textbooks, chapter boundaries, and mapping runs in
// Postgres.
type Store struct {
	db *bun.DB
}

func Connect(cfg *config.DatabaseConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	for _, model := range []any{(*Textbook)(nil), (*ChapterRow)(nil), (*MatchRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// SaveTextbook inserts a textbook record and returns its id.
func (s *Store) SaveTextbook(ctx context.Context, title, filePath string, pageCount int) (int64, error) {
	tb := &Textbook{Title: title, FilePath: filePath, PageCount: pageCount}
	if _, err := s.db.NewInsert().Model(tb).Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to save textbook: %w", err)
	}
	return tb.ID, nil
}

// ReplaceChapters replaces the textbook's chapter boundary rows
// wholesale, mirroring the index rebuild semantics.
func (s *Store) ReplaceChapters(ctx context.Context, textbookID int64, chapters []models.Chapter) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChapterRow)(nil)).Where("textbook_id = ?", textbookID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete old chapters: %w", err)
		}
		rows := make([]ChapterRow, 0, len(chapters))
		for _, ch := range chapters {
			rows = append(rows, ChapterRow{
				TextbookID:    textbookID,
				ChapterNumber: ch.ChapterNumber,
				Title:         ch.Title,
				PageStart:     ch.PageStart,
				PageEnd:       ch.PageEnd,
				Excerpt:       ch.Excerpt,
			})
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert chapters: %w", err)
		}
		return nil
	})
}

// Chapters loads the persisted chapter boundaries for a textbook, in
// chapter order.
func (s *Store) Chapters(ctx context.Context, textbookID int64) ([]models.Chapter, error) {
	var rows []ChapterRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("textbook_id = ?", textbookID).
		Order("chapter_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapters: %w", err)
	}
	chapters := make([]models.Chapter, 0, len(rows))
	for _, r := range rows {
		chapters = append(chapters, models.Chapter{
			ChapterNumber: r.ChapterNumber,
			Title:         r.Title,
			PageStart:     r.PageStart,
			PageEnd:       r.PageEnd,
			Excerpt:       r.Excerpt,
		})
	}
	return chapters, nil
}

// SaveMatches records every mapping produced by one analysis run.
func (s *Store) SaveMatches(ctx context.Context, runID string, textbookID int64, results []models.MatchResult) error {
	rows := make([]MatchRow, 0, len(results))
	for _, res := range results {
		row := MatchRow{
			RunID:          runID,
			TextbookID:     textbookID,
			QuestionNumber: res.Question.QuestionNumber,
			QuestionText:   res.Question.Text,
		}
		if len(res.Chapters) > 0 {
			ch := res.Chapters[0]
			row.ChapterNumber = ch.ChapterNumber
			row.ChapterTitle = ch.Title
			row.PageRange = ch.PageRange
			row.Score = ch.SimilarityScore
			row.Confidence = ch.Confidence
			row.Reasoning = ch.Reasoning
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save matches: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exam-mapper/internal/chapters"
	"exam-mapper/internal/config"
	"exam-mapper/internal/embedding"
	"exam-mapper/internal/extract"
	"exam-mapper/internal/index"
	"exam-mapper/internal/mapper"
	"exam-mapper/internal/models"
	"exam-mapper/internal/questions"
	"exam-mapper/internal/refine"
	"exam-mapper/internal/report"
	"exam-mapper/internal/store"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	textbookPath := flag.String("textbook", "", "Path to a textbook file to ingest")
	textbookTitle := flag.String("title", "", "Textbook title (defaults to the file name)")
	textbookID := flag.Int64("textbook-id", 0, "Textbook id to analyze against")
	paperPath := flag.String("paper", "", "Path to an exam paper file to analyze")
	configPath := flag.String("config", configFilePath, "Path to the config file")
	reportPath := flag.String("report", "mapping_report.md", "Path for the analysis report")
	htmlReport := flag.Bool("html", false, "Also write an HTML rendering of the report")
	dryRun := flag.Bool("dry-run", false, "Dry run, do not save to database")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	switch {
	case *textbookPath != "":
		ingestTextbook(ctx, cfg, *textbookPath, *textbookTitle, *textbookID, *dryRun)
	case *paperPath != "":
		if *textbookID == 0 {
			log.Fatal().Msg("Please provide the textbook to analyze against using the -textbook-id flag")
		}
		analyzePaper(ctx, cfg, *paperPath, *textbookID, *reportPath, *htmlReport, *dryRun)
	default:
		log.Fatal().Msg("Please provide a textbook file using the -textbook flag or an exam paper using the -paper flag")
	}
}

func ingestTextbook(ctx context.Context, cfg *config.Config, filePath, title string, id int64, dryRun bool) {
	pages, err := extract.Pages(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting textbook")
	}
	log.Info().Int("pages", len(pages)).Str("file", filePath).Msg("Extracted textbook")

	resolved := chapters.Resolve(pages)
	log.Info().Int("chapters", len(resolved)).Msg("Resolved chapter boundaries")

	if title == "" {
		title = filepath.Base(filePath)
	}

	if !dryRun {
		st, err := store.Connect(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		defer st.Close()
		if err := st.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		if id == 0 {
			id, err = st.SaveTextbook(ctx, title, filePath, len(pages))
			if err != nil {
				log.Fatal().Err(err).Msg("Error saving textbook")
			}
		}
		if err := st.ReplaceChapters(ctx, id, resolved); err != nil {
			log.Fatal().Err(err).Msg("Error saving chapters")
		}
	} else if id == 0 {
		id = 1
	}

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	idx := index.NewStore(cfg.Index.Dir, embedder)
	if err := idx.Build(ctx, id, resolved); err != nil {
		log.Fatal().Err(err).Msg("Error building retrieval index")
	}

	log.Info().Int64("textbook", id).Str("title", title).Msg("Textbook ingested")
}

func analyzePaper(ctx context.Context, cfg *config.Config, filePath string, textbookID int64, reportPath string, htmlReport, dryRun bool) {
	pages, err := extract.RawPages(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting exam paper")
	}
	rawText := extract.FullText(pages)

	resolved := questions.Resolve(rawText, pages)
	if len(resolved) == 0 {
		log.Warn().Msg("No numbered questions detected, falling back to paragraph segmentation")
		resolved = questions.ParagraphFallback(rawText)
	}
	if len(resolved) == 0 {
		log.Fatal().Msg("No questions found in exam paper")
	}
	log.Info().Int("questions", len(resolved)).Str("file", filePath).Msg("Resolved questions")

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	idx := index.NewStore(cfg.Index.Dir, embedder)

	var st *store.Store
	if !dryRun {
		st, err = store.Connect(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		defer st.Close()
		if err := st.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
	}

	var refiner mapper.Refiner
	if cfg.Completion.Key != "" {
		refiner = refine.New(&cfg.Completion)
	} else {
		log.Warn().Msg("No completion key configured, skipping match refinement")
	}

	m := mapper.New(idx, refiner, cfg.Completion.InterCallDelay.Std())
	results, err := m.MapPaper(ctx, textbookID, resolved)
	if errors.Is(err, index.ErrNotBuilt) && st != nil {
		log.Warn().Int64("textbook", textbookID).Msg("Index not on disk, rebuilding from saved chapters")
		results, err = rebuildAndMap(ctx, st, idx, m, textbookID, resolved)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error mapping questions")
	}

	runID, err := report.NewRunID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating run id")
	}

	title := filepath.Base(filePath)
	if st != nil {
		if err := st.SaveMatches(ctx, runID, textbookID, results); err != nil {
			log.Fatal().Err(err).Msg("Error saving matches")
		}
	}

	md := report.Markdown(runID, title, results)
	if err := report.Write(reportPath, md, htmlReport); err != nil {
		log.Fatal().Err(err).Msg("Error writing report")
	}
	log.Info().Str("report", reportPath).Int("questions", len(results)).Msg("Analysis complete")
}

// rebuildAndMap recovers from a missing on-disk index by rebuilding it
// from the chapters saved at ingestion. Only the persisted excerpts are
// available at this point, so the rebuilt embeddings are coarser than the
// full-content ones from ingestion.
func rebuildAndMap(ctx context.Context, st *store.Store, idx *index.Store, m *mapper.Mapper, textbookID int64, resolved []models.Question) ([]models.MatchResult, error) {
	chs, err := st.Chapters(ctx, textbookID)
	if err != nil {
		return nil, err
	}
	if len(chs) == 0 {
		return nil, fmt.Errorf("textbook %d has no saved chapters, ingest it first", textbookID)
	}
	for i := range chs {
		chs[i].Content = chs[i].Excerpt
	}
	if err := idx.Build(ctx, textbookID, chs); err != nil {
		return nil, err
	}
	return m.MapPaper(ctx, textbookID, resolved)
}

package chapters

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// tocEntry is a (number, title, start page) triple from the TOC, a known
// template, or an in-body heading. Page ranges are computed later.
type tocEntry struct {
	Number    int
	Title     string
	PageStart int
}

// Resolve partitions textbook pages into titled chapters. Strategies are
// tried in priority order and the first that yields an accepted result
// wins: TOC parse, known-template match, in-body heading scan, then a
// uniform page-block fallback. The resolver degrades through tiers and
// always returns at least one chapter for non-empty input.
func Resolve(pages []models.Page) []models.Chapter {
	if len(pages) == 0 {
		return nil
	}

	if entries := parseTOC(pages); len(entries) > 0 {
		log.Info().Int("chapters", len(entries)).Msg("Resolved chapters from table of contents")
		return materialize(entries, pages)
	}

	if entries := matchKnownTemplate(pages); len(entries) > 0 {
		log.Info().Int("chapters", len(entries)).Msg("Resolved chapters from known template")
		return materialize(entries, pages)
	}

	if entries := scanHeadings(pages); len(entries) > 0 {
		log.Info().Int("chapters", len(entries)).Msg("Resolved chapters from in-body headings")
		return materialize(entries, pages)
	}

	log.Warn().Msg("No chapter structure found, falling back to uniform sections")
	return uniformSections(pages)
}

// materialize turns a start-page list into full chapters: each entry ends
// where the next begins, the last ends at the document's last page, and
// the first is clamped to page 1 so the whole page range is covered.
func materialize(entries []tocEntry, pages []models.Page) []models.Chapter {
	lastPage := pages[len(pages)-1].PageNumber

	starts := make([]int, len(entries))
	for i, e := range entries {
		starts[i] = e.PageStart
	}
	starts[0] = 1

	chapters := make([]models.Chapter, 0, len(entries))
	for i, e := range entries {
		start := starts[i]
		end := lastPage
		if i+1 < len(starts) {
			end = starts[i+1] - 1
		}
		if end < start {
			end = start
		}

		var content strings.Builder
		for _, p := range pages {
			if p.PageNumber >= start && p.PageNumber <= end {
				content.WriteString(p.Text)
				content.WriteString("\n")
			}
		}
		text := strings.TrimSpace(content.String())

		chapters = append(chapters, models.Chapter{
			ChapterNumber: e.Number,
			Title:         e.Title,
			PageStart:     start,
			PageEnd:       end,
			Content:       text,
			Excerpt:       models.Truncate(text, models.ExcerptLength),
		})
	}
	return chapters
}

func uniformSections(pages []models.Page) []models.Chapter {
	var chapters []models.Chapter
	for i := 0; i < len(pages); i += models.FallbackPagesPerSection {
		end := i + models.FallbackPagesPerSection
		if end > len(pages) {
			end = len(pages)
		}
		block := pages[i:end]

		var content strings.Builder
		for _, p := range block {
			content.WriteString(p.Text)
			content.WriteString("\n")
		}
		text := strings.TrimSpace(content.String())

		num := i/models.FallbackPagesPerSection + 1
		start := block[0].PageNumber
		if num == 1 {
			start = 1
		}
		chapters = append(chapters, models.Chapter{
			ChapterNumber: num,
			Title:         fmt.Sprintf("Section %d", num),
			PageStart:     start,
			PageEnd:       block[len(block)-1].PageNumber,
			Content:       text,
			Excerpt:       models.Truncate(text, models.ExcerptLength),
		})
	}
	return chapters
}

var tocLinePatterns = []*regexp.Regexp{
	// "1. Electric Charges and Fields 1"
	regexp.MustCompile(`^(\d{1,2})\.\s+([A-Z][A-Za-z\s\-&]+?)\s+(\d{1,3})\s*$`),
	// "1. Electric Charges and Fields ........ 1"
	regexp.MustCompile(`^(\d{1,2})\.\s+(.+?)\s+\.{3,}\s*(\d{1,3})\s*$`),
	// "Chapter 1 Electric Charges 1"
	regexp.MustCompile(`^(?:Chapter|CHAPTER)\s+(\d{1,2})\s+([A-Z][A-Za-z\s\-&]+?)\s+(\d{1,3})\s*$`),
	// "Chapter 1: Electric Charges 1"
	regexp.MustCompile(`^(?:Chapter|CHAPTER)\s+(\d{1,2}):\s+(.+?)\s+(\d{1,3})\s*$`),
}

var numberedLineRe = regexp.MustCompile(`^\d{1,2}\.`)

// parseTOC scans the leading pages for a table of contents and extracts
// (number, title, start page) entries from it.
func parseTOC(pages []models.Page) []tocEntry {
	limit := models.TOCSearchPages
	if limit > len(pages) {
		limit = len(pages)
	}

	var entries []tocEntry
	for _, page := range pages[:limit] {
		if !isTOCPage(page.Text) {
			continue
		}
		log.Debug().Int("page", page.PageNumber).Msg("Found potential TOC page")

		for _, line := range strings.Split(page.Text, "\n") {
			line = strings.TrimSpace(line)
			if len(line) < models.MinTitleLen {
				continue
			}
			for _, re := range tocLinePatterns {
				m := re.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				num, _ := strconv.Atoi(m[1])
				pageNum, err := strconv.Atoi(m[3])
				if err != nil {
					pageNum = 1
				}
				title := cleanTitle(m[2])
				if !acceptTitle(title) {
					continue
				}
				entries = append(entries, tocEntry{Number: num, Title: title, PageStart: pageNum})
				break
			}
		}
	}

	return dedupeEntries(entries)
}

func isTOCPage(text string) bool {
	head := models.Truncate(strings.ToLower(text), 500)
	for _, ind := range models.TOCIndicators {
		if strings.Contains(head, ind) {
			return true
		}
	}
	numbered := 0
	for _, line := range strings.Split(text, "\n") {
		if numberedLineRe.MatchString(strings.TrimSpace(line)) {
			numbered++
		}
	}
	return numbered >= 5
}

func dedupeEntries(entries []tocEntry) []tocEntry {
	seen := make(map[string]bool)
	var unique []tocEntry
	for _, e := range entries {
		key := fmt.Sprintf("%d|%s", e.Number, e.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Number < unique[j].Number })
	return unique
}

var (
	trailingDigitsRe = regexp.MustCompile(`\s+\d+\s*$`)
	dotLeaderRe      = regexp.MustCompile(`\.{3,}.*$`)
	trailingDotRe    = regexp.MustCompile(`\s+\.\s*$`)
	leadingNumberRe  = regexp.MustCompile(`^\d+\.\s*`)
	trailingDashRe   = regexp.MustCompile(`\s*-\s*$`)
	allDigitsRe      = regexp.MustCompile(`^\d+$`)
)

func cleanTitle(title string) string {
	title = trailingDigitsRe.ReplaceAllString(title, "")
	title = dotLeaderRe.ReplaceAllString(title, "")
	title = trailingDotRe.ReplaceAllString(title, "")
	title = leadingNumberRe.ReplaceAllString(title, "")
	title = trailingDashRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// acceptTitle filters out lines that match a TOC shape but are not chapter
// titles: sentence fragments, questions, sub-section headings.
func acceptTitle(title string) bool {
	if len(title) < models.MinTitleLen || len(title) > models.MaxTitleLen {
		return false
	}
	if allDigitsRe.MatchString(title) {
		return false
	}
	if strings.Contains(title, "?") {
		return false
	}
	// Long hyphenated strings are sub-section headings, not chapters.
	if strings.Contains(title, "-") && len(title) > 50 {
		return false
	}
	lower := strings.ToLower(title)
	for _, start := range models.InvalidTitleStarts {
		if strings.HasPrefix(lower, start) {
			return false
		}
	}
	for _, start := range models.InterrogativeStarts {
		if strings.HasPrefix(lower, start) {
			return false
		}
	}
	first := title[0]
	if first >= 'a' && first <= 'z' {
		return false
	}
	return true
}

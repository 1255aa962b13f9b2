package chapters

import (
	"regexp"
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i:Chapter)\s+(\d+)[:\s]+([A-Z][A-Za-z\s\-]+)$`),
	regexp.MustCompile(`^(?i:Unit)\s+(\d+)[:\s]+([A-Z][A-Za-z\s\-]+)$`),
	regexp.MustCompile(`^(\d+)\.\s+([A-Z][A-Za-z\s\-]{5,})$`),
}

// scanHeadings walks every page, checking its leading lines for a chapter
// heading. A match opens a new chapter at that page; the previous one is
// implicitly closed by materialize's range computation. Chapters are
// numbered sequentially in page order.
func scanHeadings(pages []models.Page) []tocEntry {
	var entries []tocEntry
	for _, page := range pages {
		lines := strings.Split(page.Text, "\n")
		limit := models.HeadingScanLines
		if limit > len(lines) {
			limit = len(lines)
		}
		for _, line := range lines[:limit] {
			line = strings.TrimSpace(line)
			if len(line) < models.MinTitleLen || len(line) > 100 {
				continue
			}
			title, ok := matchHeading(line)
			if !ok {
				continue
			}
			entries = append(entries, tocEntry{
				Number:    len(entries) + 1,
				Title:     title,
				PageStart: page.PageNumber,
			})
			log.Debug().Int("chapter", len(entries)).Str("title", title).Int("page", page.PageNumber).Msg("Found chapter heading")
			break
		}
	}
	return entries
}

func matchHeading(line string) (string, bool) {
	for _, re := range headingPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := cleanTitle(m[2])
		if !acceptTitle(title) {
			continue
		}
		if strings.HasSuffix(title, ",") {
			continue
		}
		return title, true
	}
	return "", false
}

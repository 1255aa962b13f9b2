package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"exam-mapper/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// ErrNoText means the document yielded no usable text at all.
var ErrNoText = errors.New("no extractable text")

// Pages extracts an ordered page sequence from a document, with running
// headers and footers removed. Used for textbooks, where page furniture
// would pollute chapter content.
func Pages(filePath string) ([]models.Page, error) {
	pages, err := RawPages(filePath)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Text = cleanHeadersFooters(pages[i].Text)
	}
	return checkText(pages, filePath)
}

// RawPages extracts pages without any cleaning. Used for question papers:
// the question resolver wants the text exactly as extracted, noise and all.
// PDFs keep their real page boundaries; other formats are mapped onto
// synthetic pages (sheet or whole file). Diagram references are only
// available from the collaborator's page JSON, see LoadPagesJSON.
func RawPages(filePath string) ([]models.Page, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return pdfPages(filePath)
	case ".docx":
		return docxPages(filePath)
	case ".xlsx":
		return xlsxPages(filePath)
	case ".ods":
		return odsPages(filePath)
	case ".txt":
		return textPages(filePath)
	case ".json":
		return LoadPagesJSON(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func checkText(pages []models.Page, filePath string) ([]models.Page, error) {
	total := 0
	for _, p := range pages {
		total += len(strings.TrimSpace(p.Text))
	}
	if total == 0 {
		return nil, ErrNoText
	}
	log.Debug().Int("pages", len(pages)).Int("chars", total).Str("file", filePath).Msg("Extracted pages")
	return pages, nil
}

// LoadPagesJSON reads the extraction collaborator's native output: a JSON
// array of {page_number, text, diagram_refs} objects.
func LoadPagesJSON(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var pages []models.Page
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode pages: %w", err)
	}
	return pages, nil
}

// FullText joins page texts with blank lines so block offsets stay
// comparable across pages.
func FullText(pages []models.Page) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}

func pdfPages(filePath string) ([]models.Page, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Failed to read page text")
			pageText = ""
		}
		pages = append(pages, models.Page{PageNumber: i, Text: pageText})
	}
	return pages, nil
}

func docxPages(filePath string) ([]models.Page, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	content := doc.GetContent()
	content = stripDocxTags(content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrNoText
	}
	// DOCX has no page boundaries; treat the whole body as one page.
	return []models.Page{{PageNumber: 1, Text: content}}, nil
}

func xlsxPages(filePath string) ([]models.Page, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []models.Page
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) != "" {
			pages = append(pages, models.Page{PageNumber: sheetNum + 1, Text: text.String()})
		}
	}
	return pages, nil
}

func odsPages(filePath string) ([]models.Page, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.Page
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) != "" {
			pages = append(pages, models.Page{PageNumber: sheetNum + 1, Text: text.String()})
		}
	}
	return pages, nil
}

func textPages(filePath string) ([]models.Page, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrNoText
	}
	return []models.Page{{PageNumber: 1, Text: string(data)}}, nil
}

func stripDocxTags(content string) string {
	var text strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			text.WriteRune(r)
		}
	}
	return text.String()
}

var headerFooterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Page\s+\d+`),
	regexp.MustCompile(`^\d+\s*$`),
	regexp.MustCompile(`^-\s*\d+\s*-$`),
	regexp.MustCompile(`^\[\s*\d+\s*\]$`),
	regexp.MustCompile(`(?i)^www\.`),
	regexp.MustCompile(`(?i)^https?://`),
	regexp.MustCompile(`©.*\d{4}`),
}

// cleanHeadersFooters drops running headers and footers. Only the first
// and last three lines of a page are candidates, so question or chapter
// content in the body is never touched.
func cleanHeadersFooters(text string) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	var cleaned []string
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			cleaned = append(cleaned, line)
			continue
		}
		ignore := false
		if i < 3 || i >= len(lines)-3 {
			for _, re := range headerFooterPatterns {
				if re.MatchString(stripped) {
					ignore = true
					break
				}
			}
		}
		if !ignore {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

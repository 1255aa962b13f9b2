package chapters

import (
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

// knownTemplate describes a well-known textbook whose chapter layout we
// carry as a hard-coded table. Detection is by co-occurrence of several
// distinctive phrase fragments in the leading pages.
type knownTemplate struct {
	Name      string
	Fragments []string
	Chapters  []tocEntry
}

var knownTemplates = []knownTemplate{
	{
		Name:      "NCERT Physics Class 12",
		Fragments: []string{"electric charges", "electrostatic potential", "current electricity"},
		Chapters: []tocEntry{
			{Number: 1, Title: "Electric Charges and Fields", PageStart: 1},
			{Number: 2, Title: "Electrostatic Potential and Capacitance", PageStart: 45},
			{Number: 3, Title: "Current Electricity", PageStart: 89},
			{Number: 4, Title: "Moving Charges and Magnetism", PageStart: 133},
			{Number: 5, Title: "Magnetism and Matter", PageStart: 177},
			{Number: 6, Title: "Electromagnetic Induction", PageStart: 221},
			{Number: 7, Title: "Alternating Current", PageStart: 265},
			{Number: 8, Title: "Electromagnetic Waves", PageStart: 309},
			{Number: 9, Title: "Ray Optics and Optical Instruments", PageStart: 353},
			{Number: 10, Title: "Wave Optics", PageStart: 397},
			{Number: 11, Title: "Dual Nature of Radiation and Matter", PageStart: 441},
			{Number: 12, Title: "Atoms", PageStart: 485},
			{Number: 13, Title: "Nuclei", PageStart: 529},
			{Number: 14, Title: "Semiconductor Electronics", PageStart: 573},
		},
	},
}

// matchKnownTemplate checks the leading pages against each known-template
// fragment set and returns the template's chapter table on a match,
// trimmed to entries whose start page exists in the document.
func matchKnownTemplate(pages []models.Page) []tocEntry {
	limit := models.TemplateSearchPages
	if limit > len(pages) {
		limit = len(pages)
	}
	var head strings.Builder
	for _, p := range pages[:limit] {
		head.WriteString(p.Text)
		head.WriteString(" ")
	}
	text := strings.ToLower(head.String())

	lastPage := pages[len(pages)-1].PageNumber

	for _, tmpl := range knownTemplates {
		matched := true
		for _, frag := range tmpl.Fragments {
			if !strings.Contains(text, frag) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		var entries []tocEntry
		for _, e := range tmpl.Chapters {
			if e.PageStart <= lastPage {
				entries = append(entries, e)
			}
		}
		if len(entries) > 5 {
			log.Debug().Str("template", tmpl.Name).Msg("Detected known textbook template")
			return entries
		}
	}
	return nil
}

package questions

import (
	"fmt"
	"regexp"
	"strings"

	"exam-mapper/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	misreadNumberRe = regexp.MustCompile(`^([a-z])\s*[\.,]\s+`)
	marginNumberRe  = regexp.MustCompile(`^\s*(?:Q\.?\s*)?(\d+)\s*[\.\)]?\s*$`)
	numberedLeadRe  = regexp.MustCompile(`^\d+\s*[\.\)]`)
)

// fixDigitConfusions repairs question numbers that OCR read as letters: a
// line starting with a single lowercase letter followed by a dot or comma
// is mapped back to the digit it was confused with.
func fixDigitConfusions(text string) string {
	lines := strings.Split(text, "\n")
	fixed := 0
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		m := misreadNumberRe.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}
		digit, ok := models.OCRDigitConfusions[m[1][0]]
		if !ok {
			continue
		}
		lines[i] = strings.Replace(line, m[0], fmt.Sprintf("%c. ", digit), 1)
		fixed++
	}
	if fixed > 0 {
		log.Debug().Int("count", fixed).Msg("Fixed OCR digit confusions")
	}
	return strings.Join(lines, "\n")
}

// joinMarginNumbers rejoins question numbers that OCR placed on their own
// line (margin layout) with the question text that follows them.
func joinMarginNumbers(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	joined := 0
	for i := 0; i < len(lines); i++ {
		m := marginNumberRe.FindStringSubmatch(lines[i])
		if m != nil && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next != "" && !numberedLeadRe.MatchString(next) {
				out = append(out, fmt.Sprintf("%s. %s", m[1], next))
				joined++
				i++
				continue
			}
		}
		out = append(out, lines[i])
	}
	if joined > 0 {
		log.Debug().Int("count", joined).Msg("Joined margin numbers with question text")
	}
	return strings.Join(out, "\n")
}

var greekFixes = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\b(charge\s+density|linear\s+charge\s+density)\s+[4A]\b`), `$1 λ`},
	{regexp.MustCompile(`(?i)\b(wavelength|wave\s+length)\s+[4A]\b`), `$1 λ`},
	{regexp.MustCompile(`(?i)\b(angle|at\s+angle)\s+[0O]\b`), `$1 θ`},
	{regexp.MustCompile(`(?i)\b(value\s+of\s+)pi\b`), `${1}π`},
	{regexp.MustCompile(`(?i)\b(equals\s+)pi\b`), `${1}π`},
	{regexp.MustCompile(`(?i)\b(change|difference)\s+delta\b`), `$1 Δ`},
	{regexp.MustCompile(`(?i)\b(surface\s+charge\s+density|conductivity)\s+sigma\b`), `$1 σ`},
	{regexp.MustCompile(`(?i)\b(angular\s+frequency|angular\s+velocity)\s+omega\b`), `$1 ω`},
	{regexp.MustCompile(`(?i)\b(coefficient|constant)\s+alpha\b`), `$1 α`},
	{regexp.MustCompile(`(?i)\b(coefficient|constant)\s+beta\b`), `$1 β`},
	{regexp.MustCompile(`(?i)\b(photon|ray)\s+gamma\b`), `$1 γ`},
}

var superscripts = map[rune]string{
	'⁰': "^0", '¹': "^1", '²': "^2", '³': "^3", '⁴': "^4",
	'⁵': "^5", '⁶': "^6", '⁷': "^7", '⁸': "^8", '⁹': "^9",
	'⁺': "^+", '⁻': "^-", '⁼': "^=", '⁽': "^(", '⁾': "^)",
}

var subscripts = map[rune]string{
	'₀': "_0", '₁': "_1", '₂': "_2", '₃': "_3", '₄': "_4",
	'₅': "_5", '₆': "_6", '₇': "_7", '₈': "_8", '₉': "_9",
	'₊': "_+", '₋': "_-", '₌': "_=", '₍': "_(", '₎': "_)",
}

// normalizeSymbols fixes Greek letters the extractor misread in known
// physics contexts and rewrites super/subscripts to ^ and _ notation. All
// other symbols pass through untouched.
func normalizeSymbols(text string) string {
	if text == "" {
		return text
	}
	for _, f := range greekFixes {
		text = f.re.ReplaceAllString(text, f.repl)
	}
	text = strings.ReplaceAll(text, "µ", "μ")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if s, ok := superscripts[r]; ok {
			b.WriteString(s)
		} else if s, ok := subscripts[r]; ok {
			b.WriteString(s)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

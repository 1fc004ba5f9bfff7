// Package normalize repairs OCR and layout damage in extracted Form 990 text
// before field location runs. Cleaning is conservative: glyph fixes apply only
// in numeric context, and every cell records how much of it was rewritten.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Standalone lowercase l or uppercase O adjacent to digits are the two
	// glyph confusions tesseract produces on 990 amount columns.
	lAsOneRe  = regexp.MustCompile(`\b(\d*)l(\d+)\b|\b(\d+)l(\d*)\b`)
	oAsZeroRe = regexp.MustCompile(`\b(\d+)O(\d*)\b|\b(\d*)O(\d+)\b`)

	standaloneLRe = regexp.MustCompile(`(^|\s)l(\s|$)`)
	standaloneORe = regexp.MustCompile(`(^|\s)O(\s|$)`)

	trailingDotAmountRe = regexp.MustCompile(`^([\d,]+)\.$`)

	multiSpaceRe = regexp.MustCompile(`[ \t]{2,}`)

	spacedDigitsRe = regexp.MustCompile(`\b\d( \d){3,}\b`)

	// Fixed OCR artifacts: known garbled sequences, dot and tilde leader
	// runs, and runs of mixed bracket or slash characters. Short bracket
	// pairs like "(c)(3)" never form a run of three.
	artifactRes = []*regexp.Regexp{
		regexp.MustCompile(regexp.QuoteMeta(`<ti \(/1`)),
		regexp.MustCompile(regexp.QuoteMeta(`C c,J :C`)),
		regexp.MustCompile(`\.{5,}`),
		regexp.MustCompile(`~{5,}`),
		regexp.MustCompile(`[<>(){}/\\]{3,}`),
	}
)

// labelFixes repairs recurring header typos seen in scanned filings.
var labelFixes = []struct {
	from string
	to   string
}{
	{"(Cl)", "(C)"},
	{"(Dl)", "(D)"},
	{"ia-1f", "1a-1f"},
	{"la-1f", "1a-1f"},
	{"Revenus", "Revenue"},
	{"Expensas", "Expenses"},
}

// FixNumericGlyphs rewrites l to 1 and O to 0 where they sit inside or
// directly beside digit runs, and when they stand alone as a whole token.
func FixNumericGlyphs(s string) string {
	s = lAsOneRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, "l", "1")
	})
	s = oAsZeroRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, "O", "0")
	})
	s = standaloneLRe.ReplaceAllString(s, "${1}1${2}")
	s = standaloneORe.ReplaceAllString(s, "${1}0${2}")
	return s
}

// FixLabelTypos repairs known header and label misreads.
func FixLabelTypos(s string) string {
	for _, f := range labelFixes {
		s = strings.ReplaceAll(s, f.from, f.to)
	}
	return s
}

// NormalizeAmountToken canonicalizes a token that should be a dollar amount:
// strips a leading dollar sign and completes truncated cents, so "384,948."
// becomes "384,948.00".
func NormalizeAmountToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if m := trailingDotAmountRe.FindStringSubmatch(s); m != nil {
		return m[1] + ".00"
	}
	return s
}

// FixSpacedDigits joins runs of four or more single digits separated by
// single spaces, an OCR failure mode on the boxed identifier fields. A run
// needs four digits so neighboring one-digit row codes never fuse.
func FixSpacedDigits(s string) string {
	return spacedDigitsRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
}

// StripArtifacts removes the fixed OCR artifact patterns, leaving a space
// so neighboring tokens do not fuse.
func StripArtifacts(s string) string {
	for _, re := range artifactRes {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}

// CleanLine strips OCR artifacts, applies glyph, label, and digit-spacing
// fixes, and collapses runs of horizontal whitespace. Line breaks are never touched
// here; field location is line oriented.
func CleanLine(line string) string {
	line = StripArtifacts(line)
	line = FixLabelTypos(line)
	line = FixNumericGlyphs(line)
	line = multiSpaceRe.ReplaceAllString(line, " ")
	line = FixSpacedDigits(line)
	return strings.TrimRight(line, " \t")
}

// CleanText cleans every line of a page or document.
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = CleanLine(line)
	}
	return strings.Join(lines, "\n")
}

// Lines splits cleaned text into lines, dropping trailing empties.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// changeRatio measures how much of the original string cleaning rewrote,
// as replaced characters over original length.
func changeRatio(original, cleaned string) float64 {
	if original == cleaned {
		return 0
	}
	if len(original) == 0 {
		return 1
	}
	diff := 0
	or := []rune(original)
	cr := []rune(cleaned)
	n := len(or)
	if len(cr) < n {
		n = len(cr)
	}
	for i := 0; i < n; i++ {
		if or[i] != cr[i] {
			diff++
		}
	}
	if len(or) != len(cr) {
		diff += len(or) - n + len(cr) - n
	}
	ratio := float64(diff) / float64(len(or))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

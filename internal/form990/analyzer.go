package form990

import (
	"log"
	"regexp"
	"strings"
)

// Layout classifies how a page's text was produced.
type Layout string

const (
	LayoutDigital Layout = "digital"
	LayoutScanned Layout = "scanned"
	LayoutHybrid  Layout = "hybrid"
	LayoutUnknown Layout = "unknown"
)

// Section names detected on Form 990 pages.
const (
	SectionSummary      = "part_i_summary"
	SectionSignature    = "part_ii_signature"
	SectionRevenue      = "part_viii_revenue"
	SectionExpenses     = "part_ix_expenses"
	SectionBalanceSheet = "part_x_balance_sheet"
)

// PageAnalysis is the classifier's verdict on a single page.
type PageAnalysis struct {
	Number     int      `json:"number"`
	Layout     Layout   `json:"layout"`
	OCRQuality float64  `json:"ocr_quality"`
	IsForm990  bool     `json:"is_form_990"`
	Sections   []string `json:"sections,omitempty"`
	Confidence float64  `json:"confidence"`
}

// DocumentAnalysis aggregates page verdicts for a filing.
type DocumentAnalysis struct {
	Pages         []PageAnalysis `json:"pages"`
	FormStartPage int            `json:"form_start_page"`
	Layout        Layout         `json:"layout"`
	OCRQuality    float64        `json:"ocr_quality"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// Form990Pages returns the numbers of pages classified as Form 990 content.
func (d *DocumentAnalysis) Form990Pages() []int {
	var out []int
	for _, p := range d.Pages {
		if p.IsForm990 {
			out = append(out, p.Number)
		}
	}
	return out
}

// SectionPages maps each detected section to the pages it appears on.
func (d *DocumentAnalysis) SectionPages() map[string][]int {
	out := make(map[string][]int)
	for _, p := range d.Pages {
		for _, s := range p.Sections {
			out[s] = append(out[s], p.Number)
		}
	}
	return out
}

// Analyzer classifies pages of a PDF text extraction: whether they belong to
// a Form 990 (as opposed to an 8868 extension cover), which form sections
// they carry, and how badly OCR damaged them.
type Analyzer struct {
	logger *log.Logger

	form990Patterns  []*regexp.Regexp
	form8868Patterns []*regexp.Regexp
	einLabelRe       *regexp.Regexp
	ombRe            *regexp.Regexp
	partISummaryRe   *regexp.Regexp
	form990Re        *regexp.Regexp

	sectionPatterns  map[string]*regexp.Regexp
	artifactPatterns []*regexp.Regexp

	minTextForLayout int
}

// NewAnalyzer builds a classifier. logger may be nil.
func NewAnalyzer(logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Analyzer{
		logger: logger,
		form990Patterns: compileAll(
			`Form\s+990\b`,
			`OMB\s+No\.\s*1545-0047`,
			`Return of Organization Exempt`,
			`Part\s+I\s+Summary`,
		),
		form8868Patterns: compileAll(
			`Form\s+8868\b`,
			`Application for.*Extension of Time`,
			`Automatic Extension of Time`,
		),
		einLabelRe:     regexp.MustCompile(`(?i)Employer identification number`),
		ombRe:          regexp.MustCompile(`OMB\s+No\.\s*1545-0047`),
		partISummaryRe: regexp.MustCompile(`Part\s+I\s+Summary`),
		form990Re:      regexp.MustCompile(`Form\s+990\b`),
		sectionPatterns: map[string]*regexp.Regexp{
			SectionSummary:      regexp.MustCompile(`Part\s+I\s+Summary`),
			SectionSignature:    regexp.MustCompile(`Part\s+II\s+Signature Block`),
			SectionRevenue:      regexp.MustCompile(`Part\s+VIII\s+Statement of Revenue`),
			SectionExpenses:     regexp.MustCompile(`Part\s+IX\s+Statement of Functional`),
			SectionBalanceSheet: regexp.MustCompile(`Part\s+X\s+Balance Sheet`),
		},
		artifactPatterns: compileAll(
			regexp.QuoteMeta(`<ti \(/1`),
			regexp.QuoteMeta(`C c,J :C`),
			`\.{5,}`,
			`~{5,}`,
			`[<>(){}/\\]{3,}`,
			`[ \t]{5,}`,
		),
		minTextForLayout: 100,
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// OCRQuality measures artifact density and maps it onto [0,1], where 1 is
// artifact-free text.
func (a *Analyzer) OCRQuality(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	artifacts := 0
	for _, re := range a.artifactPatterns {
		artifacts += len(re.FindAllStringIndex(text, -1))
	}
	density := float64(artifacts) / float64(len(text)) * 1000
	quality := 1 - density/10
	if quality < 0 {
		quality = 0
	}
	return quality
}

// ClassifyLayout decides whether a page is digitally generated, scanned, or
// a mix, from its OCR quality. Pages with almost no text stay unknown.
func (a *Analyzer) ClassifyLayout(text string, ocrQuality float64) Layout {
	if len(strings.TrimSpace(text)) < a.minTextForLayout {
		return LayoutUnknown
	}
	switch {
	case ocrQuality > 0.8:
		return LayoutDigital
	case ocrQuality < 0.5:
		return LayoutScanned
	default:
		return LayoutHybrid
	}
}

// IsForm990Page reports whether a page carries Form 990 content. A strong
// match pairs the form number with the OMB control number, the Part I
// summary header, or the EIN label; otherwise two independent indicators
// are required. An 8868 extension cover sheet mentions the form it extends,
// so it is excluded outright.
func (a *Analyzer) IsForm990Page(text string) bool {
	if a.IsForm8868Page(text) {
		return false
	}

	has990 := a.form990Re.MatchString(text)
	if has990 {
		if a.ombRe.MatchString(text) || a.partISummaryRe.MatchString(text) || a.einLabelRe.MatchString(text) {
			return true
		}
	}
	indicators := 0
	for _, re := range a.form990Patterns {
		if re.MatchString(text) {
			indicators++
		}
	}
	return indicators >= 2
}

// IsForm8868Page reports whether a page is an extension request cover sheet.
func (a *Analyzer) IsForm8868Page(text string) bool {
	for _, re := range a.form8868Patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Sections returns the Form 990 sections present on a page.
func (a *Analyzer) Sections(text string) []string {
	var out []string
	for _, name := range []string{
		SectionSummary, SectionSignature, SectionRevenue, SectionExpenses, SectionBalanceSheet,
	} {
		if a.sectionPatterns[name].MatchString(text) {
			out = append(out, name)
		}
	}
	return out
}

// AnalyzePage classifies a single page.
func (a *Analyzer) AnalyzePage(number int, text string) PageAnalysis {
	p := PageAnalysis{Number: number}
	p.OCRQuality = a.OCRQuality(text)
	p.Layout = a.ClassifyLayout(text, p.OCRQuality)
	p.IsForm990 = a.IsForm990Page(text)
	p.Sections = a.Sections(text)
	p.Confidence = a.pageConfidence(p)
	return p
}

func (a *Analyzer) pageConfidence(p PageAnalysis) float64 {
	conf := 0.0
	if p.IsForm990 {
		conf += 0.4
	}
	sectionBonus := 0.1 * float64(len(p.Sections))
	if sectionBonus > 0.3 {
		sectionBonus = 0.3
	}
	conf += sectionBonus
	switch p.Layout {
	case LayoutDigital, LayoutHybrid:
		conf += 0.2
	case LayoutScanned:
		conf += 0.1
	}
	conf += 0.1 * p.OCRQuality
	if conf > 1 {
		conf = 1
	}
	return conf
}

// Analyze classifies every page and locates the start of the Form 990,
// skipping any 8868 extension pages stapled to the front of the filing.
// pages holds one text string per page, in order.
func (a *Analyzer) Analyze(pages []string) *DocumentAnalysis {
	doc := &DocumentAnalysis{FormStartPage: 1, Layout: LayoutUnknown}

	var qualitySum float64
	var qualityPages int
	for i, text := range pages {
		p := a.AnalyzePage(i+1, text)
		doc.Pages = append(doc.Pages, p)
		if p.Layout != LayoutUnknown {
			qualitySum += p.OCRQuality
			qualityPages++
		}
	}

	if qualityPages > 0 {
		doc.OCRQuality = qualitySum / float64(qualityPages)
	}
	doc.Layout = a.overallLayout(doc.Pages)

	start, found := a.detectFormStart(pages)
	doc.FormStartPage = start
	if !found {
		doc.Warnings = append(doc.Warnings, "no definitive Form 990 start page found, defaulting to page 1")
		a.logger.Printf("form start detection: no strong match in %d pages, defaulting to page 1", len(pages))
	}

	return doc
}

func (a *Analyzer) detectFormStart(pages []string) (int, bool) {
	for i, text := range pages {
		if a.IsForm990Page(text) {
			return i + 1, true
		}
	}
	return 1, false
}

func (a *Analyzer) overallLayout(pages []PageAnalysis) Layout {
	counts := map[Layout]int{}
	for _, p := range pages {
		counts[p.Layout]++
	}
	known := counts[LayoutDigital] + counts[LayoutScanned] + counts[LayoutHybrid]
	if known == 0 {
		return LayoutUnknown
	}
	if counts[LayoutDigital] == known {
		return LayoutDigital
	}
	if counts[LayoutScanned] == known {
		return LayoutScanned
	}
	return LayoutHybrid
}

package extract

import (
	"errors"
	"fmt"
	"log"
)

const (
	// Completeness saturation points: a filing with 10k characters and 1k
	// words is as complete as text metrics can show.
	completenessTextChars = 10000
	completenessWords     = 1000

	tableSaturation = 10

	// A lower-scored layout result still wins on scanned documents when it
	// is within 10% of the best score.
	layoutPreferenceRatio = 0.9
)

// QualityFunc scores text cleanliness on [0,1]; 1 is artifact-free.
type QualityFunc func(text string) float64

// Metrics describes one backend's extraction quality.
type Metrics struct {
	Backend      string  `json:"backend"`
	Completeness float64 `json:"completeness"`
	OCRQuality   float64 `json:"ocr_quality"`
	TableCount   int     `json:"table_count"`
	Score        float64 `json:"score"`
}

// Selection is the combiner's choice plus everything it considered.
type Selection struct {
	Result     *Result   `json:"-"`
	Chosen     Metrics   `json:"chosen"`
	Candidates []Metrics `json:"candidates"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// ErrAllBackendsFailed means no backend produced any usable extraction.
var ErrAllBackendsFailed = errors.New("all extraction backends failed")

// CombinerOptions tunes result selection.
type CombinerOptions struct {
	// Quality scores extracted text; required.
	Quality QualityFunc
	// PreferLayout enables the scanned-document preference for the layout
	// backend.
	PreferLayout bool
	// ScannedThreshold is the OCR quality below which a result counts as
	// scanned for the layout preference.
	ScannedThreshold float64
	// Logger may be nil.
	Logger *log.Logger
}

// Combiner runs every backend and selects the best result.
type Combiner struct {
	backends []Backend
	opts     CombinerOptions
}

// NewCombiner builds a combiner over the given backends, tried in order.
func NewCombiner(backends []Backend, opts CombinerOptions) *Combiner {
	if opts.Quality == nil {
		opts.Quality = func(string) float64 { return 1 }
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Combiner{backends: backends, opts: opts}
}

// Extract runs all backends against the file and returns the selected
// result. Individual backend failures become warnings; the call fails only
// when every backend fails.
func (c *Combiner) Extract(path string) (*Selection, error) {
	sel := &Selection{}
	var results []*Result
	var failures []error

	for _, b := range c.backends {
		res, err := b.Extract(path)
		if err != nil {
			failures = append(failures, err)
			sel.Warnings = append(sel.Warnings, fmt.Sprintf("backend %s failed: %v", b.Name(), err))
			c.opts.Logger.Printf("extraction backend %s failed on %s: %v", b.Name(), path, err)
			continue
		}
		results = append(results, res)
		sel.Candidates = append(sel.Candidates, c.measure(res))
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrAllBackendsFailed, path, errors.Join(failures...))
	}

	chosen := c.choose(results, sel.Candidates)
	sel.Result = results[chosen]
	sel.Chosen = sel.Candidates[chosen]
	return sel, nil
}

func (c *Combiner) measure(r *Result) Metrics {
	text := r.Text()

	completeness := float64(len(text))/completenessTextChars*0.5 +
		float64(r.WordCount())/completenessWords*0.5
	if completeness > 1 {
		completeness = 1
	}

	quality := c.opts.Quality(text)

	tableScore := float64(len(r.Tables)) / tableSaturation
	if tableScore > 1 {
		tableScore = 1
	}

	return Metrics{
		Backend:      r.Backend,
		Completeness: completeness,
		OCRQuality:   quality,
		TableCount:   len(r.Tables),
		Score:        0.5*completeness + 0.3*quality + 0.2*tableScore,
	}
}

// choose picks the highest score, except on scanned documents: when every
// candidate's OCR quality is below the scanned threshold, the layout
// backend wins as long as it scores within 10% of the best.
func (c *Combiner) choose(results []*Result, metrics []Metrics) int {
	best := 0
	for i := range metrics {
		if metrics[i].Score > metrics[best].Score {
			best = i
		}
	}

	if !c.opts.PreferLayout {
		return best
	}

	allScanned := true
	for _, m := range metrics {
		if m.OCRQuality >= c.opts.ScannedThreshold {
			allScanned = false
			break
		}
	}
	if !allScanned {
		return best
	}

	for i, m := range metrics {
		if results[i].Backend == "layout" && m.Score > metrics[best].Score*layoutPreferenceRatio {
			return i
		}
	}
	return best
}

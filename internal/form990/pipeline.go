package form990

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/form990-extract/internal/config"
	"github.com/a3tai/form990-extract/internal/extract"
	"github.com/a3tai/form990-extract/internal/normalize"
	"github.com/a3tai/form990-extract/internal/ocr"
)

// rawTextLimit caps the raw text echoed back in results.
const rawTextLimit = 5000

// ErrBelowThreshold is returned alongside a complete result when fail-fast
// is requested and the document misses the confidence bar.
var ErrBelowThreshold = errors.New("document confidence below threshold")

// Options tunes a single Process call.
type Options struct {
	// ForceOCR runs OCR even on digital documents.
	ForceOCR bool
	// FailFast returns ErrBelowThreshold for documents that miss the
	// confidence threshold. The result is complete either way.
	FailFast bool
}

// DocumentResult is the pipeline's complete output for one filing.
type DocumentResult struct {
	ID         string            `json:"id"`
	Path       string            `json:"path"`
	Fields     FieldSet          `json:"fields"`
	Analysis   *DocumentAnalysis `json:"analysis"`
	Validation *ValidationReport `json:"validation"`
	Score      *DocumentScore    `json:"score"`
	Extraction extract.Metrics   `json:"extraction"`
	RawText    string            `json:"raw_text,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	Duration   time.Duration     `json:"duration_ns"`
}

// Pipeline wires all stages: input validation, multi-backend extraction,
// classification, optional OCR, normalization, the three location stages,
// cross-field validation, and scoring.
type Pipeline struct {
	cfg       *config.Config
	validator *extract.Validator
	combiner  *extract.Combiner
	analyzer  *Analyzer
	locator   *Locator
	enhancer  *Enhancer
	refiner   *Refiner
	crossval  *CrossValidator
	scorer    *Scorer
	ocrEngine ocr.Engine
	logger    *log.Logger
}

// NewPipeline assembles a pipeline from configuration. ocrEngine may be nil
// to disable OCR. logger may be nil.
func NewPipeline(cfg *config.Config, ocrEngine ocr.Engine, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	if ocrEngine == nil || cfg.DisableOCR {
		ocrEngine = ocr.Disabled{}
	}

	analyzer := NewAnalyzer(logger)
	rules := NewAmountRules(cfg.MinAmountDigits)
	specs := DefaultSpecs()

	backends := []extract.Backend{
		extract.NewStreamBackend(),
		extract.NewLayoutBackend(),
	}
	combiner := extract.NewCombiner(backends, extract.CombinerOptions{
		Quality:          analyzer.OCRQuality,
		PreferLayout:     cfg.PreferLayoutBackend,
		ScannedThreshold: cfg.OCRScannedThreshold,
		Logger:           logger,
	})

	weights := Weights{
		ExtractionSource: cfg.WeightExtractionSource,
		Validation:       cfg.WeightValidation,
		CrossValidation:  cfg.WeightCrossValidation,
		OCRQuality:       cfg.WeightOCRQuality,
	}

	return &Pipeline{
		cfg:       cfg,
		validator: extract.NewValidator(cfg.MaxFileSize),
		combiner:  combiner,
		analyzer:  analyzer,
		locator:   NewLocator(rules, cfg.LookaheadLines, specs),
		enhancer:  NewEnhancer(rules, cfg.LookaheadLines, specs),
		refiner:   NewRefiner(rules),
		crossval:  NewCrossValidator(cfg.RevenueTolerancePct, cfg.AbsoluteToleranceUSD),
		scorer:    NewScorer(weights, cfg.ProductionThreshold, cfg.CriticalFieldThreshold),
		ocrEngine: ocrEngine,
		logger:    logger,
	}
}

// Process runs the full pipeline on one PDF.
func (p *Pipeline) Process(ctx context.Context, path string, opts Options) (*DocumentResult, error) {
	started := time.Now()

	if err := p.validator.ValidateFile(path); err != nil {
		return nil, err
	}

	sel, err := p.combiner.Extract(path)
	if err != nil {
		return nil, err
	}

	result := &DocumentResult{
		ID:         uuid.NewString(),
		Path:       path,
		Extraction: sel.Chosen,
		Warnings:   sel.Warnings,
	}

	// Classification reads the raw text: artifact density is the layout
	// and quality signal, and cleaning strips the artifacts.
	rawPages := sel.Result.PageTexts()
	analysis := p.analyzer.Analyze(rawPages)
	result.Analysis = analysis
	result.Warnings = append(result.Warnings, analysis.Warnings...)

	if p.shouldOCR(analysis, opts) {
		rawPages = p.mergeOCR(ctx, path, rawPages, result)
		analysis = p.analyzer.Analyze(rawPages)
		result.Analysis = analysis
	}

	pages := make([]string, len(rawPages))
	for i := range rawPages {
		pages[i] = normalize.CleanText(rawPages[i])
	}

	doc := &Document{
		Pages:    pages,
		Tables:   normalizeTables(sel.Result.Tables),
		Words:    collectWords(sel.Result),
		Analysis: analysis,
	}

	fields := p.locator.Locate(doc)
	fields = p.enhancer.Apply(doc, fields)
	fields = p.refiner.Apply(doc, fields)
	fields = flagImplausibleAmounts(fields)
	result.Fields = fields

	result.Validation = p.crossval.Validate(fields)
	result.Score = p.scorer.Score(fields, result.Validation, analysis.OCRQuality)

	result.RawText = truncate(doc.Text(), rawTextLimit)
	result.Duration = time.Since(started)

	p.logger.Printf("processed %s: overall=%.2f passed=%t backend=%s",
		path, result.Score.Overall, result.Score.Passed, result.Extraction.Backend)

	if opts.FailFast && !result.Score.Passed {
		return result, fmt.Errorf("%w: %s", ErrBelowThreshold, path)
	}
	return result, nil
}

func (p *Pipeline) shouldOCR(analysis *DocumentAnalysis, opts Options) bool {
	if !p.ocrEngine.Available() {
		return false
	}
	if opts.ForceOCR || p.cfg.ForceOCR {
		return true
	}
	return analysis.Layout == LayoutScanned || analysis.Layout == LayoutHybrid
}

var imagePageRe = regexp.MustCompile(`_(\d+)_`)

// mergeOCR extracts page images, runs the OCR engine over them, and appends
// recognized text to pages that yielded little native text. OCR problems
// degrade to warnings; they never fail the document.
func (p *Pipeline) mergeOCR(ctx context.Context, path string, pages []string, result *DocumentResult) []string {
	tmpDir, err := os.MkdirTemp("", "form990-ocr-*")
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("OCR skipped: %v", err))
		return pages
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractImagesFile(path, tmpDir, nil, conf); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("OCR skipped: image extraction failed: %v", err))
		return pages
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("OCR skipped: %v", err))
		return pages
	}

	out := append([]string(nil), pages...)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		text, err := p.ocrEngine.RecognizeFile(ctx, filepath.Join(tmpDir, entry.Name()))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("OCR failed on %s: %v", entry.Name(), err))
			continue
		}
		pageIdx := imagePage(entry.Name()) - 1
		if pageIdx < 0 || pageIdx >= len(out) {
			pageIdx = 0
		}
		// Native text wins; OCR only supplements sparse pages. Cleaning
		// happens downstream with the rest of the document.
		if len(out[pageIdx]) < 100 && len(text) > len(out[pageIdx]) {
			out[pageIdx] = text
		}
	}
	return out
}

func imagePage(name string) int {
	m := imagePageRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// flagImplausibleAmounts warns on dollar values outside the plausible range
// for a filing. The value is kept; the warning lowers its confidence in
// scoring.
func flagImplausibleAmounts(in FieldSet) FieldSet {
	out := in.Merge(nil)
	for name, f := range out {
		if name == FieldEIN || !f.HasValue() {
			continue
		}
		v, err := ParseAmount(f.Value)
		if err != nil {
			continue
		}
		if !AmountInRange(v) {
			out[name] = f.WithWarning("amount outside plausible range")
		}
	}
	return out
}

func collectWords(r *extract.Result) []extract.Word {
	var out []extract.Word
	for _, p := range r.Pages {
		out = append(out, p.Words...)
	}
	return out
}

func normalizeTables(raw []extract.Table) []*normalize.Table {
	out := make([]*normalize.Table, 0, len(raw))
	for _, t := range raw {
		out = append(out, normalize.NormalizeTable(t.Rows, t.Page))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// BatchItem is one document's outcome inside a batch.
type BatchItem struct {
	ID     string          `json:"id"`
	Path   string          `json:"path"`
	Result *DocumentResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchResult summarizes a directory run. Items keep input order.
type BatchResult struct {
	ID        string        `json:"id"`
	Items     []BatchItem   `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ns"`
}

// ProcessBatch runs the pipeline over many files with bounded concurrency.
// Each document is isolated: failures are recorded per item and never stop
// the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string, opts Options) *BatchResult {
	started := time.Now()
	batch := &BatchResult{
		ID:    uuid.NewString(),
		Items: make([]BatchItem, len(paths)),
	}

	sem := make(chan struct{}, p.cfg.BatchWorkers)
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item := BatchItem{ID: uuid.NewString(), Path: path}

			docCtx := ctx
			if p.cfg.PerDocumentTimeoutMS > 0 {
				var cancel context.CancelFunc
				docCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.PerDocumentTimeoutMS)*time.Millisecond)
				defer cancel()
			}

			res, err := p.processIsolated(docCtx, path, opts)
			item.Result = res
			if err != nil {
				item.Error = err.Error()
			}
			batch.Items[i] = item
		}(i, path)
	}
	wg.Wait()

	for _, item := range batch.Items {
		if item.Error == "" {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	batch.Duration = time.Since(started)
	return batch
}

// processIsolated shields the batch from panics in PDF parsing.
func (p *Pipeline) processIsolated(ctx context.Context, path string, opts Options) (res *DocumentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("panic processing %s: %v", path, r)
		}
	}()
	return p.Process(ctx, path, opts)
}

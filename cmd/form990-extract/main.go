package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/a3tai/form990-extract/internal/config"
	"github.com/a3tai/form990-extract/internal/extract"
	"github.com/a3tai/form990-extract/internal/form990"
	"github.com/a3tai/form990-extract/internal/ocr"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
	}

	fs := pflag.NewFlagSet("form990-extract", pflag.ContinueOnError)
	outputFormat := fs.String("format", "text", "Output format: text, json")
	showRaw := fs.Bool("raw", false, "Include raw extracted text in output")
	failFast := fs.Bool("failfast", false, "Exit non-zero when a document misses the confidence threshold")
	fs.Usage = func() { printUsage(fs) }

	cfg, err := config.LoadFromFlags(fs, os.Args[1:])
	if err != nil {
		if err == pflag.ErrHelp {
			return
		}
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !cfg.IsDebug() {
		logger.SetOutput(io.Discard)
	}
	if cfg.IsDebug() {
		logger.Printf("Starting with configuration: %s", cfg.String())
	}

	if fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file or directory required\n\n")
		printUsage(fs)
		os.Exit(1)
	}

	var engine ocr.Engine
	if cfg.DisableOCR {
		engine = ocr.Disabled{}
	} else {
		engine = ocr.NewTesseract(cfg.TesseractPath)
	}

	pipeline := form990.NewPipeline(cfg, engine, logger)
	opts := form990.Options{ForceOCR: cfg.ForceOCR, FailFast: *failFast}
	ctx := context.Background()

	target := fs.Arg(0)
	info, err := os.Stat(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot access %s: %v\n", target, err)
		os.Exit(1)
	}

	if info.IsDir() {
		runBatch(ctx, pipeline, target, opts, *outputFormat, *showRaw)
		return
	}
	runSingle(ctx, pipeline, target, opts, *outputFormat, *showRaw)
}

func runSingle(ctx context.Context, pipeline *form990.Pipeline, path string, opts form990.Options, format string, showRaw bool) {
	result, err := pipeline.Process(ctx, path, opts)
	belowThreshold := err != nil && result != nil

	if err != nil && result == nil {
		fmt.Fprintf(os.Stderr, "Error extracting %s: %v\n", path, err)
		if extract.IsInputError(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}

	if !showRaw {
		result.RawText = ""
	}
	if err := render(result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(2)
	}
	if belowThreshold {
		os.Exit(3)
	}
}

func runBatch(ctx context.Context, pipeline *form990.Pipeline, dir string, opts form990.Options, format string, showRaw bool) {
	paths, err := collectPDFs(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", dir, err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no PDF files found in %s\n", dir)
		os.Exit(1)
	}

	batch := pipeline.ProcessBatch(ctx, paths, opts)

	if !showRaw {
		for i := range batch.Items {
			if batch.Items[i].Result != nil {
				batch.Items[i].Result.RawText = ""
			}
		}
	}
	if err := render(batch, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(2)
	}
}

// collectPDFs returns the PDF files directly inside dir, sorted by name.
func collectPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func render(v any, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "text":
		switch r := v.(type) {
		case *form990.DocumentResult:
			renderDocument(r)
		case *form990.BatchResult:
			renderBatch(r)
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderDocument(r *form990.DocumentResult) {
	fmt.Printf("File: %s\n", r.Path)
	fmt.Printf("Backend: %s (completeness %.2f, OCR quality %.2f)\n",
		r.Extraction.Backend, r.Extraction.Completeness, r.Extraction.OCRQuality)
	fmt.Printf("Layout: %s (form starts on page %d)\n", r.Analysis.Layout, r.Analysis.FormStartPage)
	fmt.Println()

	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("FIELDS:")
	for _, name := range names {
		f := r.Fields[name]
		marker := " "
		if form990.IsCritical(name) {
			marker = "*"
		}
		switch f.State {
		case form990.StateFound:
			fmt.Printf("  %s %-38s %15s  (%.2f via %s, page %d)\n",
				marker, name, f.Value, r.Score.FieldConfidence[name], f.Source, f.Page)
		case form990.StateFoundEmpty:
			fmt.Printf("  %s %-38s %15s  (row present, no amount)\n", marker, name, "-")
		default:
			fmt.Printf("  %s %-38s %15s\n", marker, name, "not found")
		}
		for _, w := range f.Warnings {
			fmt.Printf("      warning: %s\n", w)
		}
	}
	fmt.Println()

	fmt.Println("VALIDATION:")
	fmt.Printf("  %s\n", strings.ReplaceAll(r.Validation.Summary(), "\n", "\n  "))
	fmt.Println()

	verdict := "ACCEPTED"
	if !r.Score.Passed {
		verdict = "REJECTED"
	}
	fmt.Printf("SCORE: %.2f (threshold %.2f) %s\n", r.Score.Overall, r.Score.Threshold, verdict)
	for _, reason := range r.Score.RejectionReasons {
		fmt.Printf("  reason: %s\n", reason)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func renderBatch(b *form990.BatchResult) {
	fmt.Printf("Batch %s: %d documents, %d succeeded, %d failed\n\n",
		b.ID, len(b.Items), b.Succeeded, b.Failed)

	for _, item := range b.Items {
		if item.Error != "" {
			fmt.Printf("✗ %s: %s\n", item.Path, item.Error)
			continue
		}
		fmt.Printf("✓ %s: score %.2f", item.Path, item.Result.Score.Overall)
		if !item.Result.Score.Passed {
			fmt.Printf(" (below threshold)")
		}
		fmt.Println()
	}
}

func printUsage(fs *pflag.FlagSet) {
	fmt.Println("form990-extract - Extract financial fields from IRS Form 990 filings")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  form990-extract [OPTIONS] <pdf_file>")
	fmt.Println("  form990-extract [OPTIONS] <directory>")
	fmt.Println()
	fmt.Println("When given a directory, every PDF directly inside it is processed as a batch.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println(fs.FlagUsages())
	fmt.Println("EXAMPLES:")
	fmt.Println("  form990-extract filing.pdf")
	fmt.Println("  form990-extract --format json --threshold 0.8 filing.pdf")
	fmt.Println("  form990-extract --workers 8 filings/")
}

func printVersion() {
	fmt.Printf("Form 990 Extractor\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}

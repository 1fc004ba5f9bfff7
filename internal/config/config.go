package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Default extraction thresholds
	DefaultMinAmountDigits      = 4
	DefaultLookaheadLines       = 3
	DefaultMaxFileSize          = 100 * 1024 * 1024 // 100MB
	DefaultOCRScannedThreshold  = 0.6
	DefaultRevenueTolerancePct  = 2.0
	DefaultAbsoluteToleranceUSD = 10.0

	// Default confidence thresholds
	DefaultProductionThreshold    = 0.70
	DefaultCriticalFieldThreshold = 0.50

	// Default confidence weights
	DefaultWeightExtractionSource = 0.40
	DefaultWeightValidation       = 0.30
	DefaultWeightCrossValidation  = 0.20
	DefaultWeightOCRQuality       = 0.10

	// Default batch settings
	DefaultBatchWorkers = 4
)

// Config holds all configuration for the Form 990 extraction pipeline
type Config struct {
	// Amount detection
	MinAmountDigits int // minimum digit count for a standalone dollar amount
	LookaheadLines  int // lines scanned after a matched label

	// Input limits
	MaxFileSize int64 // maximum PDF file size in bytes

	// Backend selection
	PreferLayoutBackend  bool    // prefer the layout backend for scanned documents
	OCRScannedThreshold  float64 // OCR quality below which a page counts as scanned
	ForceOCR             bool    // run OCR even on digital documents
	TesseractPath        string  // explicit tesseract binary path, empty means $PATH lookup
	DisableOCR           bool    // skip OCR entirely even when available
	PerDocumentTimeoutMS int     // wall-clock budget per document in batch mode, 0 disables

	// Cross-field validation tolerances
	RevenueTolerancePct  float64 // relative tolerance for revenue consistency, in percent
	AbsoluteToleranceUSD float64 // absolute dollar tolerance for sum checks

	// Confidence scoring
	ProductionThreshold    float64
	CriticalFieldThreshold float64
	WeightExtractionSource float64
	WeightValidation       float64
	WeightCrossValidation  float64
	WeightOCRQuality       float64

	// Batch processing
	BatchWorkers int

	// Application
	Version  string
	LogLevel string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MinAmountDigits:        DefaultMinAmountDigits,
		LookaheadLines:         DefaultLookaheadLines,
		MaxFileSize:            DefaultMaxFileSize,
		PreferLayoutBackend:    true,
		OCRScannedThreshold:    DefaultOCRScannedThreshold,
		ForceOCR:               false,
		DisableOCR:             false,
		PerDocumentTimeoutMS:   0,
		RevenueTolerancePct:    DefaultRevenueTolerancePct,
		AbsoluteToleranceUSD:   DefaultAbsoluteToleranceUSD,
		ProductionThreshold:    DefaultProductionThreshold,
		CriticalFieldThreshold: DefaultCriticalFieldThreshold,
		WeightExtractionSource: DefaultWeightExtractionSource,
		WeightValidation:       DefaultWeightValidation,
		WeightCrossValidation:  DefaultWeightCrossValidation,
		WeightOCRQuality:       DefaultWeightOCRQuality,
		BatchWorkers:           DefaultBatchWorkers,
		Version:                "1.0.0",
		LogLevel:               "info",
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	bindFlagsToViper(v, fs)
	populateConfigFromViper(v, cfg)

	if cfg.TesseractPath != "" {
		if expanded, err := filepath.Abs(cfg.TesseractPath); err == nil {
			cfg.TesseractPath = expanded
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix("FORM990")
	v.AutomaticEnv()

	v.SetDefault("minamountdigits", cfg.MinAmountDigits)
	v.SetDefault("lookaheadlines", cfg.LookaheadLines)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
	v.SetDefault("preferlayout", cfg.PreferLayoutBackend)
	v.SetDefault("ocrscannedthreshold", cfg.OCRScannedThreshold)
	v.SetDefault("forceocr", cfg.ForceOCR)
	v.SetDefault("disableocr", cfg.DisableOCR)
	v.SetDefault("tesseract", cfg.TesseractPath)
	v.SetDefault("doctimeoutms", cfg.PerDocumentTimeoutMS)
	v.SetDefault("revenuetolerance", cfg.RevenueTolerancePct)
	v.SetDefault("absolutetolerance", cfg.AbsoluteToleranceUSD)
	v.SetDefault("threshold", cfg.ProductionThreshold)
	v.SetDefault("criticalthreshold", cfg.CriticalFieldThreshold)
	v.SetDefault("workers", cfg.BatchWorkers)
	v.SetDefault("loglevel", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.Int("minamountdigits", cfg.MinAmountDigits, "Minimum digit count for a standalone dollar amount")
	fs.Int("lookaheadlines", cfg.LookaheadLines, "Lines scanned after a matched field label")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Bool("preferlayout", cfg.PreferLayoutBackend, "Prefer the layout backend for scanned documents")
	fs.Float64("ocrscannedthreshold", cfg.OCRScannedThreshold, "OCR quality below which a page counts as scanned")
	fs.Bool("forceocr", cfg.ForceOCR, "Run OCR even on digital documents")
	fs.Bool("disableocr", cfg.DisableOCR, "Skip OCR entirely even when tesseract is available")
	fs.String("tesseract", cfg.TesseractPath, "Path to the tesseract binary (default: $PATH lookup)")
	fs.Int("doctimeoutms", cfg.PerDocumentTimeoutMS, "Per-document timeout in milliseconds for batch mode (0 disables)")
	fs.Float64("revenuetolerance", cfg.RevenueTolerancePct, "Relative tolerance for revenue consistency checks, in percent")
	fs.Float64("absolutetolerance", cfg.AbsoluteToleranceUSD, "Absolute dollar tolerance for sum checks")
	fs.Float64("threshold", cfg.ProductionThreshold, "Overall confidence threshold for accepting a document")
	fs.Float64("criticalthreshold", cfg.CriticalFieldThreshold, "Minimum confidence for critical fields")
	fs.Int("workers", cfg.BatchWorkers, "Concurrent workers for batch processing")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for _, name := range []string{
		"minamountdigits", "lookaheadlines", "maxfilesize",
		"preferlayout", "ocrscannedthreshold", "forceocr", "disableocr",
		"tesseract", "doctimeoutms",
		"revenuetolerance", "absolutetolerance",
		"threshold", "criticalthreshold",
		"workers", "loglevel",
	} {
		_ = v.BindPFlag(name, fs.Lookup(name))
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.MinAmountDigits = v.GetInt("minamountdigits")
	cfg.LookaheadLines = v.GetInt("lookaheadlines")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
	cfg.PreferLayoutBackend = v.GetBool("preferlayout")
	cfg.OCRScannedThreshold = v.GetFloat64("ocrscannedthreshold")
	cfg.ForceOCR = v.GetBool("forceocr")
	cfg.DisableOCR = v.GetBool("disableocr")
	cfg.TesseractPath = v.GetString("tesseract")
	cfg.PerDocumentTimeoutMS = v.GetInt("doctimeoutms")
	cfg.RevenueTolerancePct = v.GetFloat64("revenuetolerance")
	cfg.AbsoluteToleranceUSD = v.GetFloat64("absolutetolerance")
	cfg.ProductionThreshold = v.GetFloat64("threshold")
	cfg.CriticalFieldThreshold = v.GetFloat64("criticalthreshold")
	cfg.BatchWorkers = v.GetInt("workers")
	cfg.LogLevel = v.GetString("loglevel")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MinAmountDigits < 1 {
		return errors.New("minimum amount digits must be at least 1")
	}

	if c.LookaheadLines < 0 {
		return errors.New("lookahead lines cannot be negative")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.OCRScannedThreshold < 0 || c.OCRScannedThreshold > 1 {
		return errors.New("OCR scanned threshold must be between 0 and 1")
	}

	if c.RevenueTolerancePct < 0 {
		return errors.New("revenue tolerance cannot be negative")
	}

	if c.AbsoluteToleranceUSD < 0 {
		return errors.New("absolute tolerance cannot be negative")
	}

	if c.ProductionThreshold < 0 || c.ProductionThreshold > 1 {
		return errors.New("confidence threshold must be between 0 and 1")
	}

	if c.CriticalFieldThreshold < 0 || c.CriticalFieldThreshold > 1 {
		return errors.New("critical field threshold must be between 0 and 1")
	}

	weightSum := c.WeightExtractionSource + c.WeightValidation + c.WeightCrossValidation + c.WeightOCRQuality
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("confidence weights must sum to 1.0, got %.2f", weightSum)
	}

	if c.BatchWorkers < 1 {
		return errors.New("batch workers must be at least 1")
	}

	if c.TesseractPath != "" {
		if _, err := os.Stat(c.TesseractPath); err != nil {
			return fmt.Errorf("cannot access tesseract binary %s: %w", c.TesseractPath, err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{MinAmountDigits: %d, LookaheadLines: %d, Threshold: %.2f, Workers: %d, LogLevel: %s}",
		c.MinAmountDigits, c.LookaheadLines, c.ProductionThreshold, c.BatchWorkers, c.LogLevel)
}

package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sentinel input errors. Callers translate these into user-facing input
// failures; anything else from a backend is an extraction failure.
var (
	ErrEmptyPath   = errors.New("path cannot be empty")
	ErrNotFound    = errors.New("file does not exist")
	ErrIsDirectory = errors.New("path is a directory, not a file")
	ErrNotPDF      = errors.New("file is not a PDF")
	ErrEmptyFile   = errors.New("file is empty")
	ErrTooLarge    = errors.New("file too large")
)

// Validator checks input files before any backend touches them.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator with the specified size limit.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// ValidateFile checks that the path points at a readable PDF within limits.
func (v *Validator) ValidateFile(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// IsInputError reports whether err is a rejection of the input file rather
// than an extraction failure.
func IsInputError(err error) bool {
	for _, sentinel := range []error{
		ErrEmptyPath, ErrNotFound, ErrIsDirectory, ErrNotPDF, ErrEmptyFile, ErrTooLarge,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Package ocr is the boundary to optical character recognition. Glyph
// recognition itself is delegated to an external tesseract binary; when no
// engine is available the pipeline degrades to text-only extraction instead
// of failing.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable means no OCR engine can run on this host.
var ErrUnavailable = errors.New("OCR engine unavailable")

// Engine recognizes text in a page image.
type Engine interface {
	// Available reports whether the engine can run. Probed once at
	// construction; callers may rely on it being cheap.
	Available() bool
	// RecognizeFile returns the recognized text of an image file.
	RecognizeFile(ctx context.Context, imagePath string) (string, error)
}

// Tesseract drives the tesseract command line tool.
type Tesseract struct {
	binary    string
	available bool
}

// NewTesseract probes for the tesseract binary. An empty path means $PATH
// lookup. The returned engine is usable either way; Available reports the
// probe outcome.
func NewTesseract(binaryPath string) *Tesseract {
	t := &Tesseract{binary: binaryPath}
	if t.binary == "" {
		if found, err := exec.LookPath("tesseract"); err == nil {
			t.binary = found
		}
	}
	if t.binary != "" {
		t.available = exec.Command(t.binary, "--version").Run() == nil
	}
	return t
}

// Available reports whether the probe found a working binary.
func (t *Tesseract) Available() bool {
	return t.available
}

// RecognizeFile runs tesseract over one image and returns its text output.
func (t *Tesseract) RecognizeFile(ctx context.Context, imagePath string) (string, error) {
	if !t.available {
		return "", ErrUnavailable
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, imagePath, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed on %s: %w: %s", imagePath, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Disabled is the no-op engine used when OCR is switched off.
type Disabled struct{}

// Available always reports false.
func (Disabled) Available() bool { return false }

// RecognizeFile always fails with ErrUnavailable.
func (Disabled) RecognizeFile(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

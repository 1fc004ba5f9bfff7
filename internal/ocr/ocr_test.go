package ocr

import (
	"context"
	"errors"
	"testing"
)

func TestDisabledEngine(t *testing.T) {
	var e Engine = Disabled{}

	if e.Available() {
		t.Error("disabled engine must report unavailable")
	}

	_, err := e.RecognizeFile(context.Background(), "page.png")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestTesseractMissingBinary(t *testing.T) {
	e := NewTesseract("/nonexistent/tesseract")

	if e.Available() {
		t.Error("engine with a missing binary must report unavailable")
	}

	_, err := e.RecognizeFile(context.Background(), "page.png")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestValidateFile(t *testing.T) {
	v := NewValidator(1024)

	tests := []struct {
		name     string
		path     func(t *testing.T) string
		sentinel error
	}{
		{
			name:     "empty path",
			path:     func(*testing.T) string { return "" },
			sentinel: ErrEmptyPath,
		},
		{
			name:     "missing file",
			path:     func(*testing.T) string { return "/nonexistent/file.pdf" },
			sentinel: ErrNotFound,
		},
		{
			name:     "directory",
			path:     func(t *testing.T) string { return t.TempDir() },
			sentinel: ErrIsDirectory,
		},
		{
			name:     "wrong extension",
			path:     func(t *testing.T) string { return writeTemp(t, "doc.txt", "content") },
			sentinel: ErrNotPDF,
		},
		{
			name:     "empty file",
			path:     func(t *testing.T) string { return writeTemp(t, "doc.pdf", "") },
			sentinel: ErrEmptyFile,
		},
		{
			name: "oversize file",
			path: func(t *testing.T) string {
				return writeTemp(t, "big.pdf", string(make([]byte, 2048)))
			},
			sentinel: ErrTooLarge,
		},
		{
			name:     "acceptable file",
			path:     func(t *testing.T) string { return writeTemp(t, "ok.pdf", "%PDF-1.4 content") },
			sentinel: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.path(t))
			if tt.sentinel == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			if !IsInputError(err) {
				t.Errorf("expected %v to classify as an input error", err)
			}
		})
	}
}

func TestIsInputErrorRejectsOtherErrors(t *testing.T) {
	if IsInputError(errors.New("backend exploded")) {
		t.Error("arbitrary errors must not classify as input errors")
	}
	if IsInputError(nil) {
		t.Error("nil must not classify as an input error")
	}
}

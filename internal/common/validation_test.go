package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvcoach/internal/errors"
	"cvcoach/internal/salary"
	"cvcoach/internal/telemetry"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
	}{
		{"valid format - json", "json", supported, false},
		{"valid format - markdown alias", "md", supported, false},
		{"uppercase is normalized", "JSON", supported, false},
		{"invalid format - xml", "xml", supported, true},
		{"empty format string", "", supported, true},
		{"empty supported formats - should allow all", "xml", nil, false},
		{"single supported format - invalid", "text", []string{"json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !errors.IsType(err, errors.ErrorTypeValidation) {
					t.Errorf("Expected a validation error, got %v", err)
				}
				if !strings.Contains(err.Error(), "unsupported output format '"+tt.format+"'") {
					t.Errorf("Unexpected message: %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	cv := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(cv, []byte("Gerente de Vendas"), 0o600); err != nil {
		t.Fatal(err)
	}

	fp := NewFileProcessor(nil)
	contents, err := fp.ReadDocuments(cv, "")
	if err != nil {
		t.Fatalf("ReadDocuments: %v", err)
	}
	if len(contents) != 2 || contents[0] != "Gerente de Vendas" || contents[1] != "" {
		t.Errorf("Unexpected contents: %q", contents)
	}

	if _, err := fp.ReadDocuments(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if err := fp.ValidateOutputFile(dir); err == nil {
		t.Error("Expected a directory to be rejected as output")
	}
}

func TestHandleOutput(t *testing.T) {
	var buf bytes.Buffer
	oh := NewOutputHandlerTo(&buf, nil)
	snap := telemetry.NewCounters().Snapshot()

	if err := oh.HandleOutput(snap, CommandConfig{OutputFormat: "json"}); err != nil {
		t.Fatalf("HandleOutput: %v", err)
	}
	if !strings.Contains(buf.String(), `"total": 0`) {
		t.Errorf("Expected JSON output, got %q", buf.String())
	}

	out := filepath.Join(t.TempDir(), "nested", "salary.txt")
	res := salary.Validate("R$ 10.000", "Gerente de Vendas", "São Paulo", nil)
	if err := oh.HandleOutput(res, CommandConfig{OutputFile: out, OutputFormat: "text"}); err != nil {
		t.Fatalf("HandleOutput to file: %v", err)
	}
	if data, err := os.ReadFile(out); err != nil || len(data) == 0 {
		t.Errorf("Expected the file to be written, err=%v", err)
	}

	if err := oh.HandleOutput(snap, CommandConfig{OutputFormat: "yaml"}); err == nil {
		t.Error("Expected an unknown format to fail")
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}

package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Gestão de Equipe", "gestao de equipe"},
		{"São Paulo", "sao paulo"},
		{"AÇÃO", "acao"},
		{"próxima", "proxima"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestContainsAnyFolded(t *testing.T) {
	if !ContainsAnyFolded("Liderança de 10 SDRs", "lideranca") {
		t.Error("Expected accent-insensitive match")
	}
	if ContainsAnyFolded("Analista", "gerente", "") {
		t.Error("Did not expect a match")
	}
}

func TestTruncateRunes(t *testing.T) {
	got, cut := TruncateRunes("ação rápida", 4)
	if got != "ação" || !cut {
		t.Errorf("Expected ('ação', true), got (%q, %v)", got, cut)
	}
	got, cut = TruncateRunes("curto", 10)
	if got != "curto" || cut {
		t.Errorf("Expected ('curto', false), got (%q, %v)", got, cut)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"HubSpot", "hubspot", " ", "Python", "Gestão", "gestao"})
	want := []string{"HubSpot", "Python", "Gestão"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestReadCVFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "cv.txt")
	if err := os.WriteFile(txt, []byte("Gerente de Vendas"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadCVFile(txt)
	if err != nil || got != "Gerente de Vendas" {
		t.Errorf("Expected text content, got %q, %v", got, err)
	}

	doc := filepath.Join(dir, "cv.docx")
	if err := os.WriteFile(doc, []byte("x"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadCVFile(doc); err == nil {
		t.Error("Expected unsupported format error for .docx")
	}

	if _, err := ReadCVFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestReadCVRejectsBrokenPDF(t *testing.T) {
	if _, err := ReadCV(strings.NewReader("%PDF-1.4 not really a pdf")); err == nil {
		t.Error("Expected error for corrupt PDF")
	}
	got, err := ReadCV(strings.NewReader("texto simples"))
	if err != nil || got != "texto simples" {
		t.Errorf("Expected plain text passthrough, got %q, %v", got, err)
	}
}

func TestFormatFileSize(t *testing.T) {
	if FormatFileSize(512) != "512 B" {
		t.Errorf("Unexpected %s", FormatFileSize(512))
	}
	if FormatFileSize(2048) != "2.0 KB" {
		t.Errorf("Unexpected %s", FormatFileSize(2048))
	}
}

package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cvcoach/internal/errors"

	"github.com/ledongthuc/pdf"
)

// ValidateInputFile checks if a file exists and is readable
func ValidateInputFile(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filename)
		}
		return fmt.Errorf("cannot access file %s: %w", filename, err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filename)
	}
	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsTextFile checks if the file has a text-based extension
func IsTextFile(filename string) bool {
	textExtensions := []string{".txt", ".md", ".markdown", ".text"}
	return slices.Contains(textExtensions, GetFileExtension(filename))
}

// IsPDFFile checks the extension for .pdf
func IsPDFFile(filename string) bool {
	return GetFileExtension(filename) == ".pdf"
}

// ReadCVFile extracts the text of a CV stored as plain text or PDF
func ReadCVFile(filename string) (string, error) {
	if err := ValidateInputFile(filename); err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, "Arquivo de CV inválido", err)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Não foi possível ler o arquivo: %s", filename), err)
	}

	switch {
	case IsPDFFile(filename):
		return ExtractPDFText(content)
	case IsTextFile(filename) || GetFileExtension(filename) == "":
		return string(content), nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("Formato não suportado: %s (use .txt, .md ou .pdf)", GetFileExtension(filename)), nil)
	}
}

// ReadCV extracts text from an uploaded document. PDF content is detected
// by its magic header; anything else is taken as UTF-8 text.
func ReadCV(r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Falha ao ler o arquivo enviado", err)
	}
	if bytes.HasPrefix(content, []byte("%PDF-")) {
		return ExtractPDFText(content)
	}
	return string(content), nil
}

// ExtractPDFText returns the plain text of every page of a PDF document
func ExtractPDFText(content []byte) (text string, err error) {
	// The pdf package panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.NewValidationError(errors.ErrCodeInvalidFormat, "PDF inválido ou corrompido", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "PDF inválido ou corrompido", err)
	}

	var textBuilder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	text = strings.TrimSpace(textBuilder.String())
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyCV, "Nenhum texto encontrado no PDF", nil)
	}
	return text, nil
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

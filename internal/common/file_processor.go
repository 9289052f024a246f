package common

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"cvcoach/internal/errors"
	"cvcoach/internal/utils"
)

// FileProcessor reads CV and job description files and writes command output
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.Discard()
	}
	return &FileProcessor{logger: logger}
}

// ReadDocument returns the text of a .txt, .md or .pdf file
func (fp *FileProcessor) ReadDocument(filename string) (string, error) {
	text, err := utils.ReadCVFile(filename)
	if err != nil {
		return "", err
	}
	fp.logger.Debug("Document read",
		"filename", filename,
		"pdf", utils.IsPDFFile(filename),
		"characters", utf8.RuneCountInString(text))
	return text, nil
}

// ReadDocuments reads every file in order. An empty name yields an empty
// string so optional inputs keep their position.
func (fp *FileProcessor) ReadDocuments(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		if filename == "" {
			continue
		}
		text, err := fp.ReadDocument(filename)
		if err != nil {
			return nil, err
		}
		contents[i] = text
	}
	return contents, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Não foi possível criar o diretório: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Não foi possível gravar o arquivo: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile rejects an output path that names a directory
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout
	}
	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("O destino é um diretório: %s", filename), nil)
	}
	return nil
}

package common

import (
	"fmt"
	"io"
	"os"

	"cvcoach/internal/errors"
	"cvcoach/internal/formatters"
)

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	out           io.Writer
	logger        *errors.Logger
}

// NewOutputHandler creates an output handler printing to stdout
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerTo(os.Stdout, logger)
}

// NewOutputHandlerTo creates an output handler printing to out
func NewOutputHandlerTo(out io.Writer, logger *errors.Logger) *OutputHandler {
	if logger == nil {
		logger = errors.Discard()
	}
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.NewFormatterRegistry(),
		out:           out,
		logger:        logger,
	}
}

// Render formats data without writing it
func (oh *OutputHandler) Render(data any, format string) (string, error) {
	output, err := oh.registry.Format(data, format)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Não foi possível formatar a saída como %s", format), err)
	}
	return output, nil
}

// HandleOutput formats data and writes it to the configured file or stdout
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}

	output, err := oh.Render(data, config.OutputFormat)
	if err != nil {
		return err
	}

	if config.OutputFile != "" {
		if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
			return err
		}
		oh.logger.Info("Output written successfully",
			"file", config.OutputFile, "format", config.OutputFormat)
		return nil
	}

	_, err = fmt.Fprint(oh.out, output)
	return err
}

// GetSupportedFormats returns all supported output formats
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}

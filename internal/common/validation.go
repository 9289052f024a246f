package common

import (
	"fmt"
	"slices"
	"strings"

	"cvcoach/internal/errors"
)

// NormalizeFormat lowercases a format name and maps aliases
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "md":
		return "markdown"
	case "txt":
		return "text"
	}
	return format
}

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, NormalizeFormat(format)) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

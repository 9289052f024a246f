package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypePrecondition ErrorType = "precondition"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeParse        ErrorType = "parse"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeAI           ErrorType = "ai"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewPreconditionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypePrecondition, code, message, cause)
}

func NewTimeoutError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeTimeout, code, message, cause)
}

func NewRateLimitError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeRateLimit, code, message, cause)
}

func NewParseError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeParse, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// TypeOf returns the ErrorType of the first AppError in err's chain,
// or ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, typ ErrorType) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Type == typ
}

// As is errors.As, re-exported so callers importing this package under
// the name "errors" keep access to it.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stdout
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a structured logger writing JSON to w
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	return &Logger{logger: slog.New(handler)}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, slog.LevelError)
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "cause", appErr.Cause.Error())
		}

		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
		return
	}

	logArgs := append([]any{"error", err.Error()}, args...)
	l.logger.Error(message, logArgs...)
}

// LogPanic logs a recovered panic value together with the current stack.
func (l *Logger) LogPanic(recovered any, message string, args ...any) {
	logArgs := append([]any{"panic", fmt.Sprint(recovered), "stack", string(debug.Stack())}, args...)
	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

func (l *Logger) Error(message string, args ...any) {
	l.logger.Error(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return NewLogger(slogLevel), nil
}

// ParseLevel maps a textual level to slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// Common error codes
const (
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeAIServiceFailed   = "AI_SERVICE_FAILED"
	ErrCodeAITimeout         = "AI_TIMEOUT"
	ErrCodeAIRateLimited     = "AI_RATE_LIMITED"
	ErrCodeAIEmptyResponse   = "AI_EMPTY_RESPONSE"
	ErrCodeATSParseFailed    = "ATS_PARSE_FAILED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidRole       = "INVALID_TARGET_ROLE"
	ErrCodeInvalidSalary     = "INVALID_SALARY"
	ErrCodeEmptyCV           = "EMPTY_CV"
	ErrCodeEmptyAnswer       = "EMPTY_ANSWER"
	ErrCodeMissingCV         = "MISSING_CV"
	ErrCodeMissingProfile    = "MISSING_PROFILE"
	ErrCodeMissingOptimizer  = "MISSING_OPTIMIZER_RESULT"
	ErrCodeUnknownPhase      = "UNKNOWN_PHASE"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeMissingAPIKey     = "MISSING_API_KEY"
	ErrCodeNetworkTimeout    = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

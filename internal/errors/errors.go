package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for the command-level error taxonomy. Every error that
// reaches the REPL boundary carries one of these codes so the loop can
// report it and continue.
const (
	CodeParse            = "PARSE_ERROR"
	CodeMissingParameter = "MISSING_PARAMETER"
	CodeInvalidRange     = "INVALID_RANGE"
	CodeInvalidDuration  = "INVALID_DURATION"
	CodeColumnNotFound   = "COLUMN_NOT_FOUND"
	CodePipeline         = "PIPELINE_ERROR"
	CodeRender           = "RENDER_ERROR"
	CodeLoad             = "LOAD_ERROR"
)

// CommandError is a structured error produced anywhere between parsing a
// command line and writing its artifacts. It is never fatal to the session.
type CommandError struct {
	Code    string
	Message string
	Details string
	cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" (")
		b.WriteString(e.Details)
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.cause
}

// Is matches two CommandErrors by code, so callers can test against the
// predefined sentinel values below without caring about details.
func (e *CommandError) Is(target error) bool {
	var ce *CommandError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// New creates a CommandError with the given code and message.
func New(code, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// Sentinel values for errors.Is checks.
var (
	ErrParse            = New(CodeParse, "malformed command")
	ErrMissingParameter = New(CodeMissingParameter, "required parameter is missing")
	ErrInvalidRange     = New(CodeInvalidRange, "invalid range")
	ErrInvalidDuration  = New(CodeInvalidDuration, "invalid duration token")
	ErrColumnNotFound   = New(CodeColumnNotFound, "column not found")
	ErrPipeline         = New(CodePipeline, "pipeline stage failed")
	ErrRender           = New(CodeRender, "rendering failed")
	ErrLoad             = New(CodeLoad, "data loading failed")
)

// Parse reports malformed command text. The message is surfaced verbatim.
func Parse(format string, args ...any) *CommandError {
	return &CommandError{Code: CodeParse, Message: fmt.Sprintf(format, args...)}
}

// MissingParameter names the parameter a task requires but did not receive.
func MissingParameter(name string) *CommandError {
	return &CommandError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("missing required parameter %q", name),
		Details: name,
	}
}

// InvalidRange reports a date range whose start is after its end.
func InvalidRange(start, end string) *CommandError {
	return &CommandError{
		Code:    CodeInvalidRange,
		Message: fmt.Sprintf("start date %s is after end date %s", start, end),
	}
}

// InvalidDuration names the token that failed the <int><unit> grammar.
func InvalidDuration(token string) *CommandError {
	return &CommandError{
		Code:    CodeInvalidDuration,
		Message: fmt.Sprintf("invalid duration token %q (expected <n>min, <n>h, <n>s or <n>d)", token),
		Details: token,
	}
}

// ColumnNotFound lists the columns that are available so the user can
// correct the command without a separate lookup.
func ColumnNotFound(name string, available []string) *CommandError {
	return &CommandError{
		Code:    CodeColumnNotFound,
		Message: fmt.Sprintf("column %q not found", name),
		Details: "available: " + strings.Join(available, ", "),
	}
}

// Pipeline wraps a stage failure with the stage name.
func Pipeline(stage string, cause error) *CommandError {
	return &CommandError{
		Code:    CodePipeline,
		Message: fmt.Sprintf("pipeline stage %q failed", stage),
		cause:   cause,
	}
}

// Render wraps a rendering collaborator failure with context.
func Render(what string, cause error) *CommandError {
	return &CommandError{
		Code:    CodeRender,
		Message: fmt.Sprintf("failed to render %s", what),
		cause:   cause,
	}
}

// Load wraps an ingestion failure. attempts is the number of reads tried
// by the loader before giving up; zero means the failure was not retryable.
func Load(path string, attempts int, cause error) *CommandError {
	msg := fmt.Sprintf("failed to load %s", path)
	if attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, attempts)
	}
	return &CommandError{Code: CodeLoad, Message: msg, cause: cause}
}

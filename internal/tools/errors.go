package tools

import (
	"errors"
	"fmt"

	"github.com/aatumaykin/morningbrew/internal/logger"
)

var (
	// ErrUnknownTool means the model asked for a tool outside the catalog.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments means the arguments failed to parse or validate.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrCircuitOpen means a collaborator failed repeatedly and is being skipped.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Коды ошибок для ToolError
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
)

// ToolError - ошибка валидации вызова инструмента (до каких-либо side effects)
type ToolError struct {
	Code    string         `json:"code"`
	Tool    string         `json:"tool"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// LogFields возвращает поля для structured logging
func (e *ToolError) LogFields() []logger.Field {
	fields := []logger.Field{
		{Key: "error_code", Value: e.Code},
		{Key: "tool", Value: e.Tool},
	}
	for k, v := range e.Details {
		fields = append(fields, logger.Field{Key: k, Value: v})
	}
	return fields
}

func newUnknownToolError(name string) *ToolError {
	return &ToolError{
		Code:    CodeUnknownTool,
		Tool:    name,
		Message: fmt.Sprintf("Unknown tool: %s", name),
		Err:     ErrUnknownTool,
	}
}

func newInvalidArgumentsError(name string, cause error) *ToolError {
	return &ToolError{
		Code:    CodeInvalidArguments,
		Tool:    name,
		Message: fmt.Sprintf("invalid arguments for tool %s: %v", name, cause),
		Details: map[string]any{"reason": cause.Error()},
		Err:     fmt.Errorf("%w: %w", ErrInvalidArguments, cause),
	}
}

// ExternalServiceError is a failed call to a collaborator (weather, feed,
// jokes, image generation).
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s returned status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsExternalServiceError reports whether err came from a collaborator.
func IsExternalServiceError(err error) bool {
	var ese *ExternalServiceError
	return errors.As(err, &ese)
}

// Package apperr defines the coded errors surfaced by the assessment service
// and rendered by the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeMissingAnswer Code = "MISSING_ANSWER"
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeNotFound      Code = "NOT_FOUND"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeMissingAnswer: http.StatusUnprocessableEntity,
	CodeInvalidInput:  http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeForbidden:     http.StatusForbidden,
	CodeConflict:      http.StatusConflict,
	CodeInternal:      http.StatusInternalServerError,
}

// Error is a structured application error.
type Error struct {
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	Details    []string `json:"details,omitempty"`
	QuestionID string   `json:"question_id,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status maps the code to an HTTP status.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates an error with the given code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a cause that stays reachable via errors.Is/As.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

func InvalidInput(msg string, details ...string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg, Details: details}
}

func MissingAnswer(questionID string, cause error) *Error {
	return &Error{
		Code:       CodeMissingAnswer,
		Message:    "missing answer for question " + questionID,
		QuestionID: questionID,
		cause:      cause,
	}
}

func Internal(cause error) *Error {
	return Wrap(CodeInternal, "internal error", cause)
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return err != nil && CodeOf(err) == CodeNotFound }

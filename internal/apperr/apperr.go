// Package apperr defines the error kinds surfaced to users: bad credentials,
// broken templates, failed generations, template store failures and bad input.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindAuth           Kind = "auth"
	KindTemplateFormat Kind = "template_format"
	KindGeneration     Kind = "generation"
	KindPersistence    Kind = "persistence"
	KindInput          Kind = "input"
)

var (
	// ErrAuth matches any KindAuth error via errors.Is.
	ErrAuth = &Error{Kind: KindAuth}
	// ErrTemplateFormat matches any KindTemplateFormat error via errors.Is.
	ErrTemplateFormat = &Error{Kind: KindTemplateFormat}
	// ErrGeneration matches any KindGeneration error via errors.Is.
	ErrGeneration = &Error{Kind: KindGeneration}
	// ErrPersistence matches any KindPersistence error via errors.Is.
	ErrPersistence = &Error{Kind: KindPersistence}
	// ErrInput matches any KindInput error via errors.Is.
	ErrInput = &Error{Kind: KindInput}
)

// Error carries a Kind plus the operation and URL it happened on.
type Error struct {
	Kind    Kind
	Op      string // e.g. "generate", "render hook", "load templates"
	URL     string // target URL, empty when not URL-specific
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.Message, e.Err)
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		fmt.Fprintf(&b, "%s error", e.Kind)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. Sentinels carry only
// a Kind, so errors.Is(err, ErrGeneration) matches every generation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// New builds an Error of the given kind.
func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Auth returns a KindAuth error.
func Auth(op, message string, err error) *Error { return New(KindAuth, op, message, err) }

// TemplateFormat returns a KindTemplateFormat error.
func TemplateFormat(op, message string, err error) *Error {
	return New(KindTemplateFormat, op, message, err)
}

// Generation returns a KindGeneration error.
func Generation(op, message string, err error) *Error {
	return New(KindGeneration, op, message, err)
}

// Persistence returns a KindPersistence error.
func Persistence(op, message string, err error) *Error {
	return New(KindPersistence, op, message, err)
}

// Input returns a KindInput error.
func Input(op, message string, err error) *Error { return New(KindInput, op, message, err) }

// WithURL returns a copy of err tagged with url. Non-*Error values are wrapped
// as generation failures.
func WithURL(err error, url string) *Error {
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		cp.URL = url
		return &cp
	}
	return &Error{Kind: KindGeneration, URL: url, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when err
// carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage renders err as an actionable message for the UI. It never
// includes credentials; provider detail is kept only for generation failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Unexpected error: " + err.Error()
	}
	switch e.Kind {
	case KindAuth:
		if e.Message != "" {
			return "Authentication problem: " + e.Message + "."
		}
		return "Authentication problem: the AI service rejected the configured API key."
	case KindTemplateFormat:
		return "Template problem: " + e.detail() + ". Fix the template under Settings and try again."
	case KindGeneration:
		return "Generation failed: " + e.detail() + ". You can retry this URL."
	case KindPersistence:
		return "Template storage problem: " + e.detail() + "."
	case KindInput:
		return "Invalid input: " + e.detail() + "."
	default:
		return e.Error()
	}
}

func (e *Error) detail() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + " (" + e.Err.Error() + ")"
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

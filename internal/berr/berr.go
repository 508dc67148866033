// Package berr implements the bundler's error chain: a typed error carrying
// an optional cause and the source location it was raised at, rendered as a
// tree of user-facing messages.
package berr

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fatih/color"
)

// Kind discriminates the taxonomy of errors a bundler run can produce (spec
// §7). Each kind owns whatever fields are relevant to it via the Fields map.
type Kind string

const (
	ToolNotFound             Kind = "ToolNotFound"
	ToolFailed                Kind = "ToolFailed"
	ToolOutputUnparseable    Kind = "ToolOutputUnparseable"
	Filesystem               Kind = "FilesystemError"
	BinaryFormat             Kind = "BinaryFormatError"
	DependencyResolution     Kind = "DependencyResolutionError"
	Config                   Kind = "ConfigError"
	ProjectBuild             Kind = "ProjectBuildError"
	Builder                  Kind = "BuilderError"
	Variable                 Kind = "VariableError"
	CodeSigning              Kind = "CodeSigningError"
	Aborted                  Kind = "Aborted"
)

// Error is the chained, located error value. It implements error and
// errors.Unwrap so the standard library's errors.Is/As keep working across
// the chain.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	Cause   error
	File    string
	Line    int
}

// new_ creates an Error of the given kind with the caller's location
// captured. skip is the number of additional stack frames to skip beyond New
// itself, for wrapper helpers like Wrapf.
func new_(kind Kind, msg string, cause error, skip int) *Error {
	_, file, line, _ := runtime.Caller(skip)
	return &Error{Kind: kind, Message: msg, Cause: cause, File: file, Line: line}
}

// New builds a root error with no cause.
func New(kind Kind, format string, args ...any) *Error {
	return new_(kind, fmt.Sprintf(format, args...), nil, 2)
}

// Wrap attaches kind and message to an existing cause, preserving the chain.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return new_(kind, fmt.Sprintf(format, args...), cause, 2)
}

// With attaches structured fields to the error, returning it for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	e.Fields[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Render walks the cause chain into an indented, human-readable tree. Colors
// are applied when the output is a terminal; Error() remains the plain-text
// form used by %v and logging.
func Render(err error) string {
	var b strings.Builder
	render(&b, err, 0)
	return b.String()
}

func render(b *strings.Builder, err error, depth int) {
	if err == nil {
		return
	}
	prefix := strings.Repeat("  ", depth)
	bold := color.New(color.Bold)
	if be, ok := err.(*Error); ok {
		b.WriteString(prefix)
		b.WriteString(bold.Sprint(be.Message))
		if be.File != "" {
			b.WriteString(color.New(color.Faint).Sprintf(" (%s:%d)", be.File, be.Line))
		}
		b.WriteString("\n")
		if be.Cause != nil {
			render(b, be.Cause, depth+1)
		}
		return
	}
	b.WriteString(prefix)
	b.WriteString(err.Error())
	b.WriteString("\n")
}

// IsAborted reports whether err (or any error in its chain) represents a
// cooperative cancellation.
func IsAborted(err error) bool {
	for err != nil {
		if be, ok := err.(*Error); ok {
			if be.Kind == Aborted {
				return true
			}
			err = be.Cause
			continue
		}
		break
	}
	return false
}

package ir

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode categorizes compile failures.
type ErrorCode string

const (
	// ErrCodeSchema: unknown table or field, non-joinable field, missing path.
	ErrCodeSchema ErrorCode = "SCHEMA_ERROR"

	// ErrCodeCast: unsupported conversion, bad date literal, parameter re-inference.
	ErrCodeCast ErrorCode = "CAST_ERROR"

	// ErrCodeArity: too few or too many function arguments.
	ErrCodeArity ErrorCode = "ARITY_ERROR"

	// ErrCodeSyntax: malformed query shape (non-string field name, unnamed
	// function in select, invalid order direction, invalid table filter).
	ErrCodeSyntax ErrorCode = "SYNTAX_ERROR"

	// ErrCodeUnknownFunction: a $-prefixed call names no known function.
	ErrCodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION"

	// ErrCodeUnknownOperator: a condition uses an operator that does not exist.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeLiteral: undefined values, computed nulls, $literal misuse.
	ErrCodeLiteral ErrorCode = "LITERAL_ERROR"
)

// CompileError is a classified compile failure.
//
// A CompileError aborts only the current compilation. Before it leaves the
// compiler it is annotated with the expression stack that was active when
// it was raised (see Annotate).
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is the human-readable description, without the trace.
	Message string

	// Suggestion is an optional "did you mean" hint.
	Suggestion string

	// Trace is the rendered expression stack, empty when the error was
	// raised outside any compile frame.
	Trace string

	annotated bool
	pcs       []uintptr
	within    []any
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean %s?)", e.Suggestion)
	}
	if e.Trace != "" {
		b.WriteString("\n\nExpression stack:")
		b.WriteString(e.Trace)
	}
	return b.String()
}

// Within records a node enclosing the failure, innermost first. Parsers
// call it while unwinding so the trace shows nodes that never reached a
// compile frame. Ignored once the error is annotated.
func (e *CompileError) Within(node any) {
	if !e.annotated {
		e.within = append(e.within, node)
	}
}

// Enclosing returns the nodes recorded by Within, innermost first.
func (e *CompileError) Enclosing() []any {
	return e.within
}

// Annotated reports whether the expression trace has been attached.
func (e *CompileError) Annotated() bool {
	return e.annotated
}

// Annotate attaches the rendered expression trace. Only the first call has
// any effect, so the innermost frame that sees the error wins. When
// keepStack is false the Go call stack captured at creation is discarded.
func (e *CompileError) Annotate(trace string, keepStack bool) {
	if e.annotated {
		return
	}
	e.annotated = true
	e.Trace = trace
	if !keepStack {
		e.pcs = nil
	}
}

// StackTrace formats the Go call stack captured when the error was created.
// Empty once the error was annotated in production mode.
func (e *CompileError) StackTrace() string {
	if len(e.pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

func newCompileError(code ErrorCode, format string, args ...any) *CompileError {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	return &CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		pcs:     pcs[:n],
	}
}

// NewSchemaError creates a CompileError for schema lookups.
func NewSchemaError(format string, args ...any) *CompileError {
	return newCompileError(ErrCodeSchema, format, args...)
}

// NewCastError creates a CompileError for failed type coercion.
func NewCastError(format string, args ...any) *CompileError {
	return newCompileError(ErrCodeCast, format, args...)
}

// NewArityError creates a CompileError for wrong argument counts.
func NewArityError(format string, args ...any) *CompileError {
	return newCompileError(ErrCodeArity, format, args...)
}

// NewSyntaxError creates a CompileError for malformed query shapes.
func NewSyntaxError(format string, args ...any) *CompileError {
	return newCompileError(ErrCodeSyntax, format, args...)
}

// NewLiteralError creates a CompileError for invalid literal usage.
func NewLiteralError(format string, args ...any) *CompileError {
	return newCompileError(ErrCodeLiteral, format, args...)
}

// NewUnknownFunctionError creates a CompileError naming an unknown function.
func NewUnknownFunctionError(name, suggestion string) *CompileError {
	e := newCompileError(ErrCodeUnknownFunction, "Unknown function: %s", name)
	e.Suggestion = suggestion
	return e
}

// NewUnknownOperatorError creates a CompileError naming an unknown operator.
func NewUnknownOperatorError(name, suggestion string) *CompileError {
	e := newCompileError(ErrCodeUnknownOperator, "Unknown operator: %s", name)
	e.Suggestion = suggestion
	return e
}

// IsCompileError returns true if err is (or wraps) a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// CodeOf returns the ErrorCode of a CompileError, or "" for other errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

package directive

import "fmt"

// ErrorType classifies directive processing failures.
type ErrorType int

const (
	// ErrorMalformedReference indicates the directive argument or options
	// could not be understood (no ':' in the reference, bad :type: value).
	ErrorMalformedReference ErrorType = iota
	// ErrorFileNotFound indicates the referenced generator file does not
	// exist relative to the document or the source root.
	ErrorFileNotFound
	// ErrorSymbolNotFound indicates the file loaded but does not define the
	// named function.
	ErrorSymbolNotFound
	// ErrorLoad indicates the file failed to parse or execute as a module.
	ErrorLoad
	// ErrorGeneration indicates the generator function itself failed.
	ErrorGeneration
	// ErrorInvalidOutput indicates the function returned a non-string.
	ErrorInvalidOutput
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrorMalformedReference:
		return "MalformedReference"
	case ErrorFileNotFound:
		return "FileNotFound"
	case ErrorSymbolNotFound:
		return "SymbolNotFound"
	case ErrorLoad:
		return "Load"
	case ErrorGeneration:
		return "Generation"
	case ErrorInvalidOutput:
		return "InvalidOutput"
	default:
		return "Unknown"
	}
}

// Error is a directive processing failure, carrying the source location of
// the directive occurrence for build reporting.
type Error struct {
	// Type is the error classification.
	Type ErrorType
	// Ref is the directive argument as written.
	Ref string
	// Doc is the path of the document containing the directive.
	Doc string
	// Line is the 1-based line of the directive in Doc.
	Line int
	// Message is the human-readable error message.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s:%d: generate-include %q [%s]: %s", e.Doc, e.Line, e.Ref, e.Type, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

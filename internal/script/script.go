// Package script executes author-written Starlark generator functions. Each
// call loads the referenced file into a fresh interpreter thread with its own
// globals, so no state leaks between directive invocations and edits to
// generator files take effect on every build.
package script

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
)

// ErrorKind classifies script execution failures.
type ErrorKind int

const (
	// KindLoad indicates the file failed to parse or its top level failed
	// to execute.
	KindLoad ErrorKind = iota
	// KindSymbolNotFound indicates the module does not define the named
	// function (or defines it as something that is not callable).
	KindSymbolNotFound
	// KindEval indicates the function itself raised an error.
	KindEval
	// KindBadReturn indicates the function returned a non-string value.
	KindBadReturn
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindLoad:
		return "Load"
	case KindSymbolNotFound:
		return "SymbolNotFound"
	case KindEval:
		return "Eval"
	case KindBadReturn:
		return "BadReturn"
	default:
		return "Unknown"
	}
}

// Error is a script execution failure.
type Error struct {
	Kind    ErrorKind
	Path    string
	Symbol  string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s:%s [%s]: %s: %v", e.Path, e.Symbol, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s:%s [%s]: %s", e.Path, e.Symbol, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf returns the ErrorKind of err when it is (or wraps) a script Error.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// Call loads path as an isolated Starlark module and invokes the named
// zero-argument function, returning its string result. A None return is
// treated as the empty string; any other non-string return is an error.
func Call(path, function string) (string, error) {
	thread := &starlark.Thread{Name: "docweave " + path}

	globals, err := starlark.ExecFile(thread, path, nil, Predeclared())
	if err != nil {
		return "", &Error{
			Kind: KindLoad, Path: path, Symbol: function,
			Message: "cannot load module", Cause: evalCause(err),
		}
	}

	v, ok := globals[function]
	if !ok {
		return "", &Error{
			Kind: KindSymbolNotFound, Path: path, Symbol: function,
			Message: fmt.Sprintf("function %q is not defined", function),
		}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return "", &Error{
			Kind: KindSymbolNotFound, Path: path, Symbol: function,
			Message: fmt.Sprintf("%q is not callable (got %s)", function, v.Type()),
		}
	}

	result, err := starlark.Call(thread, fn, nil, nil)
	if err != nil {
		return "", &Error{
			Kind: KindEval, Path: path, Symbol: function,
			Message: "function call failed", Cause: evalCause(err),
		}
	}

	if result == starlark.None {
		return "", nil
	}
	if s, ok := starlark.AsString(result); ok {
		return s, nil
	}
	return "", &Error{
		Kind: KindBadReturn, Path: path, Symbol: function,
		Message: fmt.Sprintf("expected a string return value, got %s", result.Type()),
	}
}

// evalCause expands Starlark evaluation errors to include the backtrace, so
// build logs point at the failing generator line.
func evalCause(err error) error {
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		return errors.New(ee.Backtrace())
	}
	return err
}

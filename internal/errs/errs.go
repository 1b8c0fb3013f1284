// Package errs defines the validation errors shared by the encoder, dataset
// and region code. Messages are wrapped so they stay readable in job logs.
package errs

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// WrapWidth is the column limit for wrapped error messages.
const WrapWidth = 77

// Wrap reflows msg to WrapWidth columns. The result starts with a newline and
// every line is indented by two spaces.
func Wrap(msg string) string {
	collapsed := strings.Join(strings.Fields(msg), " ")
	wrapped := wordwrap.WrapString(collapsed, WrapWidth)
	return "\n  " + strings.ReplaceAll(wrapped, "\n", "\n  ")
}

// InvalidSequenceError reports a value that is not a supported sequence.
type InvalidSequenceError struct {
	Value  any
	Method string
}

func (e *InvalidSequenceError) Error() string {
	return Wrap(fmt.Sprintf("The object, %v, is not a supported sequence. "+
		"The object must have a %q method.", e.Value, e.Method))
}

// UnsupportedFunctionError reports a call that the receiver does not allow in
// its current state.
type UnsupportedFunctionError struct {
	Type     string
	Function string
}

func (e *UnsupportedFunctionError) Error() string {
	return Wrap(fmt.Sprintf("The object, %s, does not support the function %s. "+
		"Please check your usage and try again.", e.Type, e.Function))
}

// BitMismatchError reports a bit width that differs from the expected one.
type BitMismatchError struct {
	Expected int
	Actual   int
}

func (e *BitMismatchError) Error() string {
	return Wrap(fmt.Sprintf("The encoder expected %d bit(s), but %d bit(s) were supplied. "+
		"Please ensure that you are passing the correct number of bits.", e.Expected, e.Actual))
}

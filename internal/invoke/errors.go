package invoke

import "fmt"

// Class categorizes how an external invocation failed.
type Class string

const (
	// ClassToolNotInstalled means the executable could not be located or started.
	ClassToolNotInstalled Class = "tool_not_installed"
	// ClassTimeout means the process exceeded its allotted time and was terminated.
	ClassTimeout Class = "timeout"
	// ClassNonZeroExit means the process ran to completion with a nonzero exit code.
	ClassNonZeroExit Class = "non_zero_exit"
	// ClassMalformedOutput means the process succeeded but its output could not
	// be parsed as the expected structured format.
	ClassMalformedOutput Class = "malformed_output"
)

// Error is a classified invocation failure.
type Error struct {
	Class   Class
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(class Class, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

package hostfns

import "fmt"

// ErrAbort is the fatal error produced by the guest's env.abort import,
// formatted exactly as spec.md §4.2 requires.
type ErrAbort struct {
	Message, File string
	Line, Col     int32
}

func (e ErrAbort) Error() string {
	loc := fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Col)
	return fmt.Sprintf("Mapping aborted at %s, with %s", loc, e.Message)
}

// ErrCriticalLog is the fatal error raised when a mapping calls
// log.log(0, ...) (critical level) without the documented test
// escape-hatch environment variable set.
type ErrCriticalLog struct{ Message string }

func (e ErrCriticalLog) Error() string {
	return fmt.Sprintf("mapping logged a critical message: %s", e.Message)
}

// ErrNumberTooBig is returned by bigInt.* arithmetic that would exceed the
// bridge's magnitude cap (pkg/bigint.MaxBits), and by bigInt.dividedBy and
// bigInt.mod for a zero divisor.
type ErrNumberTooBig struct{ Op string }

func (e ErrNumberTooBig) Error() string { return fmt.Sprintf("bigInt.%s: number too big", e.Op) }

// ErrBigIntParse is returned by json.toBigInt on a non-decimal-integer
// input string.
type ErrBigIntParse struct{ Input string }

func (e ErrBigIntParse) Error() string {
	return fmt.Sprintf("json.toBigInt: could not parse %q as a decimal integer", e.Input)
}

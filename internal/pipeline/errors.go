package pipeline

import "fmt"

// FatalError wraps any stage's terminal error as the pipeline-level fatal
// condition cmd/datafast-runtime maps to a non-zero exit code (spec.md §7
// "fatal" policy class).
type FatalError struct{ Cause error }

func (e FatalError) Error() string { return fmt.Sprintf("pipeline: fatal: %v", e.Cause) }

func (e FatalError) Unwrap() error { return e.Cause }

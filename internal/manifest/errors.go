package manifest

import "fmt"

// ErrLoad is a fatal startup error: the manifest file could not be read or
// parsed as YAML.
type ErrLoad struct {
	Path  string
	Cause error
}

func (e ErrLoad) Error() string {
	return fmt.Sprintf("manifest: load %s: %v", e.Path, e.Cause)
}

func (e ErrLoad) Unwrap() error { return e.Cause }

// ErrValidate is a fatal startup error: the manifest parsed but failed a
// structural check (spec.md §4.5 "unparseable addresses... at manifest
// load, not at runtime").
type ErrValidate struct{ Reason string }

func (e ErrValidate) Error() string { return "manifest: " + e.Reason }

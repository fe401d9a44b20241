package subgraph

import "fmt"

// ErrUnknownDatasource is fatal: the Filter emitted a match against a
// datasource name the Dispatcher has no sandbox instance for, which can
// only happen if the Filter and Dispatcher were built from different
// manifests.
type ErrUnknownDatasource struct{ Name string }

func (e ErrUnknownDatasource) Error() string {
	return fmt.Sprintf("subgraph: no sandbox instance for datasource %q", e.Name)
}

// ErrHandlerFailed wraps a handler invocation failure (guest abort,
// runtime trap, arithmetic overflow) as the fatal, block-failing error
// spec.md §4.6 step 5 names.
type ErrHandlerFailed struct {
	Datasource string
	Handler    string
	Cause      error
}

func (e ErrHandlerFailed) Error() string {
	return fmt.Sprintf("subgraph: %s/%s failed: %v", e.Datasource, e.Handler, e.Cause)
}

func (e ErrHandlerFailed) Unwrap() error { return e.Cause }

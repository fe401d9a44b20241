package serializer

import "fmt"

// ErrUnexpectedKind is fatal: a direct-mode pipeline received a message
// that was not already a canonical block record (spec.md §4.4 "direct...
// for sources that already deliver canonical records").
type ErrUnexpectedKind struct{ Kind int }

func (e ErrUnexpectedKind) Error() string {
	return fmt.Sprintf("serializer: direct mode received non-canonical message (kind=%d)", e.Kind)
}

// ErrMissingField is fatal: a transform handler's returned block header
// omitted a required field.
type ErrMissingField struct{ Field string }

func (e ErrMissingField) Error() string {
	return fmt.Sprintf("serializer: transform handler result missing field %q", e.Field)
}

// ErrFieldKind is fatal: a transform handler's returned block header field
// had the wrong Value kind.
type ErrFieldKind struct {
	Field string
	Got   string
}

func (e ErrFieldKind) Error() string {
	return fmt.Sprintf("serializer: transform handler result field %q has wrong kind %s", e.Field, e.Got)
}

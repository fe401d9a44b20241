package model

import "fmt"

// Entity is one record a handler writes through store.set: a typed,
// ordered set of named fields (spec.md §3). Field order is preserved so
// Update replaces the whole record deterministically and so marshaling
// back to the guest (e.g. for LoadRelated results) is reproducible.
type Entity struct {
	Type   string
	ID     string
	Fields []Field
}

// Field is one (name, value) pair of an Entity, kept as a slice rather
// than a map so insertion order survives round trips (spec.md §3 "Typed
// map: ... duplicate keys preserve insertion order").
type Field struct {
	Name  string
	Value Value
}

// Get returns the value for the named field and whether it was present.
func (e Entity) Get(name string) (Value, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the named field's value, appending it if absent.
func (e *Entity) Set(name string, v Value) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = v
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: v})
}

// Validate enforces spec.md §3's invariant: "An entity write carrying no id
// field fails before touching any tier."
func (e Entity) Validate() error {
	v, ok := e.Get("id")
	if !ok {
		return fmt.Errorf("entity %s: missing required id field", e.Type)
	}
	if v.Kind != ValueString || v.Str == "" {
		return fmt.Errorf("entity %s: id field must be a non-empty String", e.Type)
	}
	return nil
}

// FieldKind describes one entity-type field's declared shape in the
// subgraph schema (spec.md §3 "Schema lookup").
type FieldKind struct {
	Kind          string // e.g. "String", "BigInt", "Bytes", "List"
	Relation      string // non-empty if this field references another entity type
	ListInnerKind string // populated when Kind == "List"
}

// Schema maps entity-type name to its ordered field declarations.
type Schema map[string][]SchemaField

// SchemaField names one declared field of an entity type.
type SchemaField struct {
	Name string
	FieldKind
}

// Lookup returns the declared kind of field on entity type typ, if any.
func (s Schema) Lookup(typ, field string) (FieldKind, bool) {
	for _, f := range s[typ] {
		if f.Name == field {
			return f.FieldKind, true
		}
	}
	return FieldKind{}, false
}

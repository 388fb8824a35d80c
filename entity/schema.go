package entity

import (
	"fmt"
	"sort"
	"sync"
)

// WireType declares the intended transmission width of a schema field. The
// core records the declaration but performs no range clamping; encoding to
// the declared width is a transport concern.
type WireType uint8

const (
	Int8 WireType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	String
	Bool
)

// String returns the lowercase wire-type name used in schema exports.
func (t WireType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// Field pairs a schema field name with its declared wire type.
type Field struct {
	Name string
	Type WireType
}

// Schema is the static field-descriptor table for one entity type: the set of
// fields that are network-visible. Schemas are built once, at definition time,
// and never mutated afterwards.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from the provided descriptors. Declaring the same
// field twice is a definition-time error and panics.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		s.mustAdd(f)
	}
	return s
}

// Extend derives a child schema containing the union of the parent's fields
// and the additional descriptors. The parent is never modified; a child may
// add fields but never replace or remove inherited ones.
func (s *Schema) Extend(fields ...Field) *Schema {
	parent := []Field(nil)
	if s != nil {
		parent = s.fields
	}
	child := &Schema{
		fields: make([]Field, 0, len(parent)+len(fields)),
		index:  make(map[string]int, len(parent)+len(fields)),
	}
	for _, f := range parent {
		child.mustAdd(f)
	}
	for _, f := range fields {
		child.mustAdd(f)
	}
	return child
}

func (s *Schema) mustAdd(f Field) {
	if f.Name == "" {
		panic("entity: schema field with empty name")
	}
	if _, exists := s.index[f.Name]; exists {
		panic(fmt.Sprintf("entity: schema field %q declared twice", f.Name))
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
}

// Fields returns the descriptors in declaration order (parent fields first).
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether the schema declares the named field.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Schema)
)

// RegisterType records the schema for a named entity type so tooling (the
// schema export command) can enumerate every type the process knows about.
// Registering the same name with a different schema is a definition-time
// error; re-registering the identical schema is a no-op so init-order is not
// load-bearing.
func RegisterType(name string, schema *Schema) {
	if name == "" || schema == nil {
		panic("entity: RegisterType requires a name and a schema")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := registry[name]; ok {
		if existing != schema {
			panic(fmt.Sprintf("entity: type %q registered twice with different schemas", name))
		}
		return
	}
	registry[name] = schema
}

// RegisteredTypes returns the known type names in sorted order.
func RegisteredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemaFor returns the registered schema for a type name, or nil.
func SchemaFor(name string) *Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

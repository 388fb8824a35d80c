package entity

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Input carries one actor intent through the shared delivery path. Networked
// clients and bots produce the identical shape; game code must never be able
// to tell them apart from the payload alone.
type Input map[string]any

// Float reads a numeric input value, tolerating the integer and float forms
// a JSON decode or hand-built test input may carry.
func (in Input) Float(key string) float64 {
	switch v := in[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// String reads a string input value, returning "" when absent or mistyped.
func (in Input) String(key string) string {
	v, _ := in[key].(string)
	return v
}

// Bool reads a boolean input value, returning false when absent or mistyped.
func (in Input) Bool(key string) bool {
	v, _ := in[key].(bool)
	return v
}

// Snapshot is the ephemeral, schema-only projection of one entity: the id
// plus every declared field's current value, nothing else. It is computed on
// demand and never retained by the core.
type Snapshot map[string]any

// TypedSnapshot pairs an entity's runtime type name with its snapshot. The
// slice of these is the complete wire payload for a room.
type TypedSnapshot struct {
	Type string   `json:"type"`
	Data Snapshot `json:"data"`
}

// Entity is the contract every networked game object satisfies. Embedding
// Base provides everything except input handling, which concrete types
// override when the entity reacts to input directly.
type Entity interface {
	ID() string
	TypeName() string
	Schema() *Schema
	IsBot() bool
	MarkBot()
	Snapshot() Snapshot
	ApplySnapshot(partial Snapshot)
	HandleInput(in Input)
}

// Positioned is implemented by entities that occupy a 2D position, enabling
// nearest-neighbor queries against them.
type Positioned interface {
	Position() (x, y float64)
}

// Base carries the identity, schema, and field bindings shared by all entity
// types. A concrete type embeds Base, calls Init once in its constructor, and
// binds a pointer for every schema field it owns. Parent types bind their own
// fields, so inheritance composes the way schema extension does.
type Base struct {
	id       string
	typeName string
	schema   *Schema
	bindings map[string]any
	bot      bool
}

// Init assigns the entity's immutable identity and schema. An empty id asks
// the framework to generate one; the id never changes afterwards. The type's
// schema is recorded in the global registry as a side effect.
func (b *Base) Init(typeName string, schema *Schema, id string) {
	if typeName == "" || schema == nil {
		panic("entity: Init requires a type name and a schema")
	}
	if b.typeName != "" {
		panic(fmt.Sprintf("entity: %s initialised twice", b.typeName))
	}
	if id == "" {
		id = uuid.NewString()
	}
	b.id = id
	b.typeName = typeName
	b.schema = schema
	b.bindings = make(map[string]any, schema.Len())
	RegisterType(typeName, schema)
}

// Bind attaches a pointer to a declared schema field. Binding an undeclared
// field, or an unsupported pointer kind, is a definition-time error.
func (b *Base) Bind(name string, ptr any) {
	if b.schema == nil {
		panic("entity: Bind called before Init")
	}
	if !b.schema.Has(name) {
		panic(fmt.Sprintf("entity: %s binds undeclared field %q", b.typeName, name))
	}
	switch ptr.(type) {
	case *int8, *uint8, *int16, *uint16, *int32, *uint32, *int, *float32, *float64, *string, *bool:
	default:
		panic(fmt.Sprintf("entity: %s field %q bound to unsupported pointer %T", b.typeName, name, ptr))
	}
	b.bindings[name] = ptr
}

// ID returns the stable identity assigned at Init.
func (b *Base) ID() string { return b.id }

// TypeName returns the runtime type name assigned at Init.
func (b *Base) TypeName() string { return b.typeName }

// Schema returns the type's field-descriptor table.
func (b *Base) Schema() *Schema { return b.schema }

// IsBot reports whether the entity is AI-controlled. The flag drives
// population accounting only; it is never part of a snapshot.
func (b *Base) IsBot() bool { return b.bot }

// MarkBot flags the entity as AI-controlled.
func (b *Base) MarkBot() { b.bot = true }

// HandleInput is a no-op by default; entity types that react to input
// directly shadow this method.
func (b *Base) HandleInput(Input) {}

// Snapshot projects the current value of every bound schema field plus the
// entity id. Unbound declared fields are omitted rather than zero-filled so a
// partially constructed entity never reports values it does not own.
func (b *Base) Snapshot() Snapshot {
	snap := make(Snapshot, len(b.bindings)+1)
	snap["id"] = b.id
	for name, ptr := range b.bindings {
		snap[name] = readField(ptr)
	}
	return snap
}

// ApplySnapshot merges the provided fields into the entity, leaving every
// field absent from the argument untouched. Unknown keys and the id are
// ignored, which lets full and delta updates share one call site.
func (b *Base) ApplySnapshot(partial Snapshot) {
	for name, value := range partial {
		if name == "id" {
			continue
		}
		ptr, ok := b.bindings[name]
		if !ok {
			continue
		}
		writeField(ptr, value)
	}
}

func readField(ptr any) any {
	switch p := ptr.(type) {
	case *int8:
		return *p
	case *uint8:
		return *p
	case *int16:
		return *p
	case *uint16:
		return *p
	case *int32:
		return *p
	case *uint32:
		return *p
	case *int:
		return *p
	case *float32:
		return *p
	case *float64:
		return *p
	case *string:
		return *p
	case *bool:
		return *p
	default:
		return nil
	}
}

// writeField stores a snapshot value through a bound pointer. Numeric values
// arrive as float64 after a JSON decode and as concrete types from in-process
// callers, so every numeric target accepts both.
func writeField(ptr any, value any) {
	switch p := ptr.(type) {
	case *float64:
		if f, ok := asFloat(value); ok {
			*p = f
		}
	case *float32:
		if f, ok := asFloat(value); ok {
			*p = float32(f)
		}
	case *int8:
		if f, ok := asFloat(value); ok {
			*p = int8(f)
		}
	case *uint8:
		if f, ok := asFloat(value); ok {
			*p = uint8(f)
		}
	case *int16:
		if f, ok := asFloat(value); ok {
			*p = int16(f)
		}
	case *uint16:
		if f, ok := asFloat(value); ok {
			*p = uint16(f)
		}
	case *int32:
		if f, ok := asFloat(value); ok {
			*p = int32(f)
		}
	case *uint32:
		if f, ok := asFloat(value); ok {
			*p = uint32(f)
		}
	case *int:
		if f, ok := asFloat(value); ok {
			*p = int(f)
		}
	case *string:
		if s, ok := value.(string); ok {
			*p = s
		}
	case *bool:
		if v, ok := value.(bool); ok {
			*p = v
		}
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	case int16:
		return float64(v), true
	case uint16:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return float64(math.MaxInt64), true
		}
		return float64(v), true
	default:
		return 0, false
	}
}

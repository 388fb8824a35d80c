package entity

import "testing"

var critterSchema = NewSchema(
	Field{Name: "x", Type: Float64},
	Field{Name: "y", Type: Float64},
	Field{Name: "hp", Type: Int32},
	Field{Name: "label", Type: String},
)

type critter struct {
	Base

	X     float64
	Y     float64
	HP    int32
	Label string

	// memory is server-private state: never bound, never snapshotted.
	memory int
}

func newCritter(id string) *critter {
	c := &critter{}
	c.Init("critter", critterSchema, id)
	c.Bind("x", &c.X)
	c.Bind("y", &c.Y)
	c.Bind("hp", &c.HP)
	c.Bind("label", &c.Label)
	return c
}

func (c *critter) Position() (float64, float64) { return c.X, c.Y }

func (c *critter) HandleInput(in Input) {
	c.X += in.Float("dx")
	c.Y += in.Float("dy")
}

func TestInitGeneratesIDWhenEmpty(t *testing.T) {
	c := newCritter("")
	if c.ID() == "" {
		t.Fatalf("expected a generated id")
	}
	other := newCritter("")
	if other.ID() == c.ID() {
		t.Fatalf("generated ids collided: %s", c.ID())
	}
}

func TestSnapshotCarriesBoundFieldsAndID(t *testing.T) {
	c := newCritter("c-1")
	c.X, c.Y, c.HP, c.Label = 3.5, -2, 40, "alpha"
	c.memory = 99

	snap := c.Snapshot()
	if got := snap["id"]; got != "c-1" {
		t.Fatalf("expected id c-1, got %v", got)
	}
	if got := snap["x"]; got != 3.5 {
		t.Fatalf("expected x=3.5, got %v", got)
	}
	if got := snap["hp"]; got != int32(40) {
		t.Fatalf("expected hp=40, got %v (%T)", got, got)
	}
	if got := snap["label"]; got != "alpha" {
		t.Fatalf("expected label=alpha, got %v", got)
	}
	if len(snap) != 5 {
		t.Fatalf("snapshot leaked fields beyond the schema: %v", snap)
	}
}

func TestSnapshotOmitsUnboundFields(t *testing.T) {
	sparseSchema := NewSchema(
		Field{Name: "x", Type: Float64},
		Field{Name: "y", Type: Float64},
	)
	type sparse struct {
		Base
		X float64
	}
	s := &sparse{X: 7}
	s.Init("entity-test-sparse", sparseSchema, "s-1")
	s.Bind("x", &s.X)

	snap := s.Snapshot()
	if _, ok := snap["y"]; ok {
		t.Fatalf("unbound field y should be omitted, got %v", snap)
	}
	if got := snap["x"]; got != 7.0 {
		t.Fatalf("expected x=7, got %v", got)
	}
}

func TestApplySnapshotMergesPartially(t *testing.T) {
	c := newCritter("c-2")
	c.X, c.Y, c.HP, c.Label = 1, 2, 30, "before"

	c.ApplySnapshot(Snapshot{
		"x":  9.5,
		"hp": float64(12), // JSON decodes every number as float64
		"id": "hijack",
	})

	if c.X != 9.5 {
		t.Fatalf("expected x=9.5, got %v", c.X)
	}
	if c.HP != 12 {
		t.Fatalf("expected hp=12, got %v", c.HP)
	}
	if c.Y != 2 || c.Label != "before" {
		t.Fatalf("fields absent from the partial changed: y=%v label=%q", c.Y, c.Label)
	}
	if c.ID() != "c-2" {
		t.Fatalf("id must be immutable, got %q", c.ID())
	}
}

func TestApplySnapshotIgnoresUnknownKeys(t *testing.T) {
	c := newCritter("c-3")
	c.HP = 5
	c.ApplySnapshot(Snapshot{"mana": 50, "hp": 8})
	if c.HP != 8 {
		t.Fatalf("expected hp=8, got %v", c.HP)
	}
}

func TestBindUndeclaredFieldPanics(t *testing.T) {
	c := newCritter("c-4")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for undeclared binding")
		}
	}()
	var stray float64
	c.Bind("mana", &stray)
}

func TestInputAccessorsTolerateShapes(t *testing.T) {
	in := Input{"dx": 2, "dy": 1.5, "move": "north", "sprint": true}
	if got := in.Float("dx"); got != 2 {
		t.Fatalf("expected dx=2, got %v", got)
	}
	if got := in.Float("dy"); got != 1.5 {
		t.Fatalf("expected dy=1.5, got %v", got)
	}
	if got := in.Float("missing"); got != 0 {
		t.Fatalf("expected missing float to read 0, got %v", got)
	}
	if got := in.String("move"); got != "north" {
		t.Fatalf("expected move=north, got %q", got)
	}
	if !in.Bool("sprint") || in.Bool("move") {
		t.Fatalf("bool accessor wrong: sprint=%v move=%v", in.Bool("sprint"), in.Bool("move"))
	}
}

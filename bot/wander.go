package bot

import (
	"math"

	"github.com/aquilax/go-perlin"

	"netroom/entity"
)

const (
	wanderAlpha = 2.0
	wanderBeta  = 2.0
	wanderDepth = 3
)

// WanderConfig tunes a Wander behavior.
type WanderConfig struct {
	// Every is the decision cadence in ticks. Zero falls back to every tick.
	Every uint64
	// Scale stretches the noise field over the tick axis; smaller values turn
	// more slowly. Zero falls back to 0.01.
	Scale float64
	// Seed selects the noise field so rooms differ.
	Seed int64
}

// Wander steers an entity along a Perlin noise field, so ambient bots drift
// in smooth curves instead of jittering on fresh random headings every
// decision. It emits {"dx","dy"} unit-vector move inputs.
type Wander struct {
	every uint64
	scale float64
	noise *perlin.Perlin
}

// NewWander constructs a wander behavior.
func NewWander(cfg WanderConfig) *Wander {
	every := cfg.Every
	if every == 0 {
		every = 1
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 0.01
	}
	return &Wander{
		every: every,
		scale: scale,
		noise: perlin.NewPerlin(wanderAlpha, wanderBeta, wanderDepth, cfg.Seed),
	}
}

// Name satisfies Behavior.
func (w *Wander) Name() string { return "wander" }

// PollEvery satisfies Behavior.
func (w *Wander) PollEvery() uint64 { return w.every }

// Think samples the noise field at the bot's position and the current tick to
// derive a heading. Entities without a position stand still.
func (w *Wander) Think(view World, self entity.Entity) entity.Input {
	pos, ok := self.(entity.Positioned)
	if !ok {
		return nil
	}
	x, y := pos.Position()
	t := float64(view.Tick()) * w.scale
	sample := w.noise.Noise3D(x*w.scale, y*w.scale, t)
	heading := sample * 2 * math.Pi
	return entity.Input{
		"dx": math.Cos(heading),
		"dy": math.Sin(heading),
	}
}

var _ Behavior = (*Wander)(nil)

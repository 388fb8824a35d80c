// Package netcode is the client half of the framework: snapshot interpolation
// for remote entities, and input sequencing with local prediction for the
// entity the player controls. Everything here is pure and synchronous, with
// no timers and no goroutines: the renderer supplies "now" once per frame
// and feeds snapshots and acks as they arrive.
package netcode

import (
	"math"
	"sort"
)

// BlendMode selects how an interpolator blends between bracketing snapshots.
type BlendMode int

const (
	// BlendLinear is a straight linear blend.
	BlendLinear BlendMode = iota
	// BlendSmooth blends along a Catmull-Rom curve informed by neighboring
	// snapshots' implied velocity, softening abrupt direction changes.
	BlendSmooth
	// BlendExtrapolate behaves linearly inside the buffer and is the only
	// mode permitted to project past the newest snapshot, using the velocity
	// implied by the last two samples.
	BlendExtrapolate
)

// Sample is one timestamped authoritative snapshot of an entity's blendable
// fields. Timestamps are seconds on whatever clock the caller renders with.
type Sample struct {
	At     float64
	Values map[string]float64
}

// InterpolatorConfig tunes an interpolator.
type InterpolatorConfig struct {
	// Delay is the deliberate render lag in seconds, chosen so a valid
	// bracket of snapshots is normally available for the moment rendered.
	Delay float64
	// Mode selects the blending strategy.
	Mode BlendMode
	// Angular lists fields measured in degrees that wrap at 360 and must
	// blend along the shortest rotational arc.
	Angular []string
	// MaxSamples bounds retained history; the oldest sample drops first once
	// exceeded. Zero defaults to 32.
	MaxSamples int
}

// Interpolator turns a stream of timestamped snapshots into smooth values at
// arbitrary render times. Out-of-range queries clamp (or extrapolate, in that
// mode); a render frame can never usefully recover from an error, so none
// are produced.
type Interpolator struct {
	cfg     InterpolatorConfig
	angular map[string]bool
	samples []Sample
}

// NewInterpolator constructs an interpolator.
func NewInterpolator(cfg InterpolatorConfig) *Interpolator {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 32
	}
	angular := make(map[string]bool, len(cfg.Angular))
	for _, name := range cfg.Angular {
		angular[name] = true
	}
	return &Interpolator{cfg: cfg, angular: angular}
}

// Push stores a snapshot. Samples normally arrive in timestamp order; a late
// arrival is inserted in place so the buffer stays sorted. History beyond the
// configured bound drops oldest-first.
func (ip *Interpolator) Push(at float64, values map[string]float64) {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	sample := Sample{At: at, Values: copied}

	n := len(ip.samples)
	if n == 0 || at >= ip.samples[n-1].At {
		ip.samples = append(ip.samples, sample)
	} else {
		idx := sort.Search(n, func(i int) bool { return ip.samples[i].At > at })
		ip.samples = append(ip.samples, Sample{})
		copy(ip.samples[idx+1:], ip.samples[idx:])
		ip.samples[idx] = sample
	}
	if overflow := len(ip.samples) - ip.cfg.MaxSamples; overflow > 0 {
		ip.samples = append(ip.samples[:0], ip.samples[overflow:]...)
	}
}

// Len reports the number of retained samples.
func (ip *Interpolator) Len() int {
	return len(ip.samples)
}

// At computes the blended values for a render timestamp. The effective render
// time sits behind now by the configured delay. Before all stored data the
// earliest sample's values are returned exactly; past all stored data the
// latest values are returned, except in extrapolation mode which projects
// using the velocity implied by the last two samples. Returns nil when no
// snapshot has arrived yet.
func (ip *Interpolator) At(now float64) map[string]float64 {
	n := len(ip.samples)
	if n == 0 {
		return nil
	}
	t := now - ip.cfg.Delay

	if t <= ip.samples[0].At {
		return cloneValues(ip.samples[0].Values)
	}
	last := ip.samples[n-1]
	if t >= last.At {
		if ip.cfg.Mode == BlendExtrapolate && n >= 2 {
			return ip.extrapolate(t)
		}
		return cloneValues(last.Values)
	}

	// Locate the bracketing pair.
	hi := sort.Search(n, func(i int) bool { return ip.samples[i].At > t })
	lo := hi - 1
	a, b := ip.samples[lo], ip.samples[hi]
	span := b.At - a.At
	u := 0.0
	if span > 0 {
		u = (t - a.At) / span
	}

	out := make(map[string]float64, len(b.Values))
	for name, bv := range b.Values {
		av, ok := a.Values[name]
		if !ok {
			out[name] = bv
			continue
		}
		switch {
		case ip.angular[name]:
			out[name] = lerpAngle(av, bv, u)
		case ip.cfg.Mode == BlendSmooth:
			out[name] = ip.smooth(name, lo, hi, av, bv, u)
		default:
			out[name] = av + (bv-av)*u
		}
	}
	// Fields present only in the older sample still render.
	for name, av := range a.Values {
		if _, ok := b.Values[name]; !ok {
			out[name] = av
		}
	}
	return out
}

// smooth blends along a Catmull-Rom segment. Velocity at the bracket edges is
// the finite difference of the neighboring samples; missing neighbors fall
// back to the bracket endpoints, which degrades to a linear blend.
func (ip *Interpolator) smooth(name string, lo, hi int, p1, p2, u float64) float64 {
	p0, p3 := p1, p2
	if lo > 0 {
		if v, ok := ip.samples[lo-1].Values[name]; ok {
			p0 = v
		}
	}
	if hi < len(ip.samples)-1 {
		if v, ok := ip.samples[hi+1].Values[name]; ok {
			p3 = v
		}
	}
	u2 := u * u
	u3 := u2 * u
	return 0.5 * ((2 * p1) +
		(-p0+p2)*u +
		(2*p0-5*p1+4*p2-p3)*u2 +
		(-p0+3*p1-3*p2+p3)*u3)
}

func (ip *Interpolator) extrapolate(t float64) map[string]float64 {
	n := len(ip.samples)
	prev, last := ip.samples[n-2], ip.samples[n-1]
	span := last.At - prev.At
	ahead := t - last.At

	out := make(map[string]float64, len(last.Values))
	for name, lv := range last.Values {
		pv, ok := prev.Values[name]
		if !ok || span <= 0 {
			out[name] = lv
			continue
		}
		if ip.angular[name] {
			velocity := angleDelta(pv, lv) / span
			out[name] = normalizeAngle(lv + velocity*ahead)
			continue
		}
		velocity := (lv - pv) / span
		out[name] = lv + velocity*ahead
	}
	return out
}

// lerpAngle blends degrees along the shortest rotational arc, so halfway
// between 350 and 10 lands near 0, not 180.
func lerpAngle(a, b, u float64) float64 {
	return normalizeAngle(a + angleDelta(a, b)*u)
}

// angleDelta returns the signed shortest-arc difference b−a in (−180, 180].
func angleDelta(a, b float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

func normalizeAngle(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func cloneValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

package netcode

import (
	"math"
	"testing"
)

func almost(t *testing.T, got, want, eps float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("%s: got %v, want %v", msg, got, want)
	}
}

func TestAtReturnsNilBeforeAnySample(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{Delay: 0.1})
	if ip.At(1.0) != nil {
		t.Fatalf("expected nil with no samples")
	}
}

func TestAtClampsOutsideBuffer(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{})
	ip.Push(1.0, map[string]float64{"x": 10})
	ip.Push(2.0, map[string]float64{"x": 20})

	if got := ip.At(0.5)["x"]; got != 10 {
		t.Fatalf("before-buffer query should clamp to earliest, got %v", got)
	}
	if got := ip.At(5.0)["x"]; got != 20 {
		t.Fatalf("past-buffer query should clamp to latest, got %v", got)
	}
}

func TestLinearBlendMidpoint(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{Delay: 0.1})
	ip.Push(1.0, map[string]float64{"x": 10, "y": 0})
	ip.Push(2.0, map[string]float64{"x": 20, "y": 100})

	// now=1.6 renders t=1.5, the exact midpoint.
	out := ip.At(1.6)
	almost(t, out["x"], 15, 1e-9, "x midpoint")
	almost(t, out["y"], 50, 1e-9, "y midpoint")
}

func TestAngularBlendTakesShortestArc(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{Angular: []string{"heading"}})
	ip.Push(0.0, map[string]float64{"heading": 350})
	ip.Push(1.0, map[string]float64{"heading": 10})

	got := ip.At(0.5)["heading"]
	// Halfway between 350 and 10 is 0, never 180.
	if math.Min(got, 360-got) > 1e-9 {
		t.Fatalf("expected heading near 0/360, got %v", got)
	}
}

func TestLateSampleInsertsInOrder(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{})
	ip.Push(1.0, map[string]float64{"x": 10})
	ip.Push(3.0, map[string]float64{"x": 30})
	ip.Push(2.0, map[string]float64{"x": 20}) // late arrival

	almost(t, ip.At(2.5)["x"], 25, 1e-9, "blend across late-inserted sample")
}

func TestHistoryBoundDropsOldest(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{MaxSamples: 3})
	for i := 0; i < 5; i++ {
		ip.Push(float64(i), map[string]float64{"x": float64(i * 10)})
	}
	if ip.Len() != 3 {
		t.Fatalf("expected 3 retained samples, got %d", ip.Len())
	}
	// Oldest surviving sample is t=2; earlier queries clamp to it.
	if got := ip.At(0)["x"]; got != 20 {
		t.Fatalf("expected clamp to oldest retained sample, got %v", got)
	}
}

func TestExtrapolateProjectsPastNewest(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{Mode: BlendExtrapolate})
	ip.Push(1.0, map[string]float64{"x": 10})
	ip.Push(2.0, map[string]float64{"x": 20})

	// Velocity is 10/s; half a second past the newest sample.
	almost(t, ip.At(2.5)["x"], 25, 1e-9, "linear extrapolation")

	// Linear mode must clamp instead.
	clamped := NewInterpolator(InterpolatorConfig{Mode: BlendLinear})
	clamped.Push(1.0, map[string]float64{"x": 10})
	clamped.Push(2.0, map[string]float64{"x": 20})
	almost(t, clamped.At(2.5)["x"], 20, 1e-9, "linear clamp past newest")
}

func TestSmoothModePassesThroughSamplePoints(t *testing.T) {
	ip := NewInterpolator(InterpolatorConfig{Mode: BlendSmooth})
	ip.Push(0.0, map[string]float64{"x": 0})
	ip.Push(1.0, map[string]float64{"x": 10})
	ip.Push(2.0, map[string]float64{"x": 20})
	ip.Push(3.0, map[string]float64{"x": 30})

	// Catmull-Rom interpolates through control points exactly, and on a
	// constant-velocity stream it matches the linear answer everywhere.
	almost(t, ip.At(1.0)["x"], 10, 1e-9, "sample point")
	almost(t, ip.At(1.5)["x"], 15, 1e-9, "constant-velocity midpoint")
}

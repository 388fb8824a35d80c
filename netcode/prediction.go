package netcode

import "netroom/entity"

// State holds the blendable fields of the locally controlled entity.
type State map[string]float64

// Clone copies a state.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// StepFunc applies one input to a state and returns the result. It must be
// pure, with no clocks and no randomness the server would not reproduce,
// because reconciliation replays it over inputs the server has already
// processed once and the two runs must agree.
type StepFunc func(s State, in entity.Input) State

// PredictorConfig tunes a predictor.
type PredictorConfig struct {
	Step StepFunc
	// SmoothFrames is the number of render frames a correction is blended
	// out over instead of snapping. Zero defaults to 6.
	SmoothFrames int
}

// Predictor maintains the "predicted present" for the local player: every
// unconfirmed input applied on top of the latest authoritative baseline, so
// local control never waits for a round trip. When the authoritative state
// disagrees with an earlier prediction, the visible correction is spread over
// a few frames rather than applied as a snap.
type Predictor struct {
	step         StepFunc
	smoothFrames int

	predicted State
	offset    State
	framesLeft int
}

// NewPredictor constructs a predictor around the game's pure step function.
func NewPredictor(cfg PredictorConfig) *Predictor {
	smooth := cfg.SmoothFrames
	if smooth <= 0 {
		smooth = 6
	}
	return &Predictor{step: cfg.Step, smoothFrames: smooth}
}

// Seed installs the initial state before any server update has arrived.
func (p *Predictor) Seed(s State) {
	p.predicted = s.Clone()
}

// Predict applies a just-packaged local input immediately and returns the new
// predicted state. Call this at the moment the input is sent.
func (p *Predictor) Predict(in entity.Input) State {
	if p.step == nil {
		return p.predicted.Clone()
	}
	p.predicted = p.step(p.predicted.Clone(), in)
	return p.predicted.Clone()
}

// Reconcile installs a fresh authoritative baseline: the sequencer drops
// everything the server acknowledged, the remaining unconfirmed inputs are
// replayed on top of the baseline with the pure step function, and any
// discontinuity against the previous prediction becomes a decaying render
// offset instead of a visible teleport. Returns the new predicted state.
func (p *Predictor) Reconcile(baseline State, ackSeq uint32, seq *Sequencer) State {
	if seq != nil {
		seq.Ack(ackSeq)
	}
	replayed := baseline.Clone()
	if p.step != nil && seq != nil {
		for _, ti := range seq.Pending() {
			replayed = p.step(replayed, ti.Input)
		}
	}
	if p.predicted != nil {
		rendered := p.renderedNow()
		offset := make(State, len(replayed))
		diverged := false
		for name, nv := range replayed {
			if ov, ok := rendered[name]; ok {
				d := ov - nv
				offset[name] = d
				if d != 0 {
					diverged = true
				}
			}
		}
		if diverged {
			p.offset = offset
			p.framesLeft = p.smoothFrames
		} else {
			p.offset = nil
			p.framesLeft = 0
		}
	}
	p.predicted = replayed
	return replayed.Clone()
}

// Render returns the state to draw this frame and advances the correction
// blend by one frame. With no pending correction it is the predicted state
// itself.
func (p *Predictor) Render() State {
	out := p.renderedNow()
	if p.framesLeft > 0 {
		p.framesLeft--
		if p.framesLeft == 0 {
			p.offset = nil
		}
	}
	return out
}

// Predicted returns the current predicted state without the render offset.
func (p *Predictor) Predicted() State {
	return p.predicted.Clone()
}

// Correcting reports whether a correction is still being blended out.
func (p *Predictor) Correcting() bool {
	return p.framesLeft > 0
}

func (p *Predictor) renderedNow() State {
	out := p.predicted.Clone()
	if p.framesLeft <= 0 || len(p.offset) == 0 {
		return out
	}
	fraction := float64(p.framesLeft) / float64(p.smoothFrames)
	for name, d := range p.offset {
		if _, ok := out[name]; ok {
			out[name] += d * fraction
		}
	}
	return out
}

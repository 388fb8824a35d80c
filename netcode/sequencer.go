package netcode

import "netroom/entity"

// TimedInput is one locally generated input wrapped for transmission: a
// strictly increasing sequence number and the timestamp it was produced.
type TimedInput struct {
	Seq   uint32       `json:"seq"`
	At    float64      `json:"at"`
	Input entity.Input `json:"input"`
}

// Sequencer numbers outgoing inputs and retains every input the server has
// not yet acknowledged processing. Inputs are assumed processed in order, so
// acknowledging a sequence number acknowledges everything before it too.
type Sequencer struct {
	next    uint32
	pending []TimedInput
}

// NewSequencer starts numbering at 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Package wraps an input with the next sequence number and the caller's
// timestamp, records it as unconfirmed, and returns the wrapped form ready to
// send.
func (s *Sequencer) Package(in entity.Input, now float64) TimedInput {
	s.next++
	ti := TimedInput{Seq: s.next, At: now, Input: in}
	s.pending = append(s.pending, ti)
	return ti
}

// Ack confirms the given sequence number and every number before it, dropping
// the confirmed entries. Acks arriving out of order or duplicated are
// harmless.
func (s *Sequencer) Ack(seq uint32) {
	keep := s.pending[:0]
	for _, ti := range s.pending {
		if ti.Seq > seq {
			keep = append(keep, ti)
		}
	}
	s.pending = keep
}

// Pending returns the unconfirmed inputs in send order.
func (s *Sequencer) Pending() []TimedInput {
	out := make([]TimedInput, len(s.pending))
	copy(out, s.pending)
	return out
}

// PendingCount reports how many inputs await acknowledgement.
func (s *Sequencer) PendingCount() int {
	return len(s.pending)
}

// LastSeq returns the most recently assigned sequence number, zero before the
// first Package call.
func (s *Sequencer) LastSeq() uint32 {
	return s.next
}

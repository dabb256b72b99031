package engine

import (
	"fmt"
	"strings"

	"coverfill/internal/catalog"
)

// Mode is the lifecycle position of an engine.
type Mode string

const (
	ModeIdle     Mode = "idle"
	ModeRunning  Mode = "running"
	ModePaused   Mode = "paused"
	ModeAwaiting Mode = "awaiting_disambiguation"
	ModeStopped  Mode = "stopped"
)

var allModes = []Mode{ModeIdle, ModeRunning, ModePaused, ModeAwaiting, ModeStopped}

// ParseMode converts a string into a known Mode.
func ParseMode(value string) (Mode, bool) {
	normalized := Mode(strings.ToLower(strings.TrimSpace(value)))
	for _, mode := range allModes {
		if mode == normalized {
			return mode, true
		}
	}
	return "", false
}

// Pending is an item parked for disambiguation.
type Pending struct {
	Item       catalog.Item        `json:"item"`
	Candidates []catalog.Candidate `json:"candidates"`
	Provider   string              `json:"provider"`
}

func (p *Pending) clone() *Pending {
	if p == nil {
		return nil
	}
	out := &Pending{
		Item:     p.Item.Clone(),
		Provider: p.Provider,
	}
	out.Candidates = append([]catalog.Candidate(nil), p.Candidates...)
	return out
}

// State is the serializable snapshot of an enrichment run.
type State struct {
	Input          []catalog.Item     `json:"input"`
	Cursor         int                `json:"cursor"`
	Accumulated    *catalog.ResultSet `json:"accumulated"`
	Mode           Mode               `json:"mode"`
	Pending        *Pending           `json:"pending,omitempty"`
	PauseRequested bool               `json:"pause_requested,omitempty"`
	Completed      bool               `json:"completed"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Input = make([]catalog.Item, len(s.Input))
	for i, item := range s.Input {
		out.Input[i] = item.Clone()
	}
	out.Accumulated = s.Accumulated.Clone()
	out.Pending = s.Pending.clone()
	return out
}

// Total returns the number of input items.
func (s State) Total() int {
	return len(s.Input)
}

// Validate checks the structural invariants a persisted state must satisfy.
func (s State) Validate() error {
	if _, ok := ParseMode(string(s.Mode)); !ok {
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	if s.Cursor < 0 || s.Cursor > len(s.Input) {
		return fmt.Errorf("cursor %d out of range [0,%d]", s.Cursor, len(s.Input))
	}
	if s.Mode == ModeAwaiting && s.Pending == nil {
		return fmt.Errorf("mode %s without a pending item", s.Mode)
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventLeakCandidates EventKind = "leak_candidates"
	EventAnomaly        EventKind = "anomaly"
	EventSuggestions    EventKind = "suggestions"
)

type AnomalyKind string

const (
	AnomalyDoubleRegister AnomalyKind = "double_register"
	AnomalyUnknownFree    AnomalyKind = "unknown_free"
)

// Anomaly describes a non-fatal bookkeeping irregularity.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Address uintptr     `json:"address"`
}

// Event is published on the engine's diagnostic bus. Exactly one of the
// payload fields is set, according to Kind.
type Event struct {
	ID          string                   `json:"id"`
	Kind        EventKind                `json:"kind"`
	Timestamp   time.Time                `json:"timestamp"`
	Leaks       []AllocationRecord       `json:"leaks,omitempty"`
	Anomaly     *Anomaly                 `json:"anomaly,omitempty"`
	Suggestions []OptimizationSuggestion `json:"suggestions,omitempty"`
}

// NewEvent stamps a fresh event with a unique ID.
func NewEvent(kind EventKind, at time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Timestamp: at,
	}
}

// Package observe implements the shared, lock-protected campaign progress
// state: a single CampaignData under a reader-writer lock, written only by
// the engine and polled by observers (console/TUI) at roughly 10 Hz.
package observe

import (
	"sync"

	"github.com/google/uuid"

	"contractfuzz/internal/shrink"
)

// Status is the campaign's coarse lifecycle phase.
type Status int

const (
	Initializing Status = iota
	InProgress
	Optimizing
	Finished
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case InProgress:
		return "in progress"
	case Optimizing:
		return "optimizing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is the read-only copy handed to observers so they never hold
// the lock while rendering.
type Snapshot struct {
	RunID          string
	Status         Status
	CurrentRound   uint64
	FailedTraces   map[string]shrink.FailedTrace // keyed by property label or "trap"
	PropertyLabels []string
	FatalErr       error
}

// CampaignData is the engine's single writer / many-reader shared state.
// All mutation happens via the typed setter methods so the lock is always
// held for the shortest possible critical section.
type CampaignData struct {
	mu sync.RWMutex

	runID          string
	status         Status
	currentRound   uint64
	failedTraces   map[string]shrink.FailedTrace
	propertyLabels []string
	fatalErr       error
}

// New creates a CampaignData in the Initializing state for the given
// property labels, tagged with a fresh run identifier so operators can
// correlate logs from one campaign across the console sink and any saved
// failure reports.
func New(propertyLabels []string) *CampaignData {
	return &CampaignData{
		runID:          uuid.New().String(),
		status:         Initializing,
		failedTraces:   make(map[string]shrink.FailedTrace),
		propertyLabels: append([]string(nil), propertyLabels...),
	}
}

// SetStatus transitions the campaign's lifecycle phase.
func (c *CampaignData) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// IncrIteration advances the round counter by one.
func (c *CampaignData) IncrIteration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentRound++
}

// RecordFailure stores the failed trace for key (a property label, or the
// sentinel "trap" for a Trapped finding), replacing any earlier one. It
// does not compare the new witness with the one it replaces: the engine
// records every witness it finds during the campaign, so the latest one is
// kept, and only the post-campaign shrinking pass (internal/shrink) records
// witnesses that are no larger than the one they replace.
func (c *CampaignData) RecordFailure(key string, ft shrink.FailedTrace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedTraces[key] = ft
}

// SetFatalError records a fatal error and marks the campaign Finished.
func (c *CampaignData) SetFatalError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalErr = err
	c.status = Finished
}

// Read copies out a point-in-time Snapshot under a read lock. Observers
// must never retain a reference into CampaignData itself.
func (c *CampaignData) Read() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ft := make(map[string]shrink.FailedTrace, len(c.failedTraces))
	for k, v := range c.failedTraces {
		ft[k] = v
	}
	return Snapshot{
		RunID:          c.runID,
		Status:         c.status,
		CurrentRound:   c.currentRound,
		FailedTraces:   ft,
		PropertyLabels: append([]string(nil), c.propertyLabels...),
		FatalErr:       c.fatalErr,
	}
}

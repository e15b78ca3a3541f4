package service

import "sync"

// WeightState is the process-wide trust weight per agent. Reads take the
// shared lock; the read-modify-write of an aggregation round takes the
// exclusive lock, and no lock is ever held across a network call.
type WeightState struct {
	mu      sync.RWMutex
	weights map[string]float64
}

// NewWeightState initializes equal weights summing to 1 across the
// configured agents.
func NewWeightState(agentNames []string) *WeightState {
	weights := make(map[string]float64, len(agentNames))
	if len(agentNames) > 0 {
		share := 1.0 / float64(len(agentNames))
		for _, name := range agentNames {
			weights[name] = share
		}
	}
	return &WeightState{weights: weights}
}

// Load replaces the current weights with a persisted snapshot. Agents
// missing from the snapshot keep their current weight.
func (s *WeightState) Load(snapshot map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, weight := range snapshot {
		if _, ok := s.weights[name]; ok && weight > 0 {
			s.weights[name] = weight
		}
	}
}

// Snapshot returns a copy of the current weights for persistence by the
// caller.
func (s *WeightState) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.weights))
	for name, weight := range s.weights {
		out[name] = weight
	}
	return out
}

// update applies fn under the exclusive lock. fn receives the live map
// and mutates it in place.
func (s *WeightState) update(fn func(weights map[string]float64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.weights)
}

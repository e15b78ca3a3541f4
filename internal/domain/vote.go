package domain

import "fmt"

// PlaceholderConfidence is assigned to votes synthesized for agents that
// failed or timed out. Failed agents are never silently dropped.
const PlaceholderConfidence = 0.1

// VoteSource cites the authority paragraphs an agent relied on.
type VoteSource struct {
	AuthorityID string
	ParaIDs     []int
}

// AgentVote is the immutable output of one reasoning agent for one query.
type AgentVote struct {
	AgentName  string
	Reasoning  string
	Decision   string
	Sources    []VoteSource
	Confidence float64
	Err        string
}

// IsPlaceholder reports whether this vote stands in for a failed agent.
func (v AgentVote) IsPlaceholder() bool {
	return v.Err != ""
}

// NewPlaceholderVote converts an agent failure into a low-confidence vote
// value so the aggregator never sees a raised error.
func NewPlaceholderVote(agentName string, err error) AgentVote {
	return AgentVote{
		AgentName:  agentName,
		Reasoning:  fmt.Sprintf("agent unavailable: %v", err),
		Confidence: PlaceholderConfidence,
		Err:        err.Error(),
	}
}

// AggregationResult is the merged outcome of one voting round.
type AggregationResult struct {
	Answer        string
	Confidence    float64
	Aligned       []string
	WeightsBefore map[string]float64
	WeightsAfter  map[string]float64
	LowConsensus  bool
}

package service

import (
	"context"
	"sort"
	"strings"

	"github.com/nyayatech/nyaya/internal/domain"
)

const (
	// Multiplicative weight update factors. Weight mass moves from
	// repeatedly-misaligned agents to repeatedly-aligned ones over the
	// lifetime of the process; renormalization keeps the sum constant.
	weightGrowthFactor = 1.15
	weightDecayFactor  = 0.85

	// degenerateConfidence is the reported confidence when every agent
	// returned a placeholder vote.
	degenerateConfidence = 0.1
)

// Aggregator merges independent agent votes via confidence-weighted
// majority voting with multiplicative weight updates.
type Aggregator struct {
	state *WeightState
}

func NewAggregator(state *WeightState) *Aggregator {
	return &Aggregator{state: state}
}

// Aggregate merges one complete voting round. It never fails: degenerate
// input still produces an answer with confidence forced to the floor and
// the low-consensus marker set. No weight update is committed when ctx is
// already cancelled.
func (a *Aggregator) Aggregate(ctx context.Context, votes map[string]domain.AgentVote, query string) domain.AggregationResult {
	weightsBefore := a.state.Snapshot()

	if len(votes) == 0 {
		return domain.AggregationResult{
			Answer:        "no agent produced an answer for this query",
			Confidence:    degenerateConfidence,
			Aligned:       []string{},
			WeightsBefore: weightsBefore,
			WeightsAfter:  weightsBefore,
			LowConsensus:  true,
		}
	}

	aligned := alignVotes(votes, weightsBefore)
	alignedSet := make(map[string]struct{}, len(aligned))
	for _, name := range aligned {
		alignedSet[name] = struct{}{}
	}

	answer, confidence := mergeAligned(votes, aligned, weightsBefore)

	// Low consensus when the aligned cluster is a minority, or when the
	// round was entirely placeholder votes.
	allPlaceholder := true
	for _, vote := range votes {
		if !vote.IsPlaceholder() {
			allPlaceholder = false
			break
		}
	}
	lowConsensus := len(aligned)*2 <= len(votes) || allPlaceholder
	if len(aligned)*2 <= len(votes) {
		confidence *= float64(len(aligned)) / float64(len(votes))
	}
	if allPlaceholder || confidence < degenerateConfidence {
		confidence = degenerateConfidence
	}

	weightsAfter := weightsBefore
	if ctx.Err() == nil {
		weightsAfter = a.commitWeights(votes, alignedSet)
	}

	return domain.AggregationResult{
		Answer:        answer,
		Confidence:    confidence,
		Aligned:       aligned,
		WeightsBefore: weightsBefore,
		WeightsAfter:  weightsAfter,
		LowConsensus:  lowConsensus,
	}
}

// alignVotes clusters votes by decision label and returns the members of
// the majority cluster, sorted by agent name. Label ties break on higher
// summed weight*confidence, then on the lexicographically smaller label.
func alignVotes(votes map[string]domain.AgentVote, weights map[string]float64) []string {
	clusters := make(map[string][]string)
	mass := make(map[string]float64)
	for name, vote := range votes {
		label := voteLabel(vote)
		clusters[label] = append(clusters[label], name)
		mass[label] += weights[name] * vote.Confidence
	}

	labels := make([]string, 0, len(clusters))
	for label := range clusters {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	winner := labels[0]
	for _, label := range labels[1:] {
		switch {
		case len(clusters[label]) > len(clusters[winner]):
			winner = label
		case len(clusters[label]) == len(clusters[winner]) && mass[label] > mass[winner]:
			winner = label
		}
	}

	aligned := clusters[winner]
	sort.Strings(aligned)
	return aligned
}

// voteLabel is the clustering key for a vote: the agent's explicit
// decision when it emitted one, otherwise a keyword fingerprint of the
// head of its reasoning.
func voteLabel(vote domain.AgentVote) string {
	if decision := strings.ToLower(strings.TrimSpace(vote.Decision)); decision != "" {
		return decision
	}
	return reasoningFingerprint(vote.Reasoning)
}

// reasoningFingerprint reduces free-form reasoning to a stable comparison
// key: the sorted set of the first eight distinct non-stopword tokens.
func reasoningFingerprint(reasoning string) string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(reasoning)) {
		token = strings.Trim(token, ".,;:!?()\"'")
		if token == "" {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
		if len(tokens) == 8 {
			break
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// mergeAligned picks the answer from the aligned cluster: the vote with
// the highest weight*confidence blend coefficient, ties resolved by the
// higher individual confidence, then by agent name. The reported
// confidence is the weight-weighted mean of the aligned confidences.
func mergeAligned(votes map[string]domain.AgentVote, aligned []string, weights map[string]float64) (string, float64) {
	if len(aligned) == 0 {
		return "no agent produced an answer for this query", degenerateConfidence
	}

	bestName := aligned[0]
	bestBlend := -1.0
	weightSum := 0.0
	confidenceSum := 0.0
	for _, name := range aligned {
		vote := votes[name]
		weight := weights[name]
		blend := weight * vote.Confidence
		if blend > bestBlend || (blend == bestBlend && vote.Confidence > votes[bestName].Confidence) {
			bestName = name
			bestBlend = blend
		}
		weightSum += weight
		confidenceSum += weight * vote.Confidence
	}

	confidence := 0.0
	if weightSum > 0 {
		confidence = confidenceSum / weightSum
	}
	return votes[bestName].Reasoning, confidence
}

// commitWeights applies the multiplicative update inside the single
// critical section and renormalizes so the total weight mass is
// preserved exactly.
func (a *Aggregator) commitWeights(votes map[string]domain.AgentVote, aligned map[string]struct{}) map[string]float64 {
	var after map[string]float64
	a.state.update(func(weights map[string]float64) {
		totalBefore := 0.0
		for _, weight := range weights {
			totalBefore += weight
		}

		for name := range votes {
			if _, ok := weights[name]; !ok {
				continue
			}
			if _, ok := aligned[name]; ok {
				weights[name] *= weightGrowthFactor
			} else {
				weights[name] *= weightDecayFactor
			}
		}

		totalAfter := 0.0
		for _, weight := range weights {
			totalAfter += weight
		}
		if totalAfter > 0 {
			scale := totalBefore / totalAfter
			for name := range weights {
				weights[name] *= scale
			}
		}

		after = make(map[string]float64, len(weights))
		for name, weight := range weights {
			after[name] = weight
		}
	})
	return after
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nyayatech/nyaya/internal/domain"
)

// ReasoningAgent is the black-box contract every analysis unit satisfies.
// The reasoning inside an agent is opaque to this package.
type ReasoningAgent interface {
	Name() string
	Run(ctx context.Context, query string, packs []domain.Pack) (domain.AgentVote, error)
}

const defaultAgentTimeout = 45 * time.Second

// AgentRunner fans a query out to every configured agent concurrently
// and joins on all of them. Agent failures and timeouts are converted to
// placeholder votes at this boundary; the aggregator never sees an error.
type AgentRunner struct {
	agents  []ReasoningAgent
	timeout time.Duration
}

func NewAgentRunner(agents []ReasoningAgent, timeout time.Duration) *AgentRunner {
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	return &AgentRunner{agents: agents, timeout: timeout}
}

// AgentNames returns the configured agent names in registration order.
func (r *AgentRunner) AgentNames() []string {
	names := make([]string, len(r.agents))
	for i, agent := range r.agents {
		names[i] = agent.Name()
	}
	return names
}

// RunAll is the aggregation barrier: it returns only after every agent
// invocation has finished, succeeded or not, with exactly one vote per
// configured agent.
func (r *AgentRunner) RunAll(ctx context.Context, query string, packs []domain.Pack) map[string]domain.AgentVote {
	votes := make([]domain.AgentVote, len(r.agents))

	var wg sync.WaitGroup
	for i, agent := range r.agents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agentCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			vote, err := agent.Run(agentCtx, query, packs)
			if err != nil {
				votes[i] = domain.NewPlaceholderVote(agent.Name(), err)
				return
			}
			vote.AgentName = agent.Name()
			vote.Confidence = clampConfidence(vote.Confidence)
			votes[i] = vote
		}()
	}
	wg.Wait()

	out := make(map[string]domain.AgentVote, len(votes))
	for _, vote := range votes {
		if _, dup := out[vote.AgentName]; dup {
			// Duplicate names would silently drop a vote; make it loud.
			out[vote.AgentName+"-dup"] = vote
			continue
		}
		out[vote.AgentName] = vote
	}
	return out
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// PromptAgent is a ReasoningAgent backed by a chat model with a fixed
// analytical charter (issues, precedent, limitations, and so on).
type PromptAgent struct {
	name   string
	prompt string
	model  AgentModelClient
}

// AgentModelClient is the model call an agent makes internally.
type AgentModelClient interface {
	Reason(ctx context.Context, systemPrompt, query string, packs []domain.Pack) (domain.AgentVote, error)
}

func NewPromptAgent(name, systemPrompt string, model AgentModelClient) *PromptAgent {
	return &PromptAgent{name: name, prompt: systemPrompt, model: model}
}

func (a *PromptAgent) Name() string { return a.name }

func (a *PromptAgent) Run(ctx context.Context, query string, packs []domain.Pack) (domain.AgentVote, error) {
	if a.model == nil {
		return domain.AgentVote{}, fmt.Errorf("agent %s has no model client", a.name)
	}
	return a.model.Reason(ctx, a.prompt, query, packs)
}

// DefaultAgentCharters are the analysis units a stock deployment runs.
var DefaultAgentCharters = map[string]string{
	"issues":      "You identify the legal issues raised by the question and answer each against the supplied authorities. Cite authority ids and paragraph numbers for every proposition.",
	"precedent":   "You answer strictly from binding precedent in the supplied authorities, flagging any conflict between benches. Cite authority ids and paragraph numbers.",
	"limitations": "You examine limitation, maintainability and procedural bars relevant to the question before addressing the merits. Cite authority ids and paragraph numbers.",
}

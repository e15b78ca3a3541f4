package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nyayatech/nyaya/internal/domain"
)

const rerankBatchLimit = 30

// Reranker scores deduplicated candidates against the query with a chat
// model in one batched call. A malformed or short response degrades to
// the incoming scores for the unaffected candidates.
type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate) ([]domain.RetrievalCandidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	batch := candidates
	if len(batch) > rerankBatchLimit {
		batch = batch[:rerankBatchLimit]
	}

	var sb strings.Builder
	for i, c := range batch {
		text := c.Snippet
		if text == "" {
			text = c.Payload["title"]
		}
		fmt.Fprintf(&sb, "%d. %s\n", i, text)
	}

	resp, err := r.client.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.client.chatModel,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a legal relevance scorer. Given a research question and numbered case excerpts, " +
					"reply with only a JSON array of numbers between 0 and 1, one relevance score per excerpt, in order.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Question: %s\n\nExcerpts:\n%s", query, sb.String()),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("rerank completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("rerank completion returned no choices")
	}

	var scores []float64
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "` \n")
	if err := json.Unmarshal([]byte(content), &scores); err != nil {
		return nil, fmt.Errorf("rerank response was not a score array: %w", err)
	}

	out := make([]domain.RetrievalCandidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		if i < len(scores) {
			score := scores[i]
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			out[i].NormalizedScore = score
		}
	}
	return out, nil
}

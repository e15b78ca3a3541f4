package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nyayatech/nyaya/internal/domain"
)

const maxPackParagraphsPerPrompt = 6

// agentResponse is the JSON contract each reasoning agent's model call
// must satisfy.
type agentResponse struct {
	Reasoning  string  `json:"reasoning"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Sources    []struct {
		AuthorityID string `json:"authority_id"`
		ParaIDs     []int  `json:"para_ids"`
	} `json:"sources"`
}

// Reason runs one agent's model call: the agent charter as the system
// prompt, the retrieval packs as evidence, and a JSON vote back.
func (c *Client) Reason(ctx context.Context, systemPrompt, query string, packs []domain.Pack) (domain.AgentVote, error) {
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: systemPrompt + "\n\nRespond with a JSON object: " +
					`{"reasoning": string, "decision": short label for your conclusion, ` +
					`"confidence": number in [0,1], "sources": [{"authority_id": string, "para_ids": [int]}]}`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Question: %s\n\nAuthorities:\n%s", query, renderPacks(packs)),
			},
		},
	})
	if err != nil {
		return domain.AgentVote{}, fmt.Errorf("agent completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.AgentVote{}, fmt.Errorf("agent completion returned no choices")
	}

	var parsed agentResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return domain.AgentVote{}, fmt.Errorf("agent response was not valid JSON: %w", err)
	}

	vote := domain.AgentVote{
		Reasoning:  parsed.Reasoning,
		Decision:   parsed.Decision,
		Confidence: parsed.Confidence,
	}
	for _, source := range parsed.Sources {
		vote.Sources = append(vote.Sources, domain.VoteSource{
			AuthorityID: source.AuthorityID,
			ParaIDs:     source.ParaIDs,
		})
	}
	return vote, nil
}

// renderPacks flattens retrieval packs into the evidence block an agent
// reads. Paragraph text is truncated to keep the prompt bounded.
func renderPacks(packs []domain.Pack) string {
	var sb strings.Builder
	for _, pack := range packs {
		fmt.Fprintf(&sb, "[%s] %s (%s", pack.AuthorityID, pack.Title, pack.Court)
		if len(pack.Citations) > 0 {
			fmt.Fprintf(&sb, ", %s", strings.Join(pack.Citations, "; "))
		}
		sb.WriteString(")\n")
		count := 0
		for _, paragraph := range pack.Paragraphs {
			if paragraph.Text == "" {
				continue
			}
			fmt.Fprintf(&sb, "  para %d: %s\n", paragraph.ParaID, truncate(paragraph.Text, 500))
			count++
			if count == maxPackParagraphsPerPrompt {
				break
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}

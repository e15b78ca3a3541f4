package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

// Vote represents one agent's contribution to the answer.
type Vote struct {
	AgentName  string  `json:"agent_name"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Decision   string  `json:"decision,omitempty"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// AskResponse represents the ask API response.
type AskResponse struct {
	QueryID        string             `json:"query_id"`
	Answer         string             `json:"answer"`
	Confidence     float64            `json:"confidence"`
	Aligned        []string           `json:"aligned"`
	LowConsensus   bool               `json:"low_consensus"`
	Packs          []Pack             `json:"packs"`
	Votes          []Vote             `json:"votes"`
	Weights        map[string]float64 `json:"weights"`
	CommitmentRoot string             `json:"commitment_root"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a legal question",
		Long:  "Retrieves authorities, fans the question out to the reasoning agents, and prints the aggregated answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of packs to retrieve")

	return cmd
}

func runAsk(cmd *cobra.Command, query string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/ask", AskRequest{Query: query, Limit: limit})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)
	fmt.Println()
	fmt.Printf("Confidence: %.2f", askResp.Confidence)
	if askResp.LowConsensus {
		fmt.Print(" (low consensus)")
	}
	fmt.Println()
	if len(askResp.Aligned) > 0 {
		fmt.Printf("Aligned agents: %s\n", strings.Join(askResp.Aligned, ", "))
	}
	if len(askResp.Packs) > 0 {
		fmt.Println("\nAuthorities:")
		for i, pack := range askResp.Packs {
			fmt.Printf("%d. %s", i+1, pack.Title)
			if len(pack.Citations) > 0 {
				fmt.Printf(" (%s)", strings.Join(pack.Citations, "; "))
			}
			fmt.Println()
		}
	}
	fmt.Printf("\nCommitment: %s\n", askResp.CommitmentRoot)
	fmt.Printf("Query ID: %s\n", askResp.QueryID)

	return nil
}

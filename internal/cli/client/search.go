package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

// PackParagraph is one scored paragraph inside a result pack.
type PackParagraph struct {
	ParaID int     `json:"para_id"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Pack represents one retrieved authority.
type Pack struct {
	AuthorityID    string          `json:"authority_id"`
	Title          string          `json:"title"`
	Court          string          `json:"court"`
	Citations      []string        `json:"citations,omitempty"`
	Date           string          `json:"date,omitempty"`
	Paragraphs     []PackParagraph `json:"paragraphs,omitempty"`
	AggregateScore float64         `json:"aggregate_score"`
	Source         string          `json:"source"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Packs []Pack `json:"packs"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		limit  int
		courts []string
		judge  string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search authorities",
		Long:  "Runs the hybrid retrieval pipeline and prints ranked authority packs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], courts, judge, limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of packs")
	cmd.Flags().StringSliceVar(&courts, "court", nil, "Filter by court code (repeatable)")
	cmd.Flags().StringVar(&judge, "judge", "", "Filter by judge name")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, courts []string, judge string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	filters := map[string]any{}
	if len(courts) > 0 {
		filters["court"] = courts
	}
	if judge != "" {
		filters["judge"] = judge
	}

	req := SearchRequest{
		Query:   query,
		Limit:   limit,
		Filters: filters,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Packs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d authorities:\n\n", len(searchResp.Packs))
	for i, pack := range searchResp.Packs {
		fmt.Printf("%d. %s (%.2f) [%s]\n", i+1, pack.Title, pack.AggregateScore, pack.Source)
		if len(pack.Citations) > 0 {
			fmt.Printf("   %s\n", strings.Join(pack.Citations, "; "))
		}
		if len(pack.Paragraphs) > 0 && pack.Paragraphs[0].Text != "" {
			snippet := pack.Paragraphs[0].Text
			if len(snippet) > 100 {
				snippet = snippet[:97] + "..."
			}
			fmt.Printf("   %s\n", snippet)
		}
		fmt.Printf("   ID: %s\n", pack.AuthorityID)
		if i < len(searchResp.Packs)-1 {
			fmt.Println()
		}
	}

	return nil
}

package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// WeightsResponse represents the weights API response.
type WeightsResponse struct {
	Weights map[string]float64 `json:"weights"`
}

// WeightsCmd creates the weights command.
func WeightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Show agent trust weights",
		Long:  "Prints the current trust weight assigned to each reasoning agent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runWeights(cmd, outputJSON)
		},
	}
}

func runWeights(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/weights")
	if err != nil {
		return fmt.Errorf("weights failed: %w", err)
	}

	var weightsResp WeightsResponse
	if err := json.Unmarshal(resp.Data, &weightsResp); err != nil {
		return fmt.Errorf("failed to parse weights: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(weightsResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	names := make([]string, 0, len(weightsResp.Weights))
	for name := range weightsResp.Weights {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%-12s %.4f\n", name, weightsResp.Weights[name])
	}

	return nil
}

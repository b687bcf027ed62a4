package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

var (
	queryLimit     int
	queryJSON      bool
	queryBreakdown bool

	weightVector    float64
	weightDiversity float64
	weightRecency   float64
	weightGraph     float64
	weightFeedback  float64
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the tenant's index",
	Long: `Embeds the query text, retrieves candidates via approximate
nearest-neighbour search and reranks them with recency, graph and
feedback signals.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 10, "maximum number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().BoolVar(&queryBreakdown, "breakdown", false, "show per-signal score breakdowns")
	queryCmd.Flags().Float64Var(&weightVector, "w-vector", 0, "vector similarity weight")
	queryCmd.Flags().Float64Var(&weightDiversity, "w-diversity", 0, "diversity penalty weight")
	queryCmd.Flags().Float64Var(&weightRecency, "w-recency", 0, "recency weight")
	queryCmd.Flags().Float64Var(&weightGraph, "w-graph", 0, "graph centrality weight")
	queryCmd.Flags().Float64Var(&weightFeedback, "w-feedback", 0, "feedback weight")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	weights := domain.RerankWeights{
		Vector:    weightVector,
		Diversity: weightDiversity,
		Recency:   weightRecency,
		Graph:     weightGraph,
		Feedback:  weightFeedback,
	}
	if weights.IsZero() {
		weights = defaultWeights()
	}

	results, err := queryService.Query(context.Background(), tenant(), args[0], queryLimit, weights)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryJSON(cmd *cobra.Command, results []domain.RankedResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.RankedResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, res := range results {
		snippet := res.Chunk.Content
		if res.Chunk.Modality == domain.ModalityImage {
			snippet = res.Chunk.ImageURI
			if res.Chunk.Caption != "" {
				snippet += " (" + res.Chunk.Caption + ")"
			}
		}
		if len(snippet) > 120 {
			snippet = snippet[:117] + "..."
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, res.Chunk.ID, res.Score)
		cmd.Printf("      %s\n", snippet)
		if queryBreakdown {
			b := res.Breakdown
			cmd.Printf("      vector=%.3f diversity=%.3f recency=%.3f graph=%.3f feedback=%.3f\n",
				b.Vector, b.Diversity, b.Recency, b.Graph, b.Feedback)
		}
		cmd.Println()
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smartkb/internal/domain"
	"smartkb/internal/usecase"
)

var (
	queryTopK     int
	queryJSON     bool
	queryStrategy string
	queryVerbose  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge base",
	Long: `Search for relevant chunks. Results must pass both the vector
similarity and keyword match gates before they are ranked.

Examples:
  smartkb query "password reset flow"
  smartkb query "智能手机价格" --top-k 10 --json
  smartkb query "billing" --strategy relevance`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringVar(&queryStrategy, "strategy", "", "ranking strategy: weighted or relevance")
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "show per-signal score breakdown")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryStrategy != "" {
		cfg.Search.Strategy = queryStrategy
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}

	topK := cfg.Search.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	query := strings.Join(args, " ")
	results, err := engine.Search(ctx, query, topK)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyCorpus):
			fmt.Println("The knowledge base is empty. Run 'smartkb add' first.")
			return nil
		case errors.Is(err, domain.ErrInvalidQuery):
			fmt.Printf("Invalid query: %v\n", err)
			return nil
		default:
			return fmt.Errorf("search failed: %w", err)
		}
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results passed the relevance gates.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), query)
	for i, r := range results {
		source := r.Metadata.Source()
		if source == "" {
			source = "(unknown)"
		}
		fmt.Printf("--- [%d] %s (score: %.3f) ---\n", i+1, source, r.Score)
		if queryVerbose {
			printBreakdown(r.Breakdown)
		}
		fmt.Println(truncateRunes(r.Text, 500))
		fmt.Println()
	}
	return nil
}

// truncateRunes shortens s to max runes so the cut never lands inside
// a multi-byte character.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func printBreakdown(b domain.ScoreBreakdown) {
	fmt.Printf("    vector=%.3f keyword=%.3f fused=%.3f",
		b.VectorSimilarity, b.KeywordMatch, b.WeightedScore)
	if cfg.Search.Strategy == string(usecase.StrategyRelevance) {
		fmt.Printf(" importance=%.3f coherence=%.3f", b.KeywordImportance, b.SemanticCoherence)
	}
	fmt.Println()
}

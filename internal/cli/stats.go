package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	stats := engine.Statistics()

	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Knowledge base: %s\n", cfg.Store.Path)
	fmt.Printf("  Sources:   %d\n", stats.TotalDocuments)
	fmt.Printf("  Chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("  Dimension: %d\n", stats.VectorDimension)
	fmt.Printf("  Index:     %d vectors\n", stats.IndexSize)

	if len(stats.Sources) > 0 {
		sources := make([]string, 0, len(stats.Sources))
		bySource := make(map[string]int, len(stats.Sources))
		for _, s := range stats.Sources {
			sources = append(sources, s.Source)
			bySource[s.Source] = s.Chunks
		}
		sort.Strings(sources)
		fmt.Println("  Per source:")
		for _, s := range sources {
			fmt.Printf("    %-40s %d chunks\n", s, bySource[s])
		}
	}
	return nil
}

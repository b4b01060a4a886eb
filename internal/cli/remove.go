package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	removeSource string
	removeChunks []int
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove documents from the knowledge base",
	Long: `Remove all chunks belonging to a source, or specific chunks by
position.

Examples:
  smartkb remove --source docs/billing.md
  smartkb remove --chunks 3,7,12`,
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeSource, "source", "s", "", "remove every chunk from this source")
	removeCmd.Flags().IntSliceVar(&removeChunks, "chunks", nil, "remove chunks at these positions")
}

func runRemove(cmd *cobra.Command, args []string) error {
	if removeSource == "" && len(removeChunks) == 0 {
		return fmt.Errorf("provide --source or --chunks")
	}
	if removeSource != "" && len(removeChunks) > 0 {
		return fmt.Errorf("--source and --chunks are mutually exclusive")
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}
	before := engine.Statistics().TotalChunks

	var ok bool
	if removeSource != "" {
		ok = engine.DeleteDocument(removeSource)
	} else {
		ok = engine.DeleteChunks(removeChunks)
	}
	if !ok {
		return fmt.Errorf("removal failed: invalid chunk positions")
	}

	if err := saveEngine(engine); err != nil {
		return err
	}

	after := engine.Statistics().TotalChunks
	fmt.Printf("Removed %d chunks. %d remain.\n", before-after, after)
	return nil
}

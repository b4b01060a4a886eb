package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <position> <text>",
	Short: "Replace the text of a chunk",
	Long: `Replace the text of the chunk at the given position. The chunk is
re-embedded and the index rebuilt; metadata is preserved.

Example:
  smartkb update 4 "The meeting moved to 4pm"`,
	Args: cobra.ExactArgs(2),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q: %w", args[0], err)
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}

	if !engine.UpdateChunk(ctx, position, args[1]) {
		return fmt.Errorf("update failed: position out of range or empty text")
	}
	if err := saveEngine(engine); err != nil {
		return err
	}

	fmt.Printf("Updated chunk %d.\n", position)
	return nil
}

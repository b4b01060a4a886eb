package cli

import (
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartkb/internal/adapter/chunker"
	"smartkb/internal/adapter/fs"
	"smartkb/internal/domain"
	"smartkb/internal/port"
)

var (
	addText   string
	addSource string
)

var addCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Add documents to the knowledge base",
	Long: `Add documents from a file or directory, or a single text via --text.
Files are chunked by paragraph before embedding; each chunk records its
originating file as the source.

Examples:
  smartkb add ./docs
  smartkb add notes.md
  smartkb add --text "The meeting is at 3pm" --source calendar`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addText, "text", "t", "", "add this text instead of reading files")
	addCmd.Flags().StringVarP(&addSource, "source", "s", "", "source label for --text (default \"inline\")")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addText == "" && len(args) == 0 {
		return fmt.Errorf("provide a path or --text")
	}

	ctx, cancel := commandContext(0)
	defer cancel()

	engine, err := openEngine(ctx)
	if err != nil {
		return err
	}

	var texts []string
	var metadata []domain.Metadata

	if addText != "" {
		source := addSource
		if source == "" {
			source = "inline"
		}
		texts = append(texts, addText)
		metadata = append(metadata, domain.Metadata{
			domain.SourceKey: domain.StringValue(source),
		})
	} else {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}

		walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
		docs, err := walker.Walk(root)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", root, err)
		}
		if len(docs) == 0 {
			fmt.Println("No matching files found.")
			return nil
		}

		var chk port.Chunker = chunker.NewText(cfg.Ingest.ChunkRunes, cfg.Ingest.OverlapRunes)

		bar := progressbar.NewOptions(len(docs),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Reading"),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)

		skipped := 0
		for _, doc := range docs {
			content, isText, err := fs.ReadText(doc.Path)
			if err != nil {
				logger.Warn("failed to read file", zap.String("path", doc.Path), zap.Error(err))
				skipped++
				bar.Add(1)
				continue
			}
			if !isText {
				skipped++
				bar.Add(1)
				continue
			}
			for i, piece := range chk.Chunk(content) {
				texts = append(texts, piece)
				metadata = append(metadata, domain.Metadata{
					domain.SourceKey: domain.StringValue(doc.Source),
					"chunk":          domain.NumberValue(float64(i)),
				})
			}
			bar.Add(1)
		}
		if skipped > 0 {
			fmt.Printf("Skipped %d unreadable or binary files.\n", skipped)
		}
	}

	if len(texts) == 0 {
		fmt.Println("Nothing to add.")
		return nil
	}

	fmt.Printf("Embedding %d chunks...\n", len(texts))
	if !engine.Add(ctx, texts, metadata) {
		return fmt.Errorf("failed to add documents")
	}
	if err := saveEngine(engine); err != nil {
		return err
	}

	stats := engine.Statistics()
	fmt.Printf("Added %d chunks. Knowledge base now holds %d chunks from %d sources.\n",
		len(texts), stats.TotalChunks, stats.TotalDocuments)
	return nil
}

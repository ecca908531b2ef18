package cli

import (
	"github.com/spf13/cobra"

	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/epub"
	"github.com/narrata-labs/narrata-cli/internal/core/services"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <book.epub>",
	Short: "Show the chapters a conversion would narrate",
	Long: `Parses an EPUB and prints the book metadata and the chapters that
would be narrated, with their text and chunk sizes. No synthesis is
performed, so chapter detection can be checked before committing to a
long conversion.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	src, err := epub.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	extractor := services.NewExtractor(services.WithMinChapterChars(cfg.Convert.MinChapterChars))
	book, err := extractor.Extract(cmd.Context(), src)
	if err != nil {
		return err
	}

	cmd.Printf("Title:    %s\n", book.Title)
	if book.Author != "" {
		cmd.Printf("Author:   %s\n", book.Author)
	}
	if book.Language != "" {
		cmd.Printf("Language: %s\n", book.Language)
	}
	cmd.Printf("Chapters: %d\n\n", len(book.Chapters))

	chunker := services.NewChunker(services.WithChunkSize(cfg.Convert.ChunkSize))
	totalChars, totalChunks := 0, 0
	for _, ch := range book.Chapters {
		chunks, err := chunker.Split(ch)
		if err != nil {
			return err
		}
		cmd.Printf("%4d  %-40s  %7d chars  %3d chunks\n", ch.Index+1, truncate(ch.Title, 40), len(ch.Text), len(chunks))
		totalChars += len(ch.Text)
		totalChunks += len(chunks)
	}
	cmd.Printf("\nTotal: %d chars in %d chunks\n", totalChars, totalChunks)
	return nil
}

// truncate shortens s to at most n runes for table display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

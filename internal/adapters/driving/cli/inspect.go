package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/storage/sqlite"
	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/hebrew"
)

var inspectOutDir string

var indexInspectCmd = &cobra.Command{
	Use:   "inspect [word]",
	Short: "Decode one word's stored postings",
	Long: `Looks up a word in the postings store and prints its decoded offset
lists per document. The word is normalized the same way the indexer
normalizes it, so pointed input finds unpointed entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexInspect,
}

func init() {
	indexInspectCmd.Flags().StringVar(&inspectOutDir, "outDir", "index", "index artifact directory")
	indexCmd.AddCommand(indexInspectCmd)
}

func runIndexInspect(cmd *cobra.Command, args []string) error {
	word := hebrew.Normalize(args[0])

	store, err := sqlite.NewStore(filepath.Join(inspectOutDir, storeFileName))
	if err != nil {
		return fmt.Errorf("opening postings store: %w", err)
	}
	defer store.Close()

	total, err := store.WordCount(cmd.Context())
	if err != nil {
		return fmt.Errorf("counting words: %w", err)
	}

	postings, err := store.Lookup(cmd.Context(), word)
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("%q not found (%d words indexed)\n", word, total)
		return nil
	}
	if err != nil {
		return fmt.Errorf("looking up %q: %w", word, err)
	}

	docIDs := make([]string, 0, len(postings))
	for docID := range postings {
		docIDs = append(docIDs, docID)
	}
	sort.Strings(docIDs)

	cmd.Printf("%q found in %d documents (%d words indexed)\n", word, len(docIDs), total)
	for _, docID := range docIDs {
		offsets := postings[docID]
		cmd.Printf("  %s: %d occurrences at %v\n", docID, len(offsets), offsets)
	}
	return nil
}

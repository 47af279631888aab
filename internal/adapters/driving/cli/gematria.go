package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sifria-labs/sifria-cli/internal/gematria"
)

var (
	gematriaBooksPath  string
	gematriaMethod     string
	gematriaKolel      bool
	gematriaWholeVerse bool
	gematriaMaxWords   int
	gematriaMaxResults int
	gematriaJSON       bool
)

var gematriaCmd = &cobra.Command{
	Use:   "gematria [value]",
	Short: "Search text files for phrases with a given gematria value",
	Long: `Scans every .txt file under --booksPath for verses or phrases whose
letter values sum to the given number. Methods: regular, small,
finalLetters. --kolel adds the phrase's word count to its value.`,
	Args: cobra.ExactArgs(1),
	RunE: runGematria,
}

func init() {
	gematriaCmd.Flags().StringVar(&gematriaBooksPath, "booksPath", "books", "folder of text files to search")
	gematriaCmd.Flags().StringVar(&gematriaMethod, "method", string(gematria.MethodRegular), "letter-value method: regular, small or finalLetters")
	gematriaCmd.Flags().BoolVar(&gematriaKolel, "kolel", false, "add the word count to each phrase's value")
	gematriaCmd.Flags().BoolVar(&gematriaWholeVerse, "wholeVerse", false, "match whole lines only")
	gematriaCmd.Flags().IntVar(&gematriaMaxWords, "maxPhraseWords", gematria.DefaultMaxPhraseWords, "longest phrase window, in words")
	gematriaCmd.Flags().IntVar(&gematriaMaxResults, "maxResults", gematria.DefaultMaxResults, "result cap")
	gematriaCmd.Flags().BoolVar(&gematriaJSON, "json", false, "output results as JSON")

	rootCmd.AddCommand(gematriaCmd)
}

func runGematria(cmd *cobra.Command, args []string) error {
	target, err := strconv.Atoi(args[0])
	if err != nil || target <= 0 {
		return fmt.Errorf("value must be a positive number, got %q", args[0])
	}

	results, err := gematria.NewEngine().Search(cmd.Context(), gematriaBooksPath, target, gematria.Options{
		Method:         gematria.Method(gematriaMethod),
		UseKolel:       gematriaKolel,
		WholeVerseOnly: gematriaWholeVerse,
		MaxPhraseWords: gematriaMaxWords,
		MaxResults:     gematriaMaxResults,
	})
	if err != nil {
		return fmt.Errorf("gematria search failed: %w", err)
	}

	if gematriaJSON {
		raw, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		cmd.Println(string(raw))
		return nil
	}

	if len(results) == 0 {
		cmd.Printf("No phrases with value %d found.\n", target)
		return nil
	}

	cmd.Printf("Found %d phrases with value %d:\n\n", len(results), target)
	for _, r := range results {
		if r.Path != "" {
			cmd.Printf("%s (%s", r.File, r.Path)
		} else {
			cmd.Printf("%s (line %d", r.File, r.Line)
		}
		if r.VerseNumber != "" {
			cmd.Printf(", פסוק %s", r.VerseNumber)
		}
		cmd.Println(")")
		if r.ContextBefore != "" || r.ContextAfter != "" {
			cmd.Printf("  ...%s [%s] %s...\n", r.ContextBefore, r.Text, r.ContextAfter)
		} else {
			cmd.Printf("  %s\n", r.Text)
		}
	}
	return nil
}

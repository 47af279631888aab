package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/checkpoint"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/meili"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/sink"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/storage/otzaria"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/storage/sqlite"
	"github.com/sifria-labs/sifria-cli/internal/connectors/filesystem"
	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driving"
	"github.com/sifria-labs/sifria-cli/internal/core/services"
	"github.com/sifria-labs/sifria-cli/internal/extractors/pdf"
	"github.com/sifria-labs/sifria-cli/internal/extractors/plaintext"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// Output artifact names under outDir.
const (
	storeFileName      = "posmap.sqlite"
	chunkLogFileName   = "meili-docs.jsonl"
	bufferedLogName    = "meili-docs.json"
	checkpointFileName = "checkpoint.json"
	lockFileName       = ".sifria.lock"
)

var (
	buildBooksPath  string
	buildOutDir     string
	buildChunkSize  int
	buildSkipPDF    bool
	buildFlushEvery int
	buildMaxFiles   int
	buildReset      bool
	buildClean      bool
	buildBuffered   bool
	buildOtzariaDB  string
	buildMeili      bool
	buildMeiliHost  string
	buildMeiliKey   string
	buildMeiliIndex string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the local index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the library into chunk documents and a postings store",
	Long: `Walks the corpus (a folder of TXT/PDF files, or an Otzaria seforim.db
with --otzariaDB), slices each text into chunks and merges token
postings into a compressed SQLite store. Progress is checkpointed after
every unit, so an interrupted run resumes where it stopped.`,
	RunE: runIndexBuild,
}

func init() {
	indexBuildCmd.Flags().StringVar(&buildBooksPath, "booksPath", "books", "folder of TXT/PDF files to index")
	indexBuildCmd.Flags().StringVar(&buildOutDir, "outDir", "index", "output directory for index artifacts")
	indexBuildCmd.Flags().IntVar(&buildChunkSize, "chunkSize", services.DefaultChunkSize, "chunk window size in characters")
	indexBuildCmd.Flags().BoolVar(&buildSkipPDF, "skipPdf", false, "index only plain-text files")
	indexBuildCmd.Flags().IntVar(&buildFlushEvery, "flushEvery", services.DefaultFlushEvery, "units between postings flushes")
	indexBuildCmd.Flags().IntVar(&buildMaxFiles, "maxFiles", 0, "limit the run to the first N units")
	indexBuildCmd.Flags().BoolVar(&buildReset, "reset", false, "discard checkpoint and chunk log before running")
	indexBuildCmd.Flags().BoolVar(&buildClean, "clean", false, "delete the checkpoint after a completed run")
	indexBuildCmd.Flags().BoolVar(&buildBuffered, "buffered", false, "buffer chunks in memory, write one JSON array")
	indexBuildCmd.Flags().StringVar(&buildOtzariaDB, "otzariaDB", "", "index an Otzaria seforim.db instead of files")
	indexBuildCmd.Flags().BoolVar(&buildMeili, "meili", false, "publish chunks to Meilisearch after the build")
	indexBuildCmd.Flags().StringVar(&buildMeiliHost, "meiliHost", "", "Meilisearch host (default from config or "+meili.DefaultHost+")")
	indexBuildCmd.Flags().StringVar(&buildMeiliKey, "meiliKey", "", "Meilisearch API key")
	indexBuildCmd.Flags().StringVar(&buildMeiliIndex, "meiliIndex", "", "Meilisearch index name (default from config or seforim)")

	indexCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	if err := os.MkdirAll(buildOutDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	chunkLogPath := filepath.Join(buildOutDir, chunkLogFileName)
	if buildBuffered {
		chunkLogPath = filepath.Join(buildOutDir, bufferedLogName)
	}
	checkpointPath := filepath.Join(buildOutDir, checkpointFileName)

	if buildReset {
		// The store goes too: leaving it would double-merge postings
		// on the rerun. Its WAL siblings go with it, or a stale WAL
		// from a killed run would replay into the fresh database.
		storePath := filepath.Join(buildOutDir, storeFileName)
		for _, path := range []string{checkpointPath, chunkLogPath, storePath, storePath + "-wal", storePath + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("resetting %s: %w", path, err)
			}
		}
		logger.Info("reset: checkpoint, chunk log and postings store removed")
	}

	source, err := buildSource()
	if err != nil {
		return err
	}
	defer source.Close()

	chunkSink, err := buildSink(chunkLogPath)
	if err != nil {
		return err
	}
	defer chunkSink.Close()

	store, err := sqlite.NewStore(filepath.Join(buildOutDir, storeFileName))
	if err != nil {
		return fmt.Errorf("opening postings store: %w", err)
	}
	defer store.Close()

	session := services.NewPipelineSession(
		source,
		chunkSink,
		store,
		checkpoint.NewStore(checkpointPath),
		services.SessionOptions{
			ChunkSize:  buildChunkSize,
			FlushEvery: buildFlushEvery,
			MaxUnits:   buildMaxFiles,
			LockPath:   filepath.Join(buildOutDir, lockFileName),
		},
		func(format string, args ...any) { cmd.Printf(format+"\n", args...) },
	)

	ctx, stop := interruptContext(cmd)
	defer stop()

	summary, err := session.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrAlreadyComplete):
		cmd.Println("Index is already complete. Use --reset to rebuild.")
		return nil
	case errors.Is(err, domain.ErrInterrupted):
		printSummary(cmd, summary)
		cmd.Println("Interrupted. Run again to resume.")
		return nil
	case err != nil:
		return err
	}

	// The buffered sink writes its array on Close; close before
	// publishing so the log is on disk.
	if err := chunkSink.Close(); err != nil {
		return fmt.Errorf("closing chunk log: %w", err)
	}

	printSummary(cmd, summary)

	if buildClean {
		if err := os.Remove(checkpointPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("cleaning checkpoint: %w", err)
		}
		cmd.Println("Checkpoint removed (--clean).")
	}

	if buildMeili {
		return publishChunkLog(cmd, chunkLogPath, buildMeiliHost, buildMeiliKey, buildMeiliIndex)
	}
	return nil
}

// buildSource selects the corpus source: an Otzaria database when
// --otzariaDB is set, otherwise a filesystem walk with the extractor
// chain.
func buildSource() (driven.CorpusSource, error) {
	if buildOtzariaDB != "" {
		source, err := otzaria.New(buildOtzariaDB)
		if err != nil {
			return nil, fmt.Errorf("opening otzaria library: %w", err)
		}
		return source, nil
	}

	extractors := []driven.Extractor{plaintext.New()}
	opts := []filesystem.Option{}
	if buildSkipPDF {
		opts = append(opts, filesystem.WithSkipPDF())
	} else {
		extractors = append(extractors, pdf.New())
	}
	return filesystem.New(buildBooksPath, extractors, opts...), nil
}

func buildSink(path string) (driven.ChunkSink, error) {
	if buildBuffered {
		s, err := sink.NewBufferedSink(path)
		if err != nil {
			return nil, fmt.Errorf("opening chunk log: %w", err)
		}
		return s, nil
	}
	s, err := sink.NewJSONLSink(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk log: %w", err)
	}
	return s, nil
}

// interruptContext cancels on the first SIGINT/SIGTERM; a second
// signal terminates immediately, accepting loss of the current unit.
func interruptContext(cmd *cobra.Command) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signals
		cmd.Println("\nInterrupt received, finishing current unit...")
		cancel()
		<-signals
		cmd.Println("Forced exit.")
		os.Exit(1)
	}()

	return ctx, func() {
		signal.Stop(signals)
		cancel()
	}
}

func printSummary(cmd *cobra.Command, summary *driving.BuildSummary) {
	if summary == nil {
		return
	}
	cmd.Printf("Processed %d/%d units (%d skipped, %d failed) in %s\n",
		summary.UnitsProcessed, summary.UnitsTotal, summary.UnitsSkipped, summary.UnitsFailed,
		summary.Elapsed.Round(10*time.Millisecond))
	cmd.Printf("Chunks: %d  Flushes: %d\n", summary.ChunkCount, summary.Flushes)
	cmd.Printf("Artifacts: %s, %s, %s\n", summary.StorePath, summary.ChunkLogPath, summary.CheckpointPath)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/meili"
	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/sink"
	"github.com/sifria-labs/sifria-cli/internal/core/services"
)

var (
	publishChunkLogFlag string
	publishMeiliHost    string
	publishMeiliKey     string
	publishMeiliIndex   string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload an existing chunk log to Meilisearch",
	Long: `Reads a chunk log written by "sifria index build" and uploads every
document to Meilisearch, creating and configuring the index first.
Re-publishing is safe: chunk ids are stable, so documents overwrite
themselves.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishChunkLogFlag, "chunkLog", "index/"+chunkLogFileName, "chunk log file to upload")
	publishCmd.Flags().StringVar(&publishMeiliHost, "meiliHost", "", "Meilisearch host (default from config or "+meili.DefaultHost+")")
	publishCmd.Flags().StringVar(&publishMeiliKey, "meiliKey", "", "Meilisearch API key")
	publishCmd.Flags().StringVar(&publishMeiliIndex, "meiliIndex", "", "Meilisearch index name (default from config or seforim)")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	return publishChunkLog(cmd, publishChunkLogFlag, publishMeiliHost, publishMeiliKey, publishMeiliIndex)
}

// publishChunkLog uploads the chunk log, resolving unset engine
// parameters from the config store.
func publishChunkLog(cmd *cobra.Command, chunkLogPath, host, key, index string) error {
	if host == "" {
		host = configString("meili.host", meili.DefaultHost)
	}
	if key == "" {
		key = configString("meili.apiKey", "")
	}
	if index == "" {
		index = configString("meili.index", "seforim")
	}

	cmd.Printf("Publishing %s to %s (index %q)...\n", chunkLogPath, host, index)

	publisher := services.NewPublishService(meili.NewClient(host, key, index), sink.NewFileReader())
	summary, err := publisher.Publish(cmd.Context(), chunkLogPath)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	cmd.Printf("Published %d documents in %d batches.\n", summary.Documents, summary.Batches)
	return nil
}

// Package cli wires the cobra command tree: index build/inspect,
// publish, gematria and version. Commands resolve their defaults from
// the TOML config store; flags always win.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sifria-labs/sifria-cli/internal/adapters/driven/config/file"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// configStore provides persisted flag defaults. Replaceable in tests.
var configStore driven.ConfigStore

var rootCmd = &cobra.Command{
	Use:   "sifria",
	Short: "Offline indexing pipeline for a Hebrew-text library",
	Long: `Sifria builds a compressed positional index plus search-ready chunk
documents from a library of Hebrew texts (TXT/PDF files or an Otzaria
seforim.db), resumably, and can publish the chunks to a Meilisearch
instance.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig opens the config store once; a broken config file is
// reported once and ignored so it never blocks a run.
func loadConfig() driven.ConfigStore {
	if configStore == nil {
		store, err := file.NewConfigStore("")
		if err != nil {
			logger.Warn("loading config: %v", err)
			return nil
		}
		configStore = store
	}
	return configStore
}

// configString returns the stored value for key, or fallback when the
// store is unavailable or the key is unset.
func configString(key, fallback string) string {
	store := loadConfig()
	if store == nil {
		return fallback
	}
	if val := store.GetString(key); val != "" {
		return val
	}
	return fallback
}

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pdfrag/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdfrag",
	Short: "Build a searchable vector index from a directory of PDFs",
	Long: `pdfrag extracts text and tables from PDF files, splits the text into
overlapping semantic chunks, embeds each chunk, and writes everything into a
persistent vector store for retrieval-augmented question answering.

Example usage:
  pdfrag index ./knowledge_base_pdfs   # Index a directory of PDFs
  pdfrag stats                         # Show what the store holds`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(".")
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pdfrag.yaml)")
}

func GetConfig() *config.Config {
	return cfg
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))
}

package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pdfrag/config"
	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/embedding"
	"pdfrag/internal/adapter/extractor"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/adapter/parser"
	"pdfrag/internal/adapter/store"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
	"pdfrag/internal/usecase"
)

var (
	flagStorePath  string
	flagCollection string
	flagChunkSize  int
	flagOverlap    int
	flagBatchSize  int
	flagProvider   string
	flagModel      string
)

var indexCmd = &cobra.Command{
	Use:   "index [pdf-dir]",
	Short: "Index a directory of PDFs into the vector store",
	Long: `Index every PDF in the given directory. The store is reset first, so after
a complete run it reflects exactly this input set. A document or batch that
fails is logged and skipped; the run continues.

Examples:
  pdfrag index ./docs                          # defaults: 800/200 chunks, batches of 100
  pdfrag index ./docs --chunk-size 600         # smaller chunks
  pdfrag index ./docs --provider mock          # no embedding provider needed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagStorePath, "store-path", "", "vector store output directory")
	indexCmd.Flags().StringVar(&flagCollection, "collection", "", "collection name")
	indexCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "target chunk size in characters")
	indexCmd.Flags().IntVar(&flagOverlap, "chunk-overlap", 0, "overlap between chunks in characters")
	indexCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "embedding batch size")
	indexCmd.Flags().StringVar(&flagProvider, "provider", "", "embedding provider (openai, ollama, mock)")
	indexCmd.Flags().StringVar(&flagModel, "model", "", "embedding model name")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyIndexFlags(cfg, args)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger()

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	st := store.NewBoltStore(cfg.Store.Path, embedder.Dimension())
	defer st.Close()

	chk := chunker.NewSentenceChunker(cfg.Chunking.Size, cfg.Chunking.Overlap, nil)
	ext := extractor.New(parser.NewPDFParser(), chk, log)

	uc := usecase.NewIndexUseCase(fs.NewScanner(cfg.Source.Pattern), ext, embedder, st, log, usecase.Options{
		Collection:   cfg.Store.Collection,
		BatchSize:    cfg.Embedding.BatchSize,
		EmbedTimeout: cfg.EmbedTimeout(),
	})

	// Interrupts take effect at the next batch boundary, leaving a clean
	// prefix of the run in the store.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Indexing %s into %s (collection %q, model %s)\n",
		cfg.Source.Dir, cfg.Store.Path, cfg.Store.Collection, embedder.ModelName())

	var bar *progressbar.ProgressBar
	progress := func(processed, total int, current string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(processed)
		if current != "" {
			bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", current))
		}
	}

	summary, err := uc.Index(ctx, cfg.Source.Dir, progress)
	if err != nil {
		if errors.Is(err, domain.ErrNoDocuments) {
			return err
		}
		// A cancelled run still reports what it managed to write.
		fmt.Printf("\nRun interrupted: %v\n", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Documents found:   %d\n", summary.DocumentsFound)
	fmt.Printf("  Documents indexed: %d\n", summary.DocumentsIndexed)
	fmt.Printf("  Documents failed:  %d\n", summary.DocumentsFailed)
	fmt.Printf("  Chunks written:    %d\n", summary.ChunksWritten)
	fmt.Printf("  Batches failed:    %d\n", summary.BatchesFailed)
	fmt.Printf("\nStore location: %s\n", cfg.Store.Path)

	return nil
}

func applyIndexFlags(cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Source.Dir = args[0]
	}
	if flagStorePath != "" {
		cfg.Store.Path = flagStorePath
	}
	if flagCollection != "" {
		cfg.Store.Collection = flagCollection
	}
	if flagChunkSize > 0 {
		cfg.Chunking.Size = flagChunkSize
	}
	if flagOverlap > 0 {
		cfg.Chunking.Overlap = flagOverlap
	}
	if flagBatchSize > 0 {
		cfg.Embedding.BatchSize = flagBatchSize
	}
	if flagProvider != "" {
		cfg.Embedding.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Embedding.Model = flagModel
	}
}

// buildEmbedder creates the configured embedding provider.
func buildEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

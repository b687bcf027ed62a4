// Package cli implements the cobra command surface of the recall binary.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eaas-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/eaas-labs/recall-cli/internal/adapters/driven/fetch"
	"github.com/eaas-labs/recall-cli/internal/adapters/driven/inference"
	"github.com/eaas-labs/recall-cli/internal/adapters/driven/parser/plaintext"
	"github.com/eaas-labs/recall-cli/internal/adapters/driven/storage/sqlite"
	"github.com/eaas-labs/recall-cli/internal/chunker"
	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driving"
	"github.com/eaas-labs/recall-cli/internal/core/services"
	"github.com/eaas-labs/recall-cli/internal/encoder/image"
	"github.com/eaas-labs/recall-cli/internal/encoder/text"
	"github.com/eaas-labs/recall-cli/internal/index/hnsw"
	"github.com/eaas-labs/recall-cli/internal/logger"
	"github.com/eaas-labs/recall-cli/internal/ner"
)

// Package-level state shared by the subcommands. Populated by
// ensureServices on first use; tests substitute mocks directly.
var (
	verboseFlag bool
	configPath  string
	dataDir     string
	tenantFlag  string

	cfg              file.Config
	ingestionService driving.IngestionService
	queryService     driving.QueryService
	graphService     *services.GraphService
	docStore         driven.DocumentStore
	indexRegistry    *hnsw.Registry
	store            *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Multi-tenant multimodal retrieval engine",
	Long: `Recall ingests documents, raw text and images into per-tenant
vector indexes and answers queries with hybrid-ranked results combining
similarity, recency, graph centrality and feedback signals.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.recall/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.recall/data)")
	rootCmd.PersistentFlags().StringVarP(&tenantFlag, "tenant", "t", "", "tenant id (default from config)")
}

// Execute runs the root command.
func Execute() error {
	defer shutdown()
	return rootCmd.Execute()
}

// tenant resolves the effective tenant id: flag, then config, then
// "default".
func tenant() string {
	if tenantFlag != "" {
		return tenantFlag
	}
	if cfg.Tenant != "" {
		return cfg.Tenant
	}
	return "default"
}

// ensureServices wires the full service stack on first use. Commands
// that already have mocks injected (tests) skip the wiring.
func ensureServices() error {
	if ingestionService != nil && queryService != nil {
		return nil
	}

	path := configPath
	if path == "" {
		var err error
		if path, err = file.DefaultPath(); err != nil {
			return err
		}
	}
	var err error
	if cfg, err = file.Load(path); err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = cfg.DataDir
	}

	if store, err = sqlite.NewStore(dataDir); err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	docStore = store.DocumentStore()

	resolvedDataDir := filepath.Dir(store.Path())
	indexRegistry = hnsw.NewRegistry(resolvedDataDir, hnsw.Config{})

	vectorStore := services.NewVectorStore(docStore, indexRegistry)
	graphService = services.NewGraphService(store.GraphStore())

	textModel := inference.NewTextModel(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.TextModel,
		Size:    cfg.Inference.HiddenSize,
	})
	vocabPath := cfg.Inference.VocabPath
	if vocabPath == "" {
		vocabPath = filepath.Join(resolvedDataDir, "vocab.txt")
	}
	tokenizer, err := text.NewTokenizer(vocabPath, text.DefaultMaxSeqLen)
	if err != nil {
		return fmt.Errorf("loading vocabulary: %w", err)
	}
	textEncoder := text.NewEncoder(tokenizer, textModel)

	visionModel := inference.NewVisionModel(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.VisionModel,
		Size:    cfg.Inference.OutputSize,
	})
	width, height := cfg.Inference.ImageWidth, cfg.Inference.ImageHeight
	if width == 0 {
		width = 224
	}
	if height == 0 {
		height = 224
	}
	imageEncoder := image.NewEncoder(visionModel, width, height)

	ingestionService = services.NewIngestionService(services.IngestionConfig{
		DocStore:     docStore,
		VectorStore:  vectorStore,
		Graph:        graphService,
		Parser:       plaintext.NewParser(),
		Fetcher:      fetch.NewFetcher(fetch.Config{}),
		TextEncoder:  textEncoder,
		ImageEncoder: imageEncoder,
		Extractor:    ner.New(),
		Splitter:     chunker.New(chunker.WithMaxChars(cfg.Chunker.MaxChars)),
		ImageWidth:   width,
		ImageHeight:  height,
	})
	queryService = services.NewQueryService(docStore, vectorStore, graphService,
		services.NewReranker(), textEncoder)
	return nil
}

// defaultWeights converts the config rerank section, falling back to
// the built-in defaults.
func defaultWeights() domain.RerankWeights {
	w := cfg.Rerank.Weights()
	if w.IsZero() {
		return domain.DefaultRerankWeights()
	}
	return w
}

// shutdown flushes dirty indexes and closes the store.
func shutdown() {
	if indexRegistry != nil {
		if err := indexRegistry.FlushAll(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing indexes: %v\n", err)
		}
	}
	if store != nil {
		store.Close()
	}
}

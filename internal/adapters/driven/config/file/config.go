// Package file loads and saves the TOML configuration file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// Config is the on-disk configuration, stored at ~/.recall/config.toml.
type Config struct {
	// DataDir holds the SQLite database and index files.
	DataDir string `toml:"data_dir"`

	// Tenant is the default tenant id for commands that omit --tenant.
	Tenant string `toml:"tenant"`

	// Inference configures the model server adapters.
	Inference InferenceConfig `toml:"inference"`

	// Chunker configures the sentence chunker.
	Chunker ChunkerConfig `toml:"chunker"`

	// Rerank holds the hybrid scoring weights.
	Rerank RerankConfig `toml:"rerank"`
}

// InferenceConfig configures the text and vision model clients.
type InferenceConfig struct {
	BaseURL     string `toml:"base_url"`
	TextModel   string `toml:"text_model"`
	VisionModel string `toml:"vision_model"`
	HiddenSize  int    `toml:"hidden_size"`
	OutputSize  int    `toml:"output_size"`
	VocabPath   string `toml:"vocab_path"`
	ImageWidth  int    `toml:"image_width"`
	ImageHeight int    `toml:"image_height"`
}

// ChunkerConfig configures the sentence chunker.
type ChunkerConfig struct {
	MaxChars int `toml:"max_chars"`
}

// RerankConfig holds the hybrid scoring weights.
type RerankConfig struct {
	Vector    float64 `toml:"vector"`
	Diversity float64 `toml:"diversity"`
	Recency   float64 `toml:"recency"`
	Graph     float64 `toml:"graph"`
	Feedback  float64 `toml:"feedback"`
}

// Weights converts the config section into domain rerank weights.
func (c RerankConfig) Weights() domain.RerankWeights {
	return domain.RerankWeights{
		Vector:    c.Vector,
		Diversity: c.Diversity,
		Recency:   c.Recency,
		Graph:     c.Graph,
		Feedback:  c.Feedback,
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	w := domain.DefaultRerankWeights()
	return Config{
		Tenant: "default",
		Chunker: ChunkerConfig{
			MaxChars: 2048,
		},
		Rerank: RerankConfig{
			Vector:    w.Vector,
			Diversity: w.Diversity,
			Recency:   w.Recency,
			Graph:     w.Graph,
			Feedback:  w.Feedback,
		},
	}
}

// DefaultPath returns ~/.recall/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "config.toml"), nil
}

// Load reads the config at path, layering it over the defaults. A
// missing file yields the defaults without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to path with restricted permissions.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

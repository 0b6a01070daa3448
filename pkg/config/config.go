// Package config loads and validates codemap configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Dir is the project-local directory holding config and snapshots.
const Dir = ".codemap"

// Config holds all configuration options for codemap.
type Config struct {
	Project    ProjectConfig   `koanf:"project"`
	Analysis   AnalysisConfig  `koanf:"analysis"`
	Thresholds ThresholdConfig `koanf:"thresholds"`
	Weights    WeightConfig    `koanf:"weights"`
	Insights   InsightConfig   `koanf:"insights"`
	Exclude    ExcludeConfig   `koanf:"exclude"`
}

// ProjectConfig names the project.
type ProjectConfig struct {
	Name string `koanf:"name"`
}

// AnalysisConfig controls scan and ranking breadth.
type AnalysisConfig struct {
	// DefaultAnalysisFiles is the top-K size for entry-point ranking.
	DefaultAnalysisFiles int `koanf:"default_analysis_files"`
	// MaxFileSize in bytes; larger files are skipped (0 = no limit).
	MaxFileSize int64 `koanf:"max_file_size"`
}

// ThresholdConfig defines metric thresholds.
type ThresholdConfig struct {
	CyclomaticComplexity int     `koanf:"cyclomatic_complexity"`
	CognitiveComplexity  int     `koanf:"cognitive_complexity"`
	MaxFunctionLines     int     `koanf:"max_function_lines"`
	MinPatternConfidence float64 `koanf:"min_pattern_confidence"`
}

// WeightConfig exposes the metric and ranking weight constants.
type WeightConfig struct {
	// Maintainability index components.
	Complexity     float64 `koanf:"complexity"`
	CommentDensity float64 `koanf:"comment_density"`
	FunctionLength float64 `koanf:"function_length"`

	// Entry-point ranking components.
	Centrality        float64 `koanf:"centrality"`
	NameBonus         float64 `koanf:"name_bonus"`
	InverseComplexity float64 `koanf:"inverse_complexity"`
	Recency           float64 `koanf:"recency"`
	ExportedSymbols   float64 `koanf:"exported_symbols"`
}

// InsightConfig controls the optional AI collaborator.
type InsightConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Provider       string `koanf:"provider"`
	Model          string `koanf:"model"`
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	MaxTokens      int    `koanf:"max_tokens"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// ExcludeConfig defines file exclusion patterns (gitignore syntax).
// Extensions are matched against the file suffix, leading dot included.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns"`
	Dirs       []string `koanf:"dirs"`
	Extensions []string `koanf:"extensions"`
	Gitignore  bool     `koanf:"gitignore"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			DefaultAnalysisFiles: 10,
			MaxFileSize:          1 << 20,
		},
		Thresholds: ThresholdConfig{
			CyclomaticComplexity: 10,
			CognitiveComplexity:  15,
			MaxFunctionLines:     80,
			MinPatternConfidence: 0.3,
		},
		Weights: WeightConfig{
			Complexity:        1.0,
			CommentDensity:    1.0,
			FunctionLength:    1.0,
			Centrality:        0.25,
			NameBonus:         0.35,
			InverseComplexity: 0.10,
			Recency:           0.15,
			ExportedSymbols:   0.15,
		},
		Insights: InsightConfig{
			Enabled:        false,
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			MaxTokens:      2048,
			TimeoutSeconds: 20,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				Dir,
				"dist",
				"build",
				"target",
				"__pycache__",
				".venv",
			},
			Gitignore: true,
		},
	}
}

// Path returns the config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, Dir, "config.toml")
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the project config if present, otherwise defaults.
func LoadOrDefault(root string) *Config {
	path := Path(root)
	if _, err := os.Stat(path); err == nil {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate checks injected values. Config errors are fatal at startup.
func (c *Config) Validate() error {
	if c.Analysis.DefaultAnalysisFiles <= 0 {
		return fmt.Errorf("analysis.default_analysis_files must be positive (got %d)", c.Analysis.DefaultAnalysisFiles)
	}
	if c.Analysis.MaxFileSize < 0 {
		return fmt.Errorf("analysis.max_file_size must not be negative (got %d)", c.Analysis.MaxFileSize)
	}
	if c.Thresholds.MinPatternConfidence < 0 || c.Thresholds.MinPatternConfidence > 1 {
		return fmt.Errorf("thresholds.min_pattern_confidence must be within [0,1] (got %g)", c.Thresholds.MinPatternConfidence)
	}
	if c.Insights.Enabled && c.Insights.TimeoutSeconds <= 0 {
		return fmt.Errorf("insights.timeout_seconds must be positive when insights are enabled")
	}
	return nil
}

// ResolveAPIKey returns the insight API key, preferring the environment.
func (c *Config) ResolveAPIKey() string {
	for _, env := range []string{"CODEMAP_API_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return c.Insights.APIKey
}

// Hash returns a stable digest of the options that affect analysis
// output, so a snapshot records which configuration produced it.
func (c *Config) Hash() string {
	h := xxhash.New()
	parts := []string{
		strconv.Itoa(c.Analysis.DefaultAnalysisFiles),
		strconv.FormatInt(c.Analysis.MaxFileSize, 10),
		strconv.Itoa(c.Thresholds.CyclomaticComplexity),
		strconv.Itoa(c.Thresholds.CognitiveComplexity),
		strconv.Itoa(c.Thresholds.MaxFunctionLines),
		strconv.FormatFloat(c.Thresholds.MinPatternConfidence, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.Complexity, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.CommentDensity, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.FunctionLength, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.Centrality, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.NameBonus, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.InverseComplexity, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.Recency, 'g', -1, 64),
		strconv.FormatFloat(c.Weights.ExportedSymbols, 'g', -1, 64),
		strings.Join(c.Exclude.Patterns, ","),
		strings.Join(c.Exclude.Dirs, ","),
		strings.Join(c.Exclude.Extensions, ","),
	}
	h.WriteString(strings.Join(parts, "|"))
	return strconv.FormatUint(h.Sum64(), 16)
}

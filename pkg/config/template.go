package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// configTemplate is the default config written by `codemap init`.
// Kept as a template rather than marshaled so the file ships with
// comments explaining each recognized option.
const configTemplate = `# codemap project configuration

[project]
name = %q

[analysis]
# Number of top-ranked files offered as entry points.
default_analysis_files = %d
# Files above this size (bytes) are skipped. 0 disables the limit.
max_file_size = %d

[thresholds]
cyclomatic_complexity = %d
cognitive_complexity = %d
max_function_lines = %d
# Patterns below this confidence fall back to "Unclassified".
min_pattern_confidence = %s

[weights]
# Maintainability index components.
complexity = %s
comment_density = %s
function_length = %s
# Entry-point ranking components.
centrality = %s
name_bonus = %s
inverse_complexity = %s
recency = %s
exported_symbols = %s

[insights]
# Optional AI re-ranking; analysis never depends on it.
enabled = %t
provider = %q
model = %q
# Prefer CODEMAP_API_KEY or OPENAI_API_KEY in the environment.
api_key = %q
base_url = %q
max_tokens = %d
timeout_seconds = %d

[exclude]
patterns = [%s]
dirs = [%s]
# File extensions to skip entirely, leading dot included (e.g. ".gen.go").
extensions = [%s]
gitignore = %t
`

// Save writes the config to the project's .codemap/config.toml,
// creating the directory if needed.
func Save(root string, c *Config) error {
	dir := filepath.Join(root, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	body := fmt.Sprintf(configTemplate,
		c.Project.Name,
		c.Analysis.DefaultAnalysisFiles,
		c.Analysis.MaxFileSize,
		c.Thresholds.CyclomaticComplexity,
		c.Thresholds.CognitiveComplexity,
		c.Thresholds.MaxFunctionLines,
		f(c.Thresholds.MinPatternConfidence),
		f(c.Weights.Complexity),
		f(c.Weights.CommentDensity),
		f(c.Weights.FunctionLength),
		f(c.Weights.Centrality),
		f(c.Weights.NameBonus),
		f(c.Weights.InverseComplexity),
		f(c.Weights.Recency),
		f(c.Weights.ExportedSymbols),
		c.Insights.Enabled,
		c.Insights.Provider,
		c.Insights.Model,
		c.Insights.APIKey,
		c.Insights.BaseURL,
		c.Insights.MaxTokens,
		c.Insights.TimeoutSeconds,
		quoteList(c.Exclude.Patterns),
		quoteList(c.Exclude.Dirs),
		quoteList(c.Exclude.Extensions),
		c.Exclude.Gitignore,
	)

	return os.WriteFile(Path(root), []byte(body), 0o644)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

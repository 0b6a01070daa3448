package models

import "time"

// TechCategory classifies a tech-stack entry.
type TechCategory string

const (
	TechLanguage   TechCategory = "language"
	TechFramework  TechCategory = "framework"
	TechDatabase   TechCategory = "database"
	TechTool       TechCategory = "tool"
	TechDeployment TechCategory = "deployment"
)

// String returns the string representation.
func (c TechCategory) String() string {
	return string(c)
}

// TechStackEntry is a detected technology with its supporting evidence.
// Entries are deduplicated by name.
type TechStackEntry struct {
	Category TechCategory `json:"category"`
	Name     string       `json:"name"`
	Evidence []string     `json:"evidence"`
}

// ArchitecturePattern is a heuristic classification of the codebase
// layout. Confidence is always within [0,1].
type ArchitecturePattern struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}

// UnclassifiedPattern is the fallback label when no pattern clears the
// confidence threshold.
const UnclassifiedPattern = "Unclassified"

// Architecture holds the primary detected pattern and its alternates.
type Architecture struct {
	Primary    ArchitecturePattern   `json:"primary"`
	Alternates []ArchitecturePattern `json:"alternates,omitempty"`
}

// ScoreBreakdown itemizes the heuristic entry-point score components.
// Each component is normalized to [0,1] before weighting.
type ScoreBreakdown struct {
	Centrality        float64 `json:"centrality"`
	NameBonus         float64 `json:"name_bonus"`
	InverseComplexity float64 `json:"inverse_complexity"`
	Recency           float64 `json:"recency"`
	ExportedSymbols   float64 `json:"exported_symbols"`
}

// EntryPoint is a file recommended as an onboarding starting point.
type EntryPoint struct {
	Path      string         `json:"path"`
	Rank      int            `json:"rank"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Rationale string         `json:"rationale"`
}

// DiffSummary counts function-level changes between two snapshots.
type DiffSummary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Moved     int `json:"moved"`
	Unchanged int `json:"unchanged"`
}

// Total returns the number of functions accounted for by the diff.
func (d DiffSummary) Total() int {
	return d.Added + d.Removed + d.Modified + d.Moved + d.Unchanged
}

// ProjectMetrics aggregates quality metrics for one snapshot.
type ProjectMetrics struct {
	TotalFiles      int     `json:"total_files"`
	TotalFunctions  int     `json:"total_functions"`
	AvgCyclomatic   float64 `json:"avg_cyclomatic"`
	AvgCognitive    float64 `json:"avg_cognitive"`
	CommentDensity  float64 `json:"comment_density"`
	Maintainability float64 `json:"maintainability"`
	DebtPercent     float64 `json:"debt_percent"`
}

// Report aggregates everything derived from one snapshot.
type Report struct {
	Project      Project          `json:"project"`
	GeneratedAt  time.Time        `json:"generated_at"`
	SnapshotVer  int              `json:"snapshot_version"`
	Architecture Architecture     `json:"architecture"`
	TechStack    []TechStackEntry `json:"tech_stack"`
	EntryPoints  []EntryPoint     `json:"entry_points"`
	Metrics      ProjectMetrics   `json:"metrics"`
	DiffSummary  DiffSummary      `json:"diff_summary"`
	Brief        string           `json:"brief,omitempty"`
	Degraded     bool             `json:"degraded,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// RunMetrics is one entry in the analysis run history.
type RunMetrics struct {
	Timestamp      time.Time `json:"timestamp"`
	TotalFiles     int       `json:"total_files"`
	TotalFunctions int       `json:"total_functions"`
	Added          int       `json:"added"`
	Modified       int       `json:"modified"`
	Removed        int       `json:"removed"`
	Moved          int       `json:"moved"`
	Unchanged      int       `json:"unchanged"`
	ReuseRatio     float64   `json:"reuse_ratio"`
	DurationMS     int64     `json:"duration_ms"`
	InsightUsed    bool      `json:"insight_used"`
}

// ComputeReuseRatio returns unchanged / (unchanged + modified), or 1
// when nothing was eligible for reuse.
func ComputeReuseRatio(unchanged, modified int) float64 {
	denom := unchanged + modified
	if denom == 0 {
		return 1
	}
	return float64(unchanged) / float64(denom)
}

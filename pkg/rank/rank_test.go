package rank

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/models"
)

func codeFile(path string, imports ...string) models.File {
	lang := "go"
	switch filepath.Ext(path) {
	case ".py":
		lang = "python"
	case ".ts":
		lang = "typescript"
	}
	return models.File{
		Path:     path,
		Language: lang,
		Imports:  imports,
		Functions: []models.Function{
			{Name: "Run", File: path, Metrics: models.FunctionMetrics{Cyclomatic: 2, Cognitive: 2, Lines: 10}},
		},
	}
}

func materialize(t *testing.T, dir string, files []models.File) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRank_MainFileWins(t *testing.T) {
	dir := t.TempDir()
	files := []models.File{
		codeFile("cmd/app/main.go", "example.com/app/internal/core"),
		codeFile("internal/core/core.go"),
		codeFile("internal/util/strings.go"),
	}
	materialize(t, dir, files)

	eps := New(config.DefaultConfig()).Rank(dir, files)
	if len(eps) != 3 {
		t.Fatalf("len(eps) = %d, want 3", len(eps))
	}
	if eps[0].Path != "cmd/app/main.go" {
		t.Errorf("top entry = %q, want cmd/app/main.go", eps[0].Path)
	}
	if eps[0].Rank != 1 || eps[1].Rank != 2 {
		t.Errorf("ranks = %d, %d", eps[0].Rank, eps[1].Rank)
	}
}

func TestRank_CentralityRewardsImportedFiles(t *testing.T) {
	dir := t.TempDir()
	files := []models.File{
		codeFile("hub.py"),
		codeFile("a.py", "hub"),
		codeFile("b.py", "hub"),
		codeFile("c.py", "hub"),
	}
	materialize(t, dir, files)

	eps := New(config.DefaultConfig()).Rank(dir, files)
	byPath := make(map[string]models.EntryPoint)
	for _, ep := range eps {
		byPath[ep.Path] = ep
	}

	hub := byPath["hub.py"]
	if hub.Breakdown.Centrality != 1.0 {
		t.Errorf("hub centrality = %g, want 1.0 (normalized max)", hub.Breakdown.Centrality)
	}
	if byPath["a.py"].Breakdown.Centrality >= hub.Breakdown.Centrality {
		t.Error("leaf file centrality should be below the hub's")
	}
}

func TestRank_TopKHonored(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Analysis.DefaultAnalysisFiles = 2

	files := []models.File{
		codeFile("a.go"), codeFile("b.go"), codeFile("c.go"), codeFile("d.go"),
	}
	materialize(t, dir, files)

	eps := New(cfg).Rank(dir, files)
	if len(eps) != 2 {
		t.Errorf("len(eps) = %d, want 2", len(eps))
	}
}

func TestRank_Deterministic(t *testing.T) {
	dir := t.TempDir()
	files := []models.File{
		codeFile("z.go"), codeFile("a.go"), codeFile("m.go"),
	}
	materialize(t, dir, files)

	r := New(config.DefaultConfig())
	first := r.Rank(dir, files)
	for i := 0; i < 5; i++ {
		if again := r.Rank(dir, files); !reflect.DeepEqual(first, again) {
			t.Fatal("ranking differs across identical runs")
		}
	}

	// Ties break lexically.
	if first[0].Path != "a.go" {
		t.Errorf("tie-break winner = %q, want a.go", first[0].Path)
	}
}

func TestRank_SkipsRemovedAndNonCode(t *testing.T) {
	dir := t.TempDir()
	gone := codeFile("gone.go")
	gone.Status = models.StatusRemoved
	files := []models.File{
		codeFile("a.go"),
		gone,
		{Path: "README.md", Language: "markdown"},
	}
	materialize(t, dir, files)

	eps := New(config.DefaultConfig()).Rank(dir, files)
	for _, ep := range eps {
		if ep.Path == "gone.go" || ep.Path == "README.md" {
			t.Errorf("ranked ineligible file %s", ep.Path)
		}
	}
}

func TestRank_BreakdownNormalized(t *testing.T) {
	dir := t.TempDir()
	files := []models.File{
		codeFile("cmd/app/main.go", "example.com/app/internal/core"),
		codeFile("internal/core/core.go"),
	}
	materialize(t, dir, files)

	eps := New(config.DefaultConfig()).Rank(dir, files)
	for _, ep := range eps {
		b := ep.Breakdown
		for name, v := range map[string]float64{
			"centrality":         b.Centrality,
			"name_bonus":         b.NameBonus,
			"inverse_complexity": b.InverseComplexity,
			"recency":            b.Recency,
			"exported_symbols":   b.ExportedSymbols,
		} {
			if v < 0 || v > 1 {
				t.Errorf("%s: %s = %g out of [0,1]", ep.Path, name, v)
			}
		}
		if ep.Rationale == "" {
			t.Errorf("%s: empty rationale", ep.Path)
		}
	}
}

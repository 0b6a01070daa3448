package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oakmap/codemap/internal/store"
	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/insight"
	"github.com/oakmap/codemap/pkg/models"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T) (string, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.Open(dir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	write(t, dir, "main.go", `package main

import "fmt"

func main() {
	fmt.Println(greet("world"))
}
`)
	write(t, dir, "greet.go", `package main

import "fmt"

func greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}
`)
	return dir, st
}

func run(t *testing.T, dir string, st *store.Store, cfg *config.Config) *Result {
	t.Helper()
	result, err := New(dir, cfg, st).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result
}

func TestRun_FirstSnapshot(t *testing.T) {
	dir, st := newProject(t)
	result := run(t, dir, st, nil)

	if result.Snapshot.Version != 1 {
		t.Errorf("Version = %d, want 1", result.Snapshot.Version)
	}
	if result.Summary.Added != 2 {
		t.Errorf("Added = %d, want 2 (%+v)", result.Summary.Added, result.Summary)
	}
	if result.Report.Metrics.TotalFunctions != 2 {
		t.Errorf("TotalFunctions = %d, want 2", result.Report.Metrics.TotalFunctions)
	}
	if len(result.Report.EntryPoints) == 0 {
		t.Fatal("no entry points ranked")
	}
	if result.Report.EntryPoints[0].Path != "main.go" {
		t.Errorf("top entry = %q, want main.go", result.Report.EntryPoints[0].Path)
	}

	// Everything must be on disk.
	if _, err := st.Latest(); err != nil {
		t.Errorf("snapshot not persisted: %v", err)
	}
	if _, err := st.LoadReport(); err != nil {
		t.Errorf("report not persisted: %v", err)
	}
	history, _ := st.History()
	if len(history) != 1 {
		t.Errorf("run history entries = %d, want 1", len(history))
	}
}

func TestRun_IdempotentWithoutChanges(t *testing.T) {
	dir, st := newProject(t)
	run(t, dir, st, nil)
	second := run(t, dir, st, nil)

	if second.Snapshot.Version != 2 {
		t.Errorf("Version = %d, want 2", second.Snapshot.Version)
	}
	sum := second.Summary
	if sum.Added+sum.Modified+sum.Removed+sum.Moved != 0 {
		t.Errorf("no-op run reported changes: %+v", sum)
	}
	if sum.Unchanged != 2 {
		t.Errorf("Unchanged = %d, want 2", sum.Unchanged)
	}
	if second.Run.ReuseRatio != 1 {
		t.Errorf("ReuseRatio = %g, want 1", second.Run.ReuseRatio)
	}
}

func TestRun_IdempotentWithDocFiles(t *testing.T) {
	dir, st := newProject(t)
	write(t, dir, "README.md", "# demo\n\nA greeting program.\n")

	run(t, dir, st, nil)
	second := run(t, dir, st, nil)

	for _, w := range second.Snapshot.Warnings {
		if strings.Contains(w, "rebuilding") {
			t.Fatalf("doc file broke snapshot comparability: %q", w)
		}
	}
	if second.Summary.Unchanged != 2 {
		t.Errorf("Unchanged = %d, want 2 (%+v)", second.Summary.Unchanged, second.Summary)
	}
	if second.Summary.Added != 0 {
		t.Errorf("Added = %d, want 0", second.Summary.Added)
	}
}

func TestRun_DetectsFunctionChange(t *testing.T) {
	dir, st := newProject(t)
	run(t, dir, st, nil)

	write(t, dir, "greet.go", `package main

import "fmt"

func greet(name string) string {
	return fmt.Sprintf("hi there %s", name)
}
`)
	result := run(t, dir, st, nil)

	if result.Summary.Modified != 1 {
		t.Errorf("Modified = %d, want 1 (%+v)", result.Summary.Modified, result.Summary)
	}
	if result.Summary.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", result.Summary.Unchanged)
	}
}

func TestRun_DetectsFileRenameAsMove(t *testing.T) {
	dir, st := newProject(t)
	run(t, dir, st, nil)

	if err := os.Rename(filepath.Join(dir, "greet.go"), filepath.Join(dir, "salute.go")); err != nil {
		t.Fatal(err)
	}
	result := run(t, dir, st, nil)

	if result.Summary.Moved != 1 {
		t.Errorf("Moved = %d, want 1 (%+v)", result.Summary.Moved, result.Summary)
	}
	if result.Summary.Added != 0 || result.Summary.Removed != 0 {
		t.Errorf("rename produced add/remove: %+v", result.Summary)
	}
}

func TestRun_InsightsDisabledNeverConsulted(t *testing.T) {
	dir, st := newProject(t)

	called := false
	cfg := config.DefaultConfig() // Insights.Enabled is false
	eng := New(dir, cfg, st).WithInsight(rankerFunc(func(ctx context.Context, req *insight.Request) (*insight.Response, error) {
		called = true
		return nil, insight.ErrUnavailable
	}))

	result, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if called {
		t.Error("collaborator consulted while disabled")
	}
	if result.Report.Degraded {
		t.Error("report degraded without insight attempt")
	}
}

func TestRun_InsightFailureDegrades(t *testing.T) {
	dir, st := newProject(t)

	cfg := config.DefaultConfig()
	cfg.Insights.Enabled = true
	eng := New(dir, cfg, st).WithInsight(rankerFunc(func(ctx context.Context, req *insight.Request) (*insight.Response, error) {
		return nil, insight.ErrUnavailable
	}))

	result, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("insight failure must not fail the run: %v", err)
	}
	if !result.Report.Degraded {
		t.Error("report not marked degraded")
	}
	if result.Run.InsightUsed {
		t.Error("InsightUsed = true after failure")
	}
	if len(result.Report.EntryPoints) == 0 {
		t.Error("heuristic entry points lost")
	}
}

func TestRun_InsightReordersEntryPoints(t *testing.T) {
	dir, st := newProject(t)

	cfg := config.DefaultConfig()
	cfg.Insights.Enabled = true
	eng := New(dir, cfg, st).WithInsight(rankerFunc(func(ctx context.Context, req *insight.Request) (*insight.Response, error) {
		if len(req.Candidates) == 0 {
			return nil, errors.New("no candidates offered")
		}
		last := req.Candidates[len(req.Candidates)-1]
		return &insight.Response{
			Brief:    "A greeting demo.",
			Rankings: []insight.Ranking{{Path: last.Path, Rank: 1, Reason: "start here"}},
		}, nil
	}))

	result, err := eng.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Run.InsightUsed {
		t.Error("InsightUsed = false")
	}
	if result.Report.Brief != "A greeting demo." {
		t.Errorf("Brief = %q", result.Report.Brief)
	}
	eps := result.Report.EntryPoints
	if eps[0].Rationale != "start here" {
		t.Errorf("top rationale = %q, want collaborator's reason", eps[0].Rationale)
	}
	for i, ep := range eps {
		if ep.Rank != i+1 {
			t.Errorf("rank %d at position %d", ep.Rank, i)
		}
	}
}

func TestRun_ExtractorDriftRebuildsCleanly(t *testing.T) {
	dir, st := newProject(t)
	first := run(t, dir, st, nil)

	// Simulate a snapshot from an older extractor.
	snap, err := st.Latest()
	if err != nil {
		t.Fatal(err)
	}
	snap.ExtractorVersion = first.Snapshot.ExtractorVersion - 1
	if err := st.Save(snap); err != nil {
		t.Fatal(err)
	}

	second := run(t, dir, st, nil)
	if second.Snapshot.Version != 2 {
		t.Errorf("Version = %d, want 2", second.Snapshot.Version)
	}
	if second.Summary.Added != 2 {
		t.Errorf("rebuild should re-add everything: %+v", second.Summary)
	}
	if len(second.Snapshot.Warnings) == 0 {
		t.Error("rebuild happened silently, want a warning")
	}
}

type rankerFunc func(ctx context.Context, req *insight.Request) (*insight.Response, error)

func (f rankerFunc) Rank(ctx context.Context, req *insight.Request) (*insight.Response, error) {
	return f(ctx, req)
}

func TestRun_SnapshotStampedWithProject(t *testing.T) {
	dir, st := newProject(t)
	cfg := config.DefaultConfig()
	cfg.Project.Name = "demo-project"

	result := run(t, dir, st, cfg)
	if result.Snapshot.Project.Name != "demo-project" {
		t.Errorf("project name = %q", result.Snapshot.Project.Name)
	}
	if result.Snapshot.Project.ConfigHash != cfg.Hash() {
		t.Error("config hash not recorded")
	}
	if result.Snapshot.ExtractorVersion == 0 {
		t.Error("extractor version not recorded")
	}
	var zero models.Snapshot
	if result.Snapshot.CreatedAt == zero.CreatedAt {
		t.Error("created_at not set")
	}
}

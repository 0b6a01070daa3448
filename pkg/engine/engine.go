// Package engine orchestrates a full analysis run: scan, extract,
// merge against the previous snapshot, compute metrics, detect the
// stack and architecture, rank entry points, and persist the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/oakmap/codemap/internal/scanner"
	"github.com/oakmap/codemap/internal/store"
	"github.com/oakmap/codemap/pkg/archdetect"
	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/diff"
	"github.com/oakmap/codemap/pkg/extract"
	"github.com/oakmap/codemap/pkg/insight"
	"github.com/oakmap/codemap/pkg/metrics"
	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/rank"
	"github.com/oakmap/codemap/pkg/techstack"
)

// Phase is one stage of an analysis run, in execution order.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseScanning        Phase = "scanning"
	PhaseExtracting      Phase = "extracting"
	PhaseMerging         Phase = "merging"
	PhaseMetrics         Phase = "metrics"
	PhaseRanking         Phase = "ranking"
	PhaseAwaitingInsight Phase = "awaiting-insight"
	PhasePersisted       Phase = "persisted"
)

// Observer receives phase transitions and per-file extraction ticks.
// Either callback may be nil.
type Observer struct {
	OnPhase func(phase Phase, total int)
	OnFile  func()
}

func (o *Observer) phase(p Phase, total int) {
	if o != nil && o.OnPhase != nil {
		o.OnPhase(p, total)
	}
}

func (o *Observer) file() {
	if o != nil && o.OnFile != nil {
		o.OnFile()
	}
}

// Result is everything one run produced.
type Result struct {
	Snapshot *models.Snapshot
	Report   *models.Report
	Summary  models.DiffSummary
	Run      models.RunMetrics
}

// Engine runs the analysis pipeline for one project.
type Engine struct {
	root    string
	cfg     *config.Config
	store   *store.Store
	insight insight.Ranker
}

// New creates an engine rooted at the project directory. A nil config
// falls back to defaults.
func New(root string, cfg *config.Config, st *store.Store) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Engine{root: root, cfg: cfg, store: st}
}

// WithInsight attaches the optional AI collaborator. Insight failure
// degrades the report; it never fails the run.
func (e *Engine) WithInsight(r insight.Ranker) *Engine {
	e.insight = r
	return e
}

// Run executes a full analysis. Scan errors on the root are fatal;
// everything downstream degrades per file or per feature and surfaces
// as report warnings.
func (e *Engine) Run(ctx context.Context, obs *Observer) (*Result, error) {
	started := time.Now()

	obs.phase(PhaseScanning, 0)
	scan, err := scanner.New(e.cfg).Scan(e.root)
	if err != nil {
		return nil, err
	}

	obs.phase(PhaseExtracting, len(scan.Files))
	files, warnings, err := extract.New().Run(ctx, scan, obs.file)
	if err != nil {
		return nil, err
	}
	for _, sk := range scan.Skipped {
		warnings = append(warnings, fmt.Sprintf("skipped %s: %s", sk.Path, sk.Reason))
	}

	obs.phase(PhaseMerging, 0)
	prev, prevWarnings := e.loadPrevious()
	warnings = append(warnings, prevWarnings...)

	baseVersion := 0
	if prev != nil {
		baseVersion = prev.Version
	} else if versions, err := e.store.Versions(); err == nil && len(versions) > 0 {
		// Comparability was lost but numbering continues.
		baseVersion = versions[len(versions)-1]
	}

	snap, summary := diff.Apply(prev, files)
	snap.Version = baseVersion + 1
	snap.ExtractorVersion = extract.EffectiveVersion()
	snap.Project = models.Project{
		Root:       scan.Root,
		Name:       e.projectName(scan.Root),
		ConfigHash: e.cfg.Hash(),
	}
	snap.Warnings = warnings

	obs.phase(PhaseMetrics, 0)
	projMetrics := metrics.Compute(snap.Files, e.cfg)
	stack := techstack.Detect(scan.Root, snap.Files)
	arch := archdetect.Detect(snap.Files, stack, e.cfg.Thresholds.MinPatternConfidence)

	obs.phase(PhaseRanking, 0)
	entryPoints := rank.New(e.cfg).Rank(scan.Root, snap.Files)

	report := &models.Report{
		Project:      snap.Project,
		GeneratedAt:  time.Now().UTC(),
		SnapshotVer:  snap.Version,
		Architecture: arch,
		TechStack:    stack,
		EntryPoints:  entryPoints,
		Metrics:      projMetrics,
		DiffSummary:  summary,
		Warnings:     warnings,
	}

	insightUsed := false
	if e.shouldConsult(prev, summary) {
		obs.phase(PhaseAwaitingInsight, 0)
		insightUsed = e.consult(ctx, report)
	}

	if err := e.store.Save(snap); err != nil {
		return nil, err
	}
	if err := e.store.SaveReport(report); err != nil {
		return nil, err
	}

	run := models.RunMetrics{
		Timestamp:      time.Now().UTC(),
		TotalFiles:     projMetrics.TotalFiles,
		TotalFunctions: projMetrics.TotalFunctions,
		Added:          summary.Added,
		Modified:       summary.Modified,
		Removed:        summary.Removed,
		Moved:          summary.Moved,
		Unchanged:      summary.Unchanged,
		ReuseRatio:     models.ComputeReuseRatio(summary.Unchanged, summary.Modified),
		DurationMS:     time.Since(started).Milliseconds(),
		InsightUsed:    insightUsed,
	}
	if err := e.store.AppendRunMetrics(run); err != nil {
		return nil, err
	}

	obs.phase(PhasePersisted, 0)
	return &Result{
		Snapshot: snap,
		Report:   report,
		Summary:  summary,
		Run:      run,
	}, nil
}

// loadPrevious fetches the latest snapshot if it is still comparable.
// Schema, extractor, or config drift discards it with a warning; the
// run then behaves like a first analysis.
func (e *Engine) loadPrevious() (*models.Snapshot, []string) {
	prev, err := e.store.Latest()
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			return nil, nil
		}
		return nil, []string{fmt.Sprintf("previous snapshot unusable, rebuilding: %v", err)}
	}
	if prev.ExtractorVersion != extract.EffectiveVersion() {
		return nil, []string{fmt.Sprintf(
			"extractor changed (snapshot %d vs current %d), rebuilding from full scan",
			prev.ExtractorVersion, extract.EffectiveVersion())}
	}
	if prev.Project.ConfigHash != "" && prev.Project.ConfigHash != e.cfg.Hash() {
		return nil, []string{"analysis configuration changed, rebuilding from full scan"}
	}
	return prev, nil
}

func (e *Engine) projectName(root string) string {
	if e.cfg.Project.Name != "" {
		return e.cfg.Project.Name
	}
	return filepath.Base(root)
}

// shouldConsult gates the AI collaborator: only when enabled, wired,
// and the run actually produced new or changed functions.
func (e *Engine) shouldConsult(prev *models.Snapshot, summary models.DiffSummary) bool {
	if e.insight == nil || !e.cfg.Insights.Enabled {
		return false
	}
	return prev == nil || summary.Added+summary.Modified+summary.Moved > 0
}

// consult asks the collaborator to re-rank entry points and write a
// brief, within a bounded timeout. On any failure the report keeps the
// heuristic order and is marked degraded.
func (e *Engine) consult(ctx context.Context, report *models.Report) bool {
	timeout := time.Duration(e.cfg.Insights.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &insight.Request{
		Project: report.Project.Name,
		Want:    len(report.EntryPoints),
	}
	for _, ep := range report.EntryPoints {
		req.Candidates = append(req.Candidates, insight.Candidate{
			Path:      ep.Path,
			Score:     ep.Score,
			Rationale: ep.Rationale,
		})
	}

	type outcome struct {
		resp *insight.Response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := e.insight.Rank(ctx, req)
		ch <- outcome{resp, err}
	}()

	var o outcome
	select {
	case o = <-ch:
	case <-ctx.Done():
		o = outcome{err: fmt.Errorf("%w: %v", insight.ErrUnavailable, ctx.Err())}
	}
	if o.err != nil {
		report.Degraded = true
		report.Warnings = append(report.Warnings, fmt.Sprintf("insight unavailable: %v", o.err))
		return false
	}

	applyInsight(report, o.resp)
	return true
}

// applyInsight reorders entry points to the collaborator's ranking.
// Paths it did not mention keep their relative heuristic order behind
// the ranked ones.
func applyInsight(report *models.Report, resp *insight.Response) {
	report.Brief = resp.Brief
	if len(resp.Rankings) == 0 {
		return
	}

	position := make(map[string]int, len(resp.Rankings))
	reason := make(map[string]string, len(resp.Rankings))
	for _, r := range resp.Rankings {
		position[r.Path] = r.Rank
		if r.Reason != "" {
			reason[r.Path] = r.Reason
		}
	}

	eps := report.EntryPoints
	sort.SliceStable(eps, func(i, j int) bool {
		pi, iok := position[eps[i].Path]
		pj, jok := position[eps[j].Path]
		if iok && jok {
			return pi < pj
		}
		return iok && !jok
	})
	for i := range eps {
		eps[i].Rank = i + 1
		if r, ok := reason[eps[i].Path]; ok {
			eps[i].Rationale = r
		}
	}
}

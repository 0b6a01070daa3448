// Package rank scores files as onboarding entry points. The heuristic
// combines import-graph centrality, entry-point naming, inverse
// complexity, recency, and exported-symbol count into a weighted score.
package rank

import (
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/parser"
)

const (
	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
	// recencyHalfLife controls how fast the recency signal decays.
	recencyHalfLife = 30 * 24 * time.Hour
)

// Ranker scores snapshot files.
type Ranker struct {
	cfg *config.Config
}

// New creates a ranker. A nil config falls back to defaults.
func New(cfg *config.Config) *Ranker {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Ranker{cfg: cfg}
}

// Rank returns the top-K entry points for the live code files of a
// snapshot, ordered by descending score with lexical path tie-break.
// The result is deterministic for a fixed tree.
func (r *Ranker) Rank(root string, files []models.File) []models.EntryPoint {
	code := codeFiles(files)
	if len(code) == 0 {
		return nil
	}

	centrality := r.centrality(code)
	anchor := timeAnchor(root)

	type scored struct {
		path      string
		score     float64
		breakdown models.ScoreBreakdown
	}

	maxExported := 0
	exported := make([]int, len(code))
	for i, f := range code {
		exported[i] = exportedCount(f)
		if exported[i] > maxExported {
			maxExported = exported[i]
		}
	}

	w := r.cfg.Weights
	results := make([]scored, 0, len(code))
	for i, f := range code {
		b := models.ScoreBreakdown{
			Centrality:        centrality[f.Path],
			NameBonus:         nameBonus(f.Path),
			InverseComplexity: inverseComplexity(f),
			Recency:           recency(root, f, anchor),
		}
		if maxExported > 0 {
			b.ExportedSymbols = float64(exported[i]) / float64(maxExported)
		}
		score := w.Centrality*b.Centrality +
			w.NameBonus*b.NameBonus +
			w.InverseComplexity*b.InverseComplexity +
			w.Recency*b.Recency +
			w.ExportedSymbols*b.ExportedSymbols
		results = append(results, scored{f.Path, score, b})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].path < results[j].path
	})

	k := r.cfg.Analysis.DefaultAnalysisFiles
	if k > len(results) {
		k = len(results)
	}
	out := make([]models.EntryPoint, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, models.EntryPoint{
			Path:      results[i].path,
			Rank:      i + 1,
			Score:     results[i].score,
			Breakdown: results[i].breakdown,
			Rationale: rationale(results[i].breakdown),
		})
	}
	return out
}

// codeFiles filters to live files with a supported language.
func codeFiles(files []models.File) []models.File {
	out := make([]models.File, 0, len(files))
	for _, f := range files {
		if f.Status == models.StatusRemoved || f.Unparseable {
			continue
		}
		if codeLanguages[parser.Language(f.Language)] {
			out = append(out, f)
		}
	}
	return out
}

var codeLanguages = map[parser.Language]bool{
	parser.LangGo:         true,
	parser.LangRust:       true,
	parser.LangPython:     true,
	parser.LangTypeScript: true,
	parser.LangTSX:        true,
	parser.LangJavaScript: true,
	parser.LangJava:       true,
	parser.LangC:          true,
	parser.LangCPP:        true,
	parser.LangCSharp:     true,
	parser.LangRuby:       true,
	parser.LangPHP:        true,
	parser.LangBash:       true,
}

// centrality computes normalized PageRank over the file import graph.
// Files that import nothing and are imported by nothing score 0.
func (r *Ranker) centrality(files []models.File) map[string]float64 {
	index := make(map[string]int64, len(files))
	for i, f := range files {
		index[f.Path] = int64(i)
	}

	g := simple.NewDirectedGraph()
	for i := range files {
		g.AddNode(simple.Node(int64(i)))
	}
	hasEdge := make(map[string]bool)
	for i, f := range files {
		for _, imp := range f.Imports {
			target, ok := resolveImport(f.Path, imp, index)
			if !ok || target == int64(i) {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(int64(i)), T: simple.Node(target)})
			hasEdge[f.Path] = true
			hasEdge[files[target].Path] = true
		}
	}

	ranks := network.PageRank(g, pageRankDamping, pageRankTolerance)
	max := 0.0
	for p, id := range index {
		if hasEdge[p] && ranks[id] > max {
			max = ranks[id]
		}
	}

	out := make(map[string]float64, len(files))
	for p, id := range index {
		if max > 0 && hasEdge[p] {
			out[p] = ranks[id] / max
		}
	}
	return out
}

// resolveImport maps an import string to a repo file, or reports that
// the import is external. Relative specifiers resolve against the
// importer's directory; dotted and slashed module paths match by path
// suffix.
func resolveImport(from, imp string, index map[string]int64) (int64, bool) {
	imp = strings.TrimSpace(imp)
	if imp == "" {
		return 0, false
	}

	if strings.HasPrefix(imp, "./") || strings.HasPrefix(imp, "../") {
		base := path.Join(path.Dir(from), imp)
		for _, cand := range []string{
			base,
			base + ".ts", base + ".tsx", base + ".js", base + ".jsx", base + ".mjs",
			base + ".py", base + ".rb", base + ".php",
			base + "/index.ts", base + "/index.tsx", base + "/index.js",
			base + "/__init__.py",
		} {
			if id, ok := index[cand]; ok {
				return id, true
			}
		}
		return 0, false
	}

	// Slashed package path (go packages, C includes) first, then the
	// dotted module form (python, java) folded onto slashes.
	if id, ok := matchSuffix(imp, index); ok {
		return id, true
	}
	if frag := strings.ReplaceAll(imp, ".", "/"); frag != imp {
		return matchSuffix(frag, index)
	}
	return 0, false
}

// matchSuffix finds the lexically-first file whose path, extensionless
// path, or package directory matches a suffix of frag. Directory
// matching is what resolves Go imports, which name packages rather
// than files.
func matchSuffix(frag string, index map[string]int64) (int64, bool) {
	if frag == "" {
		return 0, false
	}
	bestPath := ""
	var bestID int64
	consider := func(p string, id int64) {
		if bestPath == "" || p < bestPath {
			bestPath, bestID = p, id
		}
	}
	for p, id := range index {
		stem := strings.TrimSuffix(p, path.Ext(p))
		if p == frag || stem == frag ||
			strings.HasSuffix(frag, "/"+stem) ||
			strings.HasSuffix(stem, "/"+frag) {
			consider(p, id)
			continue
		}
		if dir := path.Dir(p); dir != "." && (frag == dir || strings.HasSuffix(frag, "/"+dir)) {
			consider(p, id)
		}
	}
	return bestID, bestPath != ""
}

// entryNames maps well-known entry file basenames to their bonus.
var entryNames = map[string]float64{
	"main.go":     1.0,
	"main.rs":     1.0,
	"main.py":     1.0,
	"__main__.py": 1.0,
	"main.ts":     0.9,
	"main.js":     0.9,
	"index.ts":    0.8,
	"index.tsx":   0.8,
	"index.js":    0.8,
	"app.py":      0.8,
	"app.ts":      0.7,
	"app.js":      0.7,
	"server.go":   0.7,
	"server.ts":   0.7,
	"server.py":   0.7,
	"cli.py":      0.7,
	"cli.ts":      0.7,
	"cli.go":      0.7,
	"lib.rs":      0.6,
	"mod.rs":      0.4,
}

func nameBonus(p string) float64 {
	base := strings.ToLower(path.Base(p))
	bonus := entryNames[base]
	if strings.HasPrefix(p, "cmd/") || strings.Contains(p, "/cmd/") {
		if b := 0.6; b > bonus {
			bonus = b
		}
	}
	return bonus
}

// inverseComplexity rewards files that are easy to read first. A file
// averaging cyclomatic 1 scores 1.0; the score decays as the average
// grows.
func inverseComplexity(f models.File) float64 {
	if len(f.Functions) == 0 {
		return 0.5
	}
	var total uint64
	n := 0
	for _, fn := range f.Functions {
		if fn.Status == models.StatusRemoved {
			continue
		}
		total += uint64(fn.Metrics.Cyclomatic)
		n++
	}
	if n == 0 {
		return 0.5
	}
	avg := float64(total) / float64(n)
	return 1 / avg
}

// timeAnchor returns the HEAD commit time when the tree is a git
// repository, so recency is measured against the last change rather
// than the wall clock. Falls back to now.
func timeAnchor(root string) time.Time {
	if repo, err := git.PlainOpen(root); err == nil {
		if head, err := repo.Head(); err == nil {
			if commit, err := repo.CommitObject(head.Hash()); err == nil {
				return commit.Committer.When
			}
		}
	}
	return time.Now()
}

// recency scores a file by modification age with exponential decay.
func recency(root string, f models.File, anchor time.Time) float64 {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(f.Path)))
	if err != nil {
		return 0
	}
	age := anchor.Sub(info.ModTime())
	if age < 0 {
		age = 0
	}
	return math.Exp2(-float64(age) / float64(recencyHalfLife))
}

func exportedCount(f models.File) int {
	lang := parser.Language(f.Language)
	n := 0
	for _, fn := range f.Functions {
		if fn.Status == models.StatusRemoved {
			continue
		}
		name := fn.Name
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		if parser.ExportedName(name, lang) {
			n++
		}
	}
	return n
}

// rationale names the strongest score components in plain words.
func rationale(b models.ScoreBreakdown) string {
	type comp struct {
		value float64
		label string
	}
	comps := []comp{
		{b.Centrality, "highly imported"},
		{b.NameBonus, "entry-point name"},
		{b.InverseComplexity, "low complexity"},
		{b.Recency, "recently changed"},
		{b.ExportedSymbols, "rich public surface"},
	}
	var parts []string
	for _, c := range comps {
		if c.value >= 0.5 {
			parts = append(parts, c.label)
		}
	}
	if len(parts) == 0 {
		return "balanced signals"
	}
	return strings.Join(parts, ", ")
}

package metrics

import (
	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/models"
)

// maintainability scale constants. The index starts at 100 and loses
// points for complexity and long functions, regaining some for comment
// coverage. Each term is multiplied by its configured weight.
const (
	complexityPenaltyScale = 4.0
	lengthPenaltyScale     = 40.0
	commentBonusScale      = 20.0
	// Comment density at or above this ratio earns the full bonus.
	fullBonusDensity = 0.25
)

// Compute aggregates project metrics over the live files of a snapshot.
// The reduction is count-weighted and order-independent: any permutation
// of files yields the same result.
func Compute(files []models.File, cfg *config.Config) models.ProjectMetrics {
	m := models.ProjectMetrics{}

	var totalCyc, totalCog uint64
	var totalFuncs, overThreshold int
	var codeLines, commentLines int

	for i := range files {
		f := &files[i]
		if f.Status == models.StatusRemoved {
			continue
		}
		m.TotalFiles++
		codeLines += f.Lines
		commentLines += f.CommentLines

		for j := range f.Functions {
			fn := &f.Functions[j]
			if fn.Status == models.StatusRemoved {
				continue
			}
			totalFuncs++
			totalCyc += uint64(fn.Metrics.Cyclomatic)
			totalCog += uint64(fn.Metrics.Cognitive)
			if int(fn.Metrics.Cyclomatic) > cfg.Thresholds.CyclomaticComplexity ||
				fn.Metrics.Lines > cfg.Thresholds.MaxFunctionLines {
				overThreshold++
			}
		}
	}

	m.TotalFunctions = totalFuncs
	if totalFuncs > 0 {
		m.AvgCyclomatic = float64(totalCyc) / float64(totalFuncs)
		m.AvgCognitive = float64(totalCog) / float64(totalFuncs)
		m.DebtPercent = 100 * float64(overThreshold) / float64(totalFuncs)
	}
	if codeLines > 0 {
		m.CommentDensity = float64(commentLines) / float64(codeLines)
	}

	m.Maintainability = maintainability(m, overThreshold, totalFuncs, cfg.Weights)
	return m
}

// maintainability combines average complexity, comment density, and the
// long-function fraction into a [0,100] index.
func maintainability(m models.ProjectMetrics, overThreshold, totalFuncs int, w config.WeightConfig) float64 {
	if totalFuncs == 0 {
		// Nothing to penalize; an empty or function-free tree is trivially
		// maintainable.
		return 100
	}

	longFrac := float64(overThreshold) / float64(totalFuncs)

	density := m.CommentDensity / fullBonusDensity
	if density > 1 {
		density = 1
	}

	index := 100.0
	index -= w.Complexity * complexityPenaltyScale * (m.AvgCyclomatic - 1)
	index -= w.FunctionLength * lengthPenaltyScale * longFrac
	index += w.CommentDensity * commentBonusScale * density

	return clamp(index, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

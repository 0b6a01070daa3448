// Package diff computes function-granularity change sets between the
// previous snapshot and a fresh extraction, including move detection
// for functions whose bodies survived a relocation or rename.
package diff

import (
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/oakmap/codemap/pkg/models"
)

// ref locates a function inside a snapshot's file list.
type ref struct {
	fileIdx int
	fnIdx   int
}

// candidate is a function removed from its previous location. destIdx
// points at the file entry that should carry the soft-deleted record if
// no added function claims the body.
type candidate struct {
	fn      models.Function
	destIdx int
}

// Apply merges freshly extracted files against the previous snapshot.
// It returns the next snapshot, with every file and function stamped
// with a DiffStatus, and the function-level change summary.
//
// Matching is by (file, name) identity first, then by body hash across
// the removed and added sets to reclassify relocations as moves. Files
// and functions soft-deleted in prev are dropped; deletions are
// retained for exactly one snapshot.
func Apply(prev *models.Snapshot, files []models.File) (*models.Snapshot, models.DiffSummary) {
	snap := &models.Snapshot{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Files:     files,
	}

	var sum models.DiffSummary
	if prev == nil {
		for i := range snap.Files {
			snap.Files[i].Status = models.StatusAdded
			for j := range snap.Files[i].Functions {
				snap.Files[i].Functions[j].Status = models.StatusAdded
				sum.Added++
			}
		}
		return snap, sum
	}
	snap.Version = prev.Version + 1

	prevLive := make(map[string]*models.File, len(prev.Files))
	for i := range prev.Files {
		f := &prev.Files[i]
		if f.Status != models.StatusRemoved {
			prevLive[f.Path] = f
		}
	}

	var added []ref
	var removed []candidate

	seen := make(map[string]bool, len(snap.Files))
	for i := range snap.Files {
		cur := &snap.Files[i]
		seen[cur.Path] = true

		pf, ok := prevLive[cur.Path]
		if !ok {
			cur.Status = models.StatusAdded
			for j := range cur.Functions {
				added = append(added, ref{i, j})
			}
			continue
		}

		if cur.Hash == pf.Hash {
			cur.Status = models.StatusUnchanged
		} else {
			cur.Status = models.StatusModified
		}

		prevByName := make(map[string]*models.Function, len(pf.Functions))
		for k := range pf.Functions {
			fn := &pf.Functions[k]
			if fn.Status != models.StatusRemoved {
				prevByName[fn.Name] = fn
			}
		}

		matched := make(map[string]bool, len(cur.Functions))
		for j := range cur.Functions {
			fn := &cur.Functions[j]
			pfn, ok := prevByName[fn.Name]
			if !ok {
				added = append(added, ref{i, j})
				continue
			}
			matched[fn.Name] = true
			if pfn.Hash == fn.Hash {
				fn.Status = models.StatusUnchanged
				sum.Unchanged++
			} else {
				fn.Status = models.StatusModified
				sum.Modified++
			}
		}

		for k := range pf.Functions {
			pfn := &pf.Functions[k]
			if pfn.Status == models.StatusRemoved || matched[pfn.Name] {
				continue
			}
			removed = append(removed, candidate{fn: *pfn, destIdx: i})
		}
	}

	// Files gone from the scan are retained once as soft-deleted
	// entries; their functions join the removed candidate pool so a
	// file rename surfaces as moves rather than remove+add pairs.
	for i := range prev.Files {
		pf := &prev.Files[i]
		if pf.Status == models.StatusRemoved || seen[pf.Path] {
			continue
		}
		gone := *pf
		gone.Status = models.StatusRemoved
		gone.Functions = nil
		snap.Files = append(snap.Files, gone)
		dest := len(snap.Files) - 1
		for k := range pf.Functions {
			pfn := &pf.Functions[k]
			if pfn.Status == models.StatusRemoved {
				continue
			}
			removed = append(removed, candidate{fn: *pfn, destIdx: dest})
		}
	}

	// Move detection: an added function whose hash matches a removed
	// one is the same body in a new place. Each removed candidate is
	// claimed at most once, first match in path order.
	byHash := make(map[string][]uint32, len(removed))
	for idx, c := range removed {
		byHash[c.fn.Hash] = append(byHash[c.fn.Hash], uint32(idx))
	}
	claimed := roaring.New()
	for _, r := range added {
		fn := &snap.Files[r.fileIdx].Functions[r.fnIdx]
		moved := false
		for _, idx := range byHash[fn.Hash] {
			if claimed.CheckedAdd(idx) {
				moved = true
				break
			}
		}
		if moved {
			fn.Status = models.StatusMoved
			sum.Moved++
		} else {
			fn.Status = models.StatusAdded
			sum.Added++
		}
	}

	// Unclaimed removals become soft-deleted records at their previous
	// location. Claimed ones are represented by their moved twin only.
	for idx, c := range removed {
		if claimed.Contains(uint32(idx)) {
			continue
		}
		c.fn.Status = models.StatusRemoved
		snap.Files[c.destIdx].Functions = append(snap.Files[c.destIdx].Functions, c.fn)
		sum.Removed++
	}

	sort.Slice(snap.Files, func(i, j int) bool { return snap.Files[i].Path < snap.Files[j].Path })
	return snap, sum
}

// Changes returns every function whose status is not unchanged, sorted
// by file then name.
func Changes(s *models.Snapshot) []models.Function {
	var out []models.Function
	for i := range s.Files {
		for _, fn := range s.Files[i].Functions {
			if fn.Status != models.StatusUnchanged {
				out = append(out, fn)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Name < out[j].Name
	})
	return out
}

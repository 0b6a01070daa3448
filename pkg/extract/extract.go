// Package extract parses scanned files and builds their structural
// model: per-function normalized hashes, complexity metrics, imports,
// and whole-file content hashes.
package extract

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"

	"github.com/oakmap/codemap/internal/fileproc"
	"github.com/oakmap/codemap/internal/scanner"
	"github.com/oakmap/codemap/pkg/metrics"
	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/parser"
)

// Version identifies the normalization and hashing rules. Bump it when
// token normalization or symbol qualification changes, so older
// snapshots are rebuilt instead of diffed against incompatible hashes.
const Version = 1

// EffectiveVersion combines the extraction rules with the metric node
// tables; a change to either invalidates stored snapshots.
func EffectiveVersion() int {
	return Version<<8 | metrics.TableVersion
}

// Extractor turns scanned files into models.File values. It is
// stateless and safe for concurrent use; each worker supplies its own
// parser.
type Extractor struct{}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{}
}

// Run extracts every scanned file in parallel. Files that cannot be
// read are dropped and reported as warnings; files that fail to parse
// are kept at file granularity with Unparseable set. Results are
// sorted by path.
func (e *Extractor) Run(ctx context.Context, scan *scanner.Result, onProgress fileproc.ProgressFunc) ([]models.File, []string, error) {
	byPath := make(map[string]scanner.FileInfo, len(scan.Files))
	paths := make([]string, 0, len(scan.Files))
	for _, fi := range scan.Files {
		byPath[fi.Path] = fi
		paths = append(paths, fi.Path)
	}

	seen := time.Now().UTC()
	files, errs := fileproc.MapFiles(ctx, paths, func(p *parser.Parser, path string) (models.File, error) {
		return e.file(p, byPath[path], seen)
	}, onProgress)

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	var warnings []string
	if errs != nil && errs.HasErrors() {
		for _, pe := range errs.Errors {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", pe.Path, pe.Err))
		}
		sort.Strings(warnings)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, warnings, nil
}

// file builds the structural model for one scanned file.
func (e *Extractor) file(p *parser.Parser, info scanner.FileInfo, seen time.Time) (models.File, error) {
	content, err := os.ReadFile(info.Abs)
	if err != nil {
		return models.File{}, fmt.Errorf("read: %w", err)
	}

	f := models.File{
		Path:     info.Path,
		Language: info.Tag,
		Size:     info.Size,
		Hash:     hashBytes(content),
		Lines:    countLines(content),
		LastSeen: seen,
	}

	if info.Language == parser.LangUnknown {
		// Text and manifest files are tracked at file granularity only.
		return f, nil
	}

	result, err := p.Parse(content, info.Language, info.Path)
	if err != nil {
		f.Unparseable = true
		return f, nil
	}

	f.Imports = parser.GetImports(result)
	f.CommentLines = parser.CountCommentLines(result)

	for _, fn := range parser.GetFunctions(result) {
		f.Functions = append(f.Functions, models.Function{
			Name:      fn.Name,
			File:      info.Path,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Hash:      HashBody(fn.Body, content),
			Metrics:   metrics.ForFunction(fn, content, info.Language),
		})
	}
	return f, nil
}

// HashBody returns the hex blake3 digest of the function body after
// normalization: leaf tokens joined by single spaces, comments dropped.
// Whitespace-only and comment-only edits therefore do not change the
// hash.
func HashBody(body *sitter.Node, source []byte) string {
	var sb strings.Builder
	if body != nil {
		appendTokens(&sb, body, source)
	}
	return hashBytes([]byte(sb.String()))
}

func appendTokens(sb *strings.Builder, node *sitter.Node, source []byte) {
	if strings.Contains(node.Type(), "comment") {
		return
	}
	if node.ChildCount() == 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(node.Content(source))
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		appendTokens(sb, node.Child(i), source)
	}
}

func hashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}

// Package scanner walks a project tree and classifies source files.
package scanner

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/parser"
)

// sniffLimit bounds how much of an extensionless file is read to
// classify it by shebang.
const sniffLimit = 256

// FileInfo is one scanned file.
type FileInfo struct {
	// Path is slash-separated and relative to the scan root.
	Path     string
	Abs      string
	Language parser.Language
	// Tag is the display language: the parser language when supported,
	// otherwise a text classification such as "markdown" or "json".
	Tag  string
	Size int64
}

// Result is the outcome of one scan. Files are sorted by Path so the
// rest of the pipeline is independent of walk order.
type Result struct {
	Root    string
	Files   []FileInfo
	Skipped []models.SkippedFile
}

// Scanner finds and classifies source files in a directory.
type Scanner struct {
	cfg      *config.Config
	matchers []gitignore.Matcher
}

// New creates a scanner. A nil config falls back to defaults.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{cfg: cfg}
}

// textTags classifies non-code files the index still tracks: manifests
// and docs feed tech-stack detection and whole-file hashing.
var textTags = map[string]string{
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".sql":  "sql",
	".html": "html",
	".css":  "css",
	".txt":  "text",
	".lock": "lockfile",
	".mod":  "gomod",
	".sum":  "gosum",
	".xml":  "xml",
}

// Scan walks the tree rooted at root. An unreadable root is fatal;
// unreadable entries below it are recorded as skipped and the scan
// continues.
func (s *Scanner) Scan(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if _, err := os.ReadDir(absRoot); err != nil {
		return nil, fmt.Errorf("read root %s: %w", absRoot, err)
	}

	s.loadExcludePatterns(absRoot)

	result := &Result{Root: absRoot}

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			result.Skipped = append(result.Skipped, models.SkippedFile{Path: rel, Reason: err.Error()})
			return nil
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.isExcluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.isExcluded(rel, false) || s.hasExcludedExt(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Skipped = append(result.Skipped, models.SkippedFile{Path: rel, Reason: err.Error()})
			return nil
		}
		if max := s.cfg.Analysis.MaxFileSize; max > 0 && info.Size() > max {
			result.Skipped = append(result.Skipped, models.SkippedFile{
				Path:   rel,
				Reason: fmt.Sprintf("exceeds max file size (%d > %d bytes)", info.Size(), max),
			})
			return nil
		}

		lang, tag := s.classify(path)
		if tag == "" {
			return nil
		}

		result.Files = append(result.Files, FileInfo{
			Path:     rel,
			Abs:      path,
			Language: lang,
			Tag:      tag,
			Size:     info.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, walkErr)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Path < result.Skipped[j].Path
	})

	return result, nil
}

// classify tags a file. Returns ("", "") for files the index ignores.
func (s *Scanner) classify(path string) (parser.Language, string) {
	if lang := parser.DetectLanguage(path); lang != parser.LangUnknown {
		return lang, string(lang)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if tag, ok := textTags[ext]; ok {
		return parser.LangUnknown, tag
	}
	base := strings.ToLower(filepath.Base(path))
	switch base {
	case "makefile", "gemfile", "rakefile", "procfile", "gemfile.lock":
		return parser.LangUnknown, "buildfile"
	case "license", "readme", "changelog":
		return parser.LangUnknown, "text"
	}

	if ext == "" {
		// Extensionless: sniff for a shebang line.
		head := make([]byte, sniffLimit)
		f, err := os.Open(path)
		if err != nil {
			return parser.LangUnknown, ""
		}
		n, _ := io.ReadFull(f, head)
		f.Close()
		if lang := parser.DetectLanguageContent(path, head[:n]); lang != parser.LangUnknown {
			return lang, string(lang)
		}
	}

	return parser.LangUnknown, ""
}

// findGitRoot finds the enclosing git repository root, or "".
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config patterns with .gitignore files.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, dir := range s.cfg.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}
	for _, pattern := range s.cfg.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.cfg.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fsys := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fsys, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	s.matchers = []gitignore.Matcher{gitignore.NewMatcher(patterns)}
}

// hasExcludedExt matches configured extensions as path suffixes, so
// multi-part extensions like ".gen.go" work too.
func (s *Scanner) hasExcludedExt(rel string) bool {
	for _, ext := range s.cfg.Exclude.Extensions {
		if ext != "" && strings.HasSuffix(rel, ext) {
			return true
		}
	}
	return false
}

// isExcluded checks a slash-relative path against the exclusion set.
func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

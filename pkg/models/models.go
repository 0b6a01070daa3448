// Package models defines the core data model for code map snapshots,
// diffs, and reports.
package models

import "time"

// DiffStatus describes how an entity changed between two snapshots.
type DiffStatus string

const (
	StatusAdded     DiffStatus = "added"
	StatusModified  DiffStatus = "modified"
	StatusUnchanged DiffStatus = "unchanged"
	StatusRemoved   DiffStatus = "removed"
	StatusMoved     DiffStatus = "moved"
)

// String returns the string representation.
func (s DiffStatus) String() string {
	return string(s)
}

// FunctionMetrics holds complexity measurements for a single function.
type FunctionMetrics struct {
	Cyclomatic uint32 `json:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive"`
	Lines      int    `json:"lines"`
	MaxNesting int    `json:"max_nesting"`
}

// Function is an extracted structural unit with a qualified name and a
// content hash over its normalized body.
type Function struct {
	Name      string          `json:"name"`
	File      string          `json:"file"`
	StartLine uint32          `json:"start_line"`
	EndLine   uint32          `json:"end_line"`
	Hash      string          `json:"hash"`
	Metrics   FunctionMetrics `json:"metrics"`
	Status    DiffStatus      `json:"status"`
}

// Key identifies a function across snapshots.
type Key struct {
	File string
	Name string
}

// Key returns the cross-snapshot identity of the function.
func (f *Function) Key() Key {
	return Key{File: f.File, Name: f.Name}
}

// File is a scanned source file. Path is the stable identifier, always
// slash-separated and relative to the project root.
type File struct {
	Path         string     `json:"path"`
	Language     string     `json:"language"`
	Size         int64      `json:"size"`
	Hash         string     `json:"hash"`
	Lines        int        `json:"lines"`
	CommentLines int        `json:"comment_lines"`
	Unparseable  bool       `json:"unparseable,omitempty"`
	Imports      []string   `json:"imports,omitempty"`
	Functions    []Function `json:"functions"`
	Status       DiffStatus `json:"status"`
	LastSeen     time.Time  `json:"last_seen"`
}

// Project identifies the analyzed tree.
type Project struct {
	Root       string `json:"root"`
	Name       string `json:"name"`
	ConfigHash string `json:"config_hash,omitempty"`
}

// SkippedFile records a file excluded from analysis and why.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Snapshot is the immutable captured state of all files and functions at
// one analysis run. Files are sorted by path; snapshots are never mutated
// in place.
type Snapshot struct {
	SchemaVersion    int       `json:"schema_version"`
	ExtractorVersion int       `json:"extractor_version"`
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	Project          Project   `json:"project"`
	Files            []File    `json:"files"`
	Warnings         []string  `json:"warnings,omitempty"`
}

// FunctionCount returns the number of functions across all files,
// excluding soft-deleted entries.
func (s *Snapshot) FunctionCount() int {
	n := 0
	for i := range s.Files {
		if s.Files[i].Status == StatusRemoved {
			continue
		}
		for j := range s.Files[i].Functions {
			if s.Files[i].Functions[j].Status != StatusRemoved {
				n++
			}
		}
	}
	return n
}

// LiveFiles returns the files present in the current scan (excludes
// soft-deleted entries).
func (s *Snapshot) LiveFiles() []File {
	out := make([]File, 0, len(s.Files))
	for _, f := range s.Files {
		if f.Status != StatusRemoved {
			out = append(out, f)
		}
	}
	return out
}

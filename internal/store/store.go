// Package store persists snapshots, reports, and the analysis run
// history under the project-local .codemap directory. Snapshots are
// immutable and numbered; a pointer file names the latest.
package store

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/models"
)

// SchemaVersion is the on-disk snapshot format version.
const SchemaVersion = 1

var (
	// ErrNoSnapshot reports an empty store.
	ErrNoSnapshot = errors.New("no snapshot found")
	// ErrSchemaVersion reports a snapshot written by an incompatible
	// codemap version. Callers rebuild from a full scan.
	ErrSchemaVersion = errors.New("snapshot schema version mismatch")
	// ErrNotInitialized reports a project without a .codemap directory.
	ErrNotInitialized = errors.New("project not initialized (run codemap init)")
)

//go:embed schema.json
var snapshotSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(snapshotSchema))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("snapshot.schema.json", doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile("snapshot.schema.json")
	})
	return schema, schemaErr
}

// Store is a project-local snapshot store rooted at <root>/.codemap.
type Store struct {
	root string
	dir  string
}

// Open returns a store for the project root. It does not create
// anything; use Init for that.
func Open(root string) *Store {
	return &Store{root: root, dir: filepath.Join(root, config.Dir)}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Initialized reports whether the project has a .codemap directory.
func (s *Store) Initialized() bool {
	info, err := os.Stat(s.dir)
	return err == nil && info.IsDir()
}

// Init creates the store layout. It is idempotent.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.snapshotsDir(), 0o755); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	return nil
}

func (s *Store) snapshotsDir() string {
	return filepath.Join(s.dir, "snapshots")
}

func (s *Store) snapshotPath(version int) string {
	return filepath.Join(s.snapshotsDir(), fmt.Sprintf("%06d.json", version))
}

// Save writes a snapshot and advances the latest pointer. The write is
// atomic: the snapshot lands under a temporary name and is renamed into
// place, so a crash never leaves a half-written file as latest.
func (s *Store) Save(snap *models.Snapshot) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	if err := os.MkdirAll(s.snapshotsDir(), 0o755); err != nil {
		return err
	}

	snap.SchemaVersion = SchemaVersion
	// Function-less files (docs, manifests, soft-deleted records) carry a
	// nil slice, which marshals as null and would fail schema validation
	// on the next load.
	for i := range snap.Files {
		if snap.Files[i].Functions == nil {
			snap.Files[i].Functions = []models.Function{}
		}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := atomicWrite(s.snapshotPath(snap.Version), data); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.Version, err)
	}
	if err := atomicWrite(filepath.Join(s.snapshotsDir(), "latest"), []byte(strconv.Itoa(snap.Version))); err != nil {
		return fmt.Errorf("update latest pointer: %w", err)
	}
	return nil
}

// Latest loads the snapshot the latest pointer names, or ErrNoSnapshot.
func (s *Store) Latest() (*models.Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.snapshotsDir(), "latest"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("corrupt latest pointer: %w", err)
	}
	return s.Load(version)
}

// Load reads and validates one snapshot by version.
func (s *Store) Load(version int) (*models.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(version))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	if err := validate(data); err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", version, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %w", version, err)
	}
	if snap.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrSchemaVersion, snap.SchemaVersion, SchemaVersion)
	}
	return &snap, nil
}

// validate checks the raw document against the embedded JSON Schema so
// hand-edited or truncated snapshots fail loudly instead of producing
// nonsense diffs.
func validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile snapshot schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return nil
}

// Versions lists stored snapshot versions in ascending order.
func (s *Store) Versions() ([]int, error) {
	entries, err := os.ReadDir(s.snapshotsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var versions []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

// Prune removes all but the newest keep snapshots. The latest pointer
// is never pruned.
func (s *Store) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}
	versions, err := s.Versions()
	if err != nil {
		return err
	}
	if len(versions) <= keep {
		return nil
	}
	for _, v := range versions[:len(versions)-keep] {
		if err := os.Remove(s.snapshotPath(v)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune snapshot %d: %w", v, err)
		}
	}
	return nil
}

// SaveReport writes the latest derived report.
func (s *Store) SaveReport(r *models.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return atomicWrite(filepath.Join(s.dir, "report.json"), data)
}

// LoadReport reads the latest report, or ErrNoSnapshot when none was
// written yet.
func (s *Store) LoadReport() (*models.Report, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "report.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	var r models.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// AppendRunMetrics appends one entry to the run history file.
func (s *Store) AppendRunMetrics(m models.RunMetrics) error {
	history, err := s.History()
	if err != nil {
		return err
	}
	history = append(history, m)
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run history: %w", err)
	}
	return atomicWrite(filepath.Join(s.dir, "metrics.json"), data)
}

// History returns all recorded analysis runs, oldest first.
func (s *Store) History() ([]models.RunMetrics, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "metrics.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var history []models.RunMetrics
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode run history: %w", err)
	}
	return history, nil
}

// atomicWrite writes via a temp file and rename in the same directory.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Package archdetect classifies a codebase layout against a table of
// architecture patterns. Each pattern is a set of structural signals;
// confidence is the fraction of signals that matched.
package archdetect

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/oakmap/codemap/pkg/models"
)

// RulesVersion identifies the pattern table. Bump when signals change
// so stored reports can be told apart.
const RulesVersion = 1

// corpus is the evidence a rule's signals are evaluated against.
type corpus struct {
	dirs      map[string]bool // every directory component of every path
	bases     map[string]bool // every file basename, lowercased
	tech      map[string]bool // detected tech-stack names
	manifests int             // count of per-package manifest files
}

type signal struct {
	desc  string
	match func(c *corpus) bool
}

type rule struct {
	name    string
	signals []signal
}

// Detect evaluates the pattern table and returns the primary pattern
// plus any alternates that also cleared minConfidence. When nothing
// clears the threshold the primary is Unclassified with confidence 0.
func Detect(files []models.File, stack []models.TechStackEntry, minConfidence float64) models.Architecture {
	c := buildCorpus(files, stack)

	var matched []models.ArchitecturePattern
	for _, r := range rules {
		var hits int
		var evidence []string
		for _, s := range r.signals {
			if s.match(c) {
				hits++
				evidence = append(evidence, s.desc)
			}
		}
		conf := float64(hits) / float64(len(r.signals))
		if conf >= minConfidence && hits > 0 {
			matched = append(matched, models.ArchitecturePattern{
				Name:       r.name,
				Confidence: conf,
				Evidence:   evidence,
			})
		}
	}

	if len(matched) == 0 {
		return models.Architecture{
			Primary: models.ArchitecturePattern{Name: models.UnclassifiedPattern},
		}
	}

	// Highest confidence wins; table order breaks ties, so the result
	// is deterministic for a fixed tree.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Confidence > matched[j].Confidence
	})
	return models.Architecture{
		Primary:    matched[0],
		Alternates: matched[1:],
	}
}

func buildCorpus(files []models.File, stack []models.TechStackEntry) *corpus {
	c := &corpus{
		dirs:  make(map[string]bool),
		bases: make(map[string]bool),
		tech:  make(map[string]bool),
	}
	for i := range files {
		f := &files[i]
		if f.Status == models.StatusRemoved {
			continue
		}
		base := strings.ToLower(path.Base(f.Path))
		c.bases[base] = true
		switch base {
		case "go.mod", "package.json", "cargo.toml", "pyproject.toml", "gemfile":
			c.manifests++
		}
		dir := path.Dir(f.Path)
		for dir != "." && dir != "/" {
			c.dirs[strings.ToLower(path.Base(dir))] = true
			dir = path.Dir(dir)
		}
	}
	for _, e := range stack {
		c.tech[e.Name] = true
	}
	return c
}

func anyDir(names ...string) func(*corpus) bool {
	return func(c *corpus) bool {
		for _, n := range names {
			if c.dirs[n] {
				return true
			}
		}
		return false
	}
}

func anyTech(names ...string) func(*corpus) bool {
	return func(c *corpus) bool {
		for _, n := range names {
			if c.tech[n] {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{
		name: "Hexagonal / Clean Architecture",
		signals: []signal{
			{"domain or core layer", anyDir("domain", "core", "entities")},
			{"application or use-case layer", anyDir("application", "usecases", "usecase", "services")},
			{"adapters or ports layer", anyDir("adapters", "ports", "infrastructure", "infra")},
			{"internal package boundary", anyDir("internal")},
		},
	},
	{
		name: "Layered (MVC)",
		signals: []signal{
			{"controllers or handlers", anyDir("controllers", "handlers", "views")},
			{"models layer", anyDir("models", "entities")},
			{"service layer", anyDir("services", "service")},
			{"repository or data layer", anyDir("repositories", "repository", "dao", "store")},
		},
	},
	{
		name: "CLI Tool",
		signals: []signal{
			{"cmd directory", anyDir("cmd")},
			{"main entry file", func(c *corpus) bool {
				return c.bases["main.go"] || c.bases["main.rs"] || c.bases["main.py"] || c.bases["cli.py"] || c.bases["cli.js"]
			}},
			{"CLI framework dependency", anyTech("Cobra", "urfave/cli", "clap")},
		},
	},
	{
		name: "Event-driven",
		signals: []signal{
			{"event or message handlers", anyDir("events", "consumers", "subscribers", "workers")},
			{"message broker dependency", anyTech("Kafka", "RabbitMQ", "Redis", "Celery", "Sidekiq")},
			{"queue or pipeline layer", anyDir("queue", "queues", "jobs", "tasks")},
		},
	},
	{
		name: "Monorepo",
		signals: []signal{
			{"workspace directories", anyDir("packages", "apps", "services", "modules")},
			{"multiple package manifests", func(c *corpus) bool { return c.manifests > 1 }},
		},
	},
	{
		name: "Library",
		signals: []signal{
			{"package manifest without entry binary", func(c *corpus) bool {
				return c.manifests > 0 && !c.bases["main.go"] && !c.bases["main.rs"] && !c.bases["main.py"] && !c.dirs["cmd"]
			}},
			{"pkg or lib layout", anyDir("pkg", "lib", "src")},
			{"example or docs tree", anyDir("examples", "example", "docs")},
		},
	},
}

// Describe renders a one-line human summary of the detection.
func Describe(a models.Architecture) string {
	if a.Primary.Name == models.UnclassifiedPattern {
		return "no architecture pattern cleared the confidence threshold"
	}
	return fmt.Sprintf("%s (%.0f%% confidence)", a.Primary.Name, a.Primary.Confidence*100)
}

// Package techstack detects the languages, frameworks, databases, and
// tooling a project uses from its manifest files and scan results.
package techstack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/oakmap/codemap/pkg/models"
)

// Detect inspects the live files of a snapshot and returns the detected
// stack, deduplicated by name with merged evidence and sorted by
// category then name. Unreadable or malformed manifests contribute
// nothing; detection never fails.
func Detect(root string, files []models.File) []models.TechStackEntry {
	d := &detector{
		root:    root,
		entries: make(map[string]*models.TechStackEntry),
	}

	langFiles := make(map[string]int)
	for i := range files {
		f := &files[i]
		if f.Status == models.StatusRemoved {
			continue
		}
		if _, ok := languageNames[f.Language]; ok {
			langFiles[f.Language]++
		}
		d.manifest(f.Path)
		d.imports(f)
	}

	for tag, n := range langFiles {
		d.add(models.TechLanguage, languageNames[tag], fmt.Sprintf("%d %s files", n, tag))
	}

	out := make([]models.TechStackEntry, 0, len(d.entries))
	for _, e := range d.entries {
		sort.Strings(e.Evidence)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type detector struct {
	root    string
	entries map[string]*models.TechStackEntry
}

func (d *detector) add(cat models.TechCategory, name, evidence string) {
	e, ok := d.entries[name]
	if !ok {
		e = &models.TechStackEntry{Category: cat, Name: name}
		d.entries[name] = e
	}
	for _, ev := range e.Evidence {
		if ev == evidence {
			return
		}
	}
	e.Evidence = append(e.Evidence, evidence)
}

// manifest dispatches on well-known manifest file names.
func (d *detector) manifest(rel string) {
	base := strings.ToLower(filepath.Base(rel))
	switch base {
	case "go.mod":
		d.goMod(rel)
	case "package.json":
		d.packageJSON(rel)
	case "cargo.toml":
		d.cargoTOML(rel)
	case "requirements.txt":
		d.requirements(rel)
	case "pyproject.toml":
		d.pyproject(rel)
	case "gemfile":
		d.gemfile(rel)
	case "docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml":
		d.add(models.TechDeployment, "Docker Compose", rel)
		d.compose(rel)
	case "dockerfile":
		d.add(models.TechDeployment, "Docker", rel)
	case "makefile":
		d.add(models.TechTool, "Make", rel)
	}
	if strings.HasPrefix(rel, ".github/workflows/") {
		d.add(models.TechTool, "GitHub Actions", rel)
	}
}

// imports matches source-level import paths against the registry, so a
// framework surfaces even when no manifest names it. The source file is
// the evidence.
func (d *detector) imports(f *models.File) {
	if len(f.Imports) == 0 {
		return
	}
	switch f.Language {
	case "go":
		for _, imp := range f.Imports {
			for prefix, t := range goModules {
				if strings.HasPrefix(imp, prefix) {
					d.add(t.Category, t.Name, f.Path)
				}
			}
		}
	case "python":
		for _, imp := range f.Imports {
			root := strings.ToLower(imp)
			if idx := strings.IndexByte(root, '.'); idx >= 0 {
				root = root[:idx]
			}
			if t, ok := pythonPackages[root]; ok {
				d.add(t.Category, t.Name, f.Path)
			}
		}
	case "javascript", "typescript", "tsx":
		for _, imp := range f.Imports {
			if t, ok := npmPackages[npmRoot(imp)]; ok {
				d.add(t.Category, t.Name, f.Path)
			}
		}
	case "rust":
		for _, imp := range f.Imports {
			root := imp
			if idx := strings.Index(root, "::"); idx >= 0 {
				root = root[:idx]
			}
			// Crate names use hyphens where source paths use underscores.
			root = strings.ReplaceAll(strings.ToLower(root), "_", "-")
			if t, ok := cargoCrates[root]; ok {
				d.add(t.Category, t.Name, f.Path)
			}
		}
	case "ruby":
		for _, imp := range f.Imports {
			if t, ok := rubyGems[imp]; ok {
				d.add(t.Category, t.Name, f.Path)
			}
		}
	}
}

// npmRoot trims a subpath import to its package name, keeping the scope
// segment for scoped packages.
func npmRoot(imp string) string {
	parts := strings.Split(imp, "/")
	if strings.HasPrefix(imp, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

func (d *detector) read(rel string) []byte {
	content, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	return content
}

func (d *detector) goMod(rel string) {
	content := d.read(rel)
	for mod, t := range goModules {
		if strings.Contains(string(content), mod) {
			d.add(t.Category, t.Name, rel)
		}
	}
}

func (d *detector) packageJSON(rel string) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(d.read(rel), &pkg); err != nil {
		return
	}
	for dep := range pkg.Dependencies {
		if t, ok := npmPackages[dep]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
	for dep := range pkg.DevDependencies {
		if t, ok := npmPackages[dep]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
}

func (d *detector) cargoTOML(rel string) {
	var manifest struct {
		Dependencies    map[string]interface{} `toml:"dependencies"`
		DevDependencies map[string]interface{} `toml:"dev-dependencies"`
	}
	if err := toml.Unmarshal(d.read(rel), &manifest); err != nil {
		return
	}
	for crate := range manifest.Dependencies {
		if t, ok := cargoCrates[crate]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
	for crate := range manifest.DevDependencies {
		if t, ok := cargoCrates[crate]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
}

// requirementLine captures the package name ahead of any version pin or
// extras marker.
var requirementLine = regexp.MustCompile(`^([A-Za-z0-9_.-]+)`)

func (d *detector) requirements(rel string) {
	for _, line := range strings.Split(string(d.read(rel)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := requirementLine.FindString(line)
		if t, ok := pythonPackages[strings.ToLower(m)]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
}

func (d *detector) pyproject(rel string) {
	var manifest struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies map[string]interface{} `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(d.read(rel), &manifest); err != nil {
		return
	}
	for _, dep := range manifest.Project.Dependencies {
		m := requirementLine.FindString(strings.TrimSpace(dep))
		if t, ok := pythonPackages[strings.ToLower(m)]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
	for dep := range manifest.Tool.Poetry.Dependencies {
		if t, ok := pythonPackages[strings.ToLower(dep)]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
}

var gemLine = regexp.MustCompile(`(?m)^\s*gem\s+['"]([^'"]+)['"]`)

func (d *detector) gemfile(rel string) {
	for _, m := range gemLine.FindAllStringSubmatch(string(d.read(rel)), -1) {
		if t, ok := rubyGems[m[1]]; ok {
			d.add(t.Category, t.Name, rel)
		}
	}
}

func (d *detector) compose(rel string) {
	var doc struct {
		Services map[string]struct {
			Image string `yaml:"image"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal(d.read(rel), &doc); err != nil {
		return
	}
	for _, svc := range doc.Services {
		image := svc.Image
		if idx := strings.LastIndex(image, "/"); idx >= 0 {
			image = image[idx+1:]
		}
		if idx := strings.Index(image, ":"); idx >= 0 {
			image = image[:idx]
		}
		for prefix, t := range composeImages {
			if strings.HasPrefix(image, prefix) {
				d.add(t.Category, t.Name, rel)
			}
		}
	}
}

package archdetect

import (
	"testing"

	"github.com/oakmap/codemap/pkg/models"
)

func paths(ps ...string) []models.File {
	files := make([]models.File, len(ps))
	for i, p := range ps {
		files[i] = models.File{Path: p}
	}
	return files
}

func TestDetect_CLITool(t *testing.T) {
	files := paths(
		"cmd/tool/main.go",
		"internal/app/app.go",
		"go.mod",
	)
	stack := []models.TechStackEntry{
		{Category: models.TechTool, Name: "Cobra"},
	}

	arch := Detect(files, stack, 0.3)
	if arch.Primary.Name != "CLI Tool" {
		t.Fatalf("primary = %q, want CLI Tool (%+v)", arch.Primary.Name, arch)
	}
	if arch.Primary.Confidence != 1.0 {
		t.Errorf("confidence = %g, want 1.0", arch.Primary.Confidence)
	}
	if len(arch.Primary.Evidence) != 3 {
		t.Errorf("evidence = %v", arch.Primary.Evidence)
	}
}

func TestDetect_MVC(t *testing.T) {
	files := paths(
		"app/controllers/users_controller.rb",
		"app/models/user.rb",
		"app/services/billing.rb",
		"app/repositories/user_repo.rb",
	)

	arch := Detect(files, nil, 0.3)
	if arch.Primary.Name != "Layered (MVC)" {
		t.Fatalf("primary = %q, want Layered (MVC)", arch.Primary.Name)
	}
	if arch.Primary.Confidence != 1.0 {
		t.Errorf("confidence = %g, want 1.0", arch.Primary.Confidence)
	}
}

func TestDetect_UnclassifiedFallback(t *testing.T) {
	files := paths("foo.txt", "bar.txt")

	arch := Detect(files, nil, 0.3)
	if arch.Primary.Name != models.UnclassifiedPattern {
		t.Errorf("primary = %q, want %s", arch.Primary.Name, models.UnclassifiedPattern)
	}
	if arch.Primary.Confidence != 0 {
		t.Errorf("confidence = %g, want 0", arch.Primary.Confidence)
	}
}

func TestDetect_ConfidenceWithinBounds(t *testing.T) {
	files := paths(
		"cmd/a/main.go", "internal/core/x.go", "pkg/lib/y.go",
		"services/api/handler.go", "packages/web/package.json", "go.mod",
	)
	stack := []models.TechStackEntry{{Category: models.TechDatabase, Name: "Redis"}}

	arch := Detect(files, stack, 0.1)
	check := func(p models.ArchitecturePattern) {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("%s confidence %g out of [0,1]", p.Name, p.Confidence)
		}
	}
	check(arch.Primary)
	for _, alt := range arch.Alternates {
		check(alt)
	}
}

func TestDetect_ThresholdFiltersWeakMatches(t *testing.T) {
	// Only one of three CLI signals present.
	files := paths("src/main.go")

	arch := Detect(files, nil, 0.5)
	for _, p := range append([]models.ArchitecturePattern{arch.Primary}, arch.Alternates...) {
		if p.Name == "CLI Tool" && p.Confidence < 0.5 {
			t.Errorf("weak CLI match survived threshold: %+v", p)
		}
	}
}

func TestDetect_Deterministic(t *testing.T) {
	files := paths("cmd/x/main.go", "internal/a.go", "pkg/b.go", "go.mod")

	first := Detect(files, nil, 0.2)
	for i := 0; i < 10; i++ {
		again := Detect(files, nil, 0.2)
		if again.Primary.Name != first.Primary.Name {
			t.Fatalf("primary flapped: %q vs %q", again.Primary.Name, first.Primary.Name)
		}
	}
}

func TestDetect_SkipsRemovedFiles(t *testing.T) {
	files := paths("docs/readme.md")
	removed := models.File{Path: "cmd/tool/main.go", Status: models.StatusRemoved}
	files = append(files, removed)

	arch := Detect(files, nil, 0.3)
	if arch.Primary.Name == "CLI Tool" {
		t.Error("removed files contributed evidence")
	}
}

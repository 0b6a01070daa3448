package fileproc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/oakmap/codemap/pkg/parser"
)

func TestMapFiles_AllSucceed(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("file-%02d", i)
	}

	var ticks int64
	results, errs := MapFiles(context.Background(), files, func(p *parser.Parser, path string) (string, error) {
		if p == nil {
			t.Error("worker given nil parser")
		}
		return strings.ToUpper(path), nil
	}, func() { atomic.AddInt64(&ticks, 1) })

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("results = %d, want %d", len(results), len(files))
	}
	if n := atomic.LoadInt64(&ticks); n != int64(len(files)) {
		t.Errorf("progress ticks = %d, want %d", n, len(files))
	}

	sort.Strings(results)
	if results[0] != "FILE-00" || results[len(results)-1] != "FILE-49" {
		t.Errorf("unexpected result set: %v...%v", results[0], results[len(results)-1])
	}
}

func TestMapFiles_CollectsPerFileErrors(t *testing.T) {
	files := []string{"ok-1", "bad", "ok-2"}
	boom := errors.New("boom")

	results, errs := MapFiles(context.Background(), files, func(_ *parser.Parser, path string) (string, error) {
		if path == "bad" {
			return "", boom
		}
		return path, nil
	}, nil)

	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
	if errs == nil || !errs.HasErrors() {
		t.Fatal("errors not collected")
	}
	if len(errs.Errors) != 1 || errs.Errors[0].Path != "bad" {
		t.Errorf("errors = %v", errs.Errors)
	}
	if !errors.Is(errs.Errors[0].Err, boom) {
		t.Errorf("cause lost: %v", errs.Errors[0].Err)
	}
}

func TestMapFiles_Empty(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, func(_ *parser.Parser, path string) (int, error) {
		return 0, nil
	}, nil)
	if results != nil || errs != nil {
		t.Errorf("empty input produced %v, %v", results, errs)
	}
}

func TestMapFiles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := MapFiles(ctx, []string{"a", "b", "c"}, func(_ *parser.Parser, path string) (string, error) {
		return path, nil
	}, nil)

	if len(results) != 0 {
		t.Errorf("cancelled run produced results: %v", results)
	}
	if errs == nil || len(errs.Errors) != 3 {
		t.Fatalf("want a context error per file, got %v", errs)
	}
	for _, e := range errs.Errors {
		if !errors.Is(e.Err, context.Canceled) {
			t.Errorf("%s: %v, want context.Canceled", e.Path, e.Err)
		}
	}
}

func TestForEachFile(t *testing.T) {
	files := []string{"1", "2", "3", "4"}
	results, errs := ForEachFile(context.Background(), files, func(path string) (string, error) {
		return path + "!", nil
	}, nil)

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	sort.Strings(results)
	want := []string{"1!", "2!", "3!", "4!"}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, results[i], want[i])
		}
	}
}

func TestProcessingErrors_Messages(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("fresh collector reports errors")
	}

	errs.Add("a.go", errors.New("first"))
	if got := errs.Error(); !strings.Contains(got, "a.go") || !strings.Contains(got, "first") {
		t.Errorf("single error message = %q", got)
	}

	errs.Add("b.go", errors.New("second"))
	if got := errs.Error(); !strings.Contains(got, "2 files failed") {
		t.Errorf("multi error message = %q", got)
	}
}

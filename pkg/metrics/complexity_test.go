package metrics

import (
	"testing"

	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/parser"
)

func measure(t *testing.T, code string, lang parser.Language) []models.FunctionMetrics {
	t.Helper()
	p := parser.New()
	defer p.Close()

	result, err := p.Parse([]byte(code), lang, "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	fns := parser.GetFunctions(result)
	if len(fns) == 0 {
		t.Fatal("no functions extracted")
	}
	out := make([]models.FunctionMetrics, len(fns))
	for i, fn := range fns {
		out[i] = ForFunction(fn, []byte(code), lang)
	}
	return out
}

func TestForFunction_Go(t *testing.T) {
	code := `package main

func simple() int {
	return 42
}

func withIf(x int) int {
	if x > 0 {
		return x
	}
	return 0
}

func withLoopAndSwitch(xs []int) int {
	total := 0
	for _, x := range xs {
		switch {
		case x > 10:
			total += x
		case x > 0:
			total++
		}
	}
	return total
}
`
	m := measure(t, code, parser.LangGo)
	if len(m) != 3 {
		t.Fatalf("got %d functions, want 3", len(m))
	}

	if m[0].Cyclomatic != 1 {
		t.Errorf("simple cyclomatic = %d, want 1", m[0].Cyclomatic)
	}
	if m[0].Cognitive != 1 {
		t.Errorf("simple cognitive = %d, want 1", m[0].Cognitive)
	}

	if m[1].Cyclomatic != 2 {
		t.Errorf("withIf cyclomatic = %d, want 2", m[1].Cyclomatic)
	}

	// range + switch + two cases
	if m[2].Cyclomatic < 4 {
		t.Errorf("withLoopAndSwitch cyclomatic = %d, want >= 4", m[2].Cyclomatic)
	}
	if m[2].MaxNesting < 2 {
		t.Errorf("withLoopAndSwitch nesting = %d, want >= 2", m[2].MaxNesting)
	}
}

func TestForFunction_BooleanOperators(t *testing.T) {
	code := `package main

func guard(a, b, c bool) bool {
	if a && b || c {
		return true
	}
	return false
}
`
	m := measure(t, code, parser.LangGo)
	// 1 + if + && + ||
	if m[0].Cyclomatic != 4 {
		t.Errorf("cyclomatic = %d, want 4", m[0].Cyclomatic)
	}
}

func TestForFunction_CognitiveNestingPenalty(t *testing.T) {
	flat := `package main

func flat(a, b, c bool) int {
	n := 0
	if a {
		n++
	}
	if b {
		n++
	}
	if c {
		n++
	}
	return n
}
`
	nested := `package main

func nested(a, b, c bool) int {
	if a {
		if b {
			if c {
				return 3
			}
		}
	}
	return 0
}
`
	flatM := measure(t, flat, parser.LangGo)[0]
	nestedM := measure(t, nested, parser.LangGo)[0]

	if nestedM.Cognitive <= flatM.Cognitive {
		t.Errorf("nested cognitive %d should exceed flat %d for same branch count",
			nestedM.Cognitive, flatM.Cognitive)
	}
}

func TestForFunction_Python(t *testing.T) {
	code := `def classify(x):
    if x > 10:
        return "big"
    elif x > 0:
        return "small"
    else:
        return "none"
`
	m := measure(t, code, parser.LangPython)
	// 1 + if + elif
	if m[0].Cyclomatic != 3 {
		t.Errorf("cyclomatic = %d, want 3", m[0].Cyclomatic)
	}
}

func TestForFunction_MinimumIsOne(t *testing.T) {
	code := `package main

func empty() {}
`
	m := measure(t, code, parser.LangGo)
	if m[0].Cyclomatic < 1 || m[0].Cognitive < 1 {
		t.Errorf("metrics = %+v, both complexities must be >= 1", m[0])
	}
}

func TestForFunction_Lines(t *testing.T) {
	code := `package main

func span() {
	a := 1
	_ = a
}
`
	m := measure(t, code, parser.LangGo)
	if m[0].Lines != 4 {
		t.Errorf("lines = %d, want 4", m[0].Lines)
	}
}

package parser

import (
	"testing"
)

func parse(t *testing.T, source string, lang Language) *ParseResult {
	t.Helper()
	p := New()
	t.Cleanup(p.Close)
	result, err := p.Parse([]byte(source), lang, "test")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return result
}

func names(fns []FunctionNode) []string {
	out := make([]string, len(fns))
	for i, fn := range fns {
		out[i] = fn.Name
	}
	return out
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"main.go":           LangGo,
		"lib/mod.rs":        LangRust,
		"app.py":            LangPython,
		"index.ts":          LangTypeScript,
		"App.tsx":           LangTSX,
		"widget.jsx":        LangTSX,
		"server.mjs":        LangJavaScript,
		"Main.java":         LangJava,
		"util.c":            LangC,
		"util.hpp":          LangCPP,
		"Program.cs":        LangCSharp,
		"worker.rb":         LangRuby,
		"index.php":         LangPHP,
		"deploy.sh":         LangBash,
		"Dockerfile":        LangBash,
		"docker/Dockerfile": LangBash,
		"README.md":         LangUnknown,
		"noext":             LangUnknown,
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDetectLanguageContent_Shebang(t *testing.T) {
	cases := []struct {
		content string
		want    Language
	}{
		{"#!/usr/bin/env python3\nprint('hi')\n", LangPython},
		{"#!/usr/bin/python\nprint('hi')\n", LangPython},
		{"#!/bin/bash\nset -e\n", LangBash},
		{"#!/usr/bin/env node\nconsole.log(1)\n", LangJavaScript},
		{"#!/usr/bin/env ruby\nputs 1\n", LangRuby},
		{"plain text, no shebang\n", LangUnknown},
		{"#!\n", LangUnknown},
	}
	for _, tc := range cases {
		if got := DetectLanguageContent("script", []byte(tc.content)); got != tc.want {
			t.Errorf("shebang %q = %s, want %s", tc.content, got, tc.want)
		}
	}

	// Extension wins over content.
	if got := DetectLanguageContent("tool.rb", []byte("#!/usr/bin/env python3\n")); got != LangRuby {
		t.Errorf("extension should win, got %s", got)
	}
}

func TestGetFunctions_Go(t *testing.T) {
	result := parse(t, `package main

func helper() {}

type Server struct{}

func (s *Server) Start() error { return nil }
`, LangGo)

	fns := GetFunctions(result)
	got := names(fns)
	want := []string{"helper", "Server.Start"}
	if len(got) != len(want) {
		t.Fatalf("functions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("functions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if fns[0].StartLine != 3 || fns[0].EndLine != 3 {
		t.Errorf("helper spans %d-%d, want 3-3", fns[0].StartLine, fns[0].EndLine)
	}
	if fns[1].Body == nil {
		t.Error("method body not captured")
	}
}

func TestGetFunctions_PythonClassQualified(t *testing.T) {
	result := parse(t, `def top():
    pass

class Greeter:
    def hello(self):
        return "hi"
`, LangPython)

	got := names(GetFunctions(result))
	want := []string{"top", "Greeter.hello"}
	if len(got) != len(want) {
		t.Fatalf("functions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("functions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetFunctions_RustImplQualified(t *testing.T) {
	result := parse(t, `fn free() {}

struct Counter;

impl Counter {
    fn bump(&mut self) {}
}
`, LangRust)

	got := names(GetFunctions(result))
	want := []string{"free", "Counter.bump"}
	if len(got) != len(want) {
		t.Fatalf("functions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("functions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetFunctions_UnknownLanguage(t *testing.T) {
	p := New()
	defer p.Close()
	if _, err := p.Parse([]byte("whatever"), LangUnknown, "x"); err == nil {
		t.Error("expected error for unknown language")
	}
}

func TestGetImports_Go(t *testing.T) {
	result := parse(t, `package main

import (
	"fmt"
	"os"

	"github.com/example/dep"
)
`, LangGo)

	got := GetImports(result)
	want := []string{"fmt", "os", "github.com/example/dep"}
	if len(got) != len(want) {
		t.Fatalf("imports = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("imports[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGetImports_Python(t *testing.T) {
	result := parse(t, `import os
from collections import defaultdict
`, LangPython)

	got := GetImports(result)
	if len(got) != 2 {
		t.Fatalf("imports = %v, want 2 entries", got)
	}
	if got[0] != "os" {
		t.Errorf("imports[0] = %q, want os", got[0])
	}
	if got[1] != "collections" {
		t.Errorf("imports[1] = %q, want collections", got[1])
	}
}

func TestGetImports_JavaScript(t *testing.T) {
	result := parse(t, `import { readFile } from "node:fs";
import express from 'express';
`, LangJavaScript)

	got := GetImports(result)
	want := []string{"node:fs", "express"}
	if len(got) != len(want) {
		t.Fatalf("imports = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("imports[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCountCommentLines(t *testing.T) {
	result := parse(t, `package main

// helper does nothing.
// Really nothing.
func helper() {
	/* inline */
}
`, LangGo)

	if got := CountCommentLines(result); got != 3 {
		t.Errorf("CountCommentLines = %d, want 3", got)
	}
}

func TestExportedName(t *testing.T) {
	cases := []struct {
		name string
		lang Language
		want bool
	}{
		{"Start", LangGo, true},
		{"start", LangGo, false},
		{"Server.Start", LangGo, true},
		{"Server.start", LangGo, false},
		{"hello", LangPython, true},
		{"_private", LangPython, false},
		{"Greeter._hidden", LangPython, false},
		{"anything", LangJavaScript, true},
		{"", LangGo, false},
	}
	for _, tc := range cases {
		if got := ExportedName(tc.name, tc.lang); got != tc.want {
			t.Errorf("ExportedName(%q, %s) = %v, want %v", tc.name, tc.lang, got, tc.want)
		}
	}
}

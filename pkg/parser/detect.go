package parser

import (
	"bytes"
	"path/filepath"
	"strings"
)

// DetectLanguage determines the language from a file path alone.
func DetectLanguage(path string) Language {
	base := strings.ToLower(filepath.Base(path))
	if base == "dockerfile" {
		return LangBash
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo
	case ".rs":
		return LangRust
	case ".py", ".pyw", ".pyi":
		return LangPython
	case ".ts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsx":
		return LangTSX
	case ".java":
		return LangJava
	case ".c", ".h":
		return LangC
	case ".cpp", ".cc", ".cxx", ".hpp", ".hxx":
		return LangCPP
	case ".cs":
		return LangCSharp
	case ".rb":
		return LangRuby
	case ".php":
		return LangPHP
	case ".sh", ".bash":
		return LangBash
	default:
		return LangUnknown
	}
}

// shebangLanguages maps interpreter names to languages for files whose
// extension is ambiguous or missing. Ordered so prefix matching stays
// deterministic.
var shebangLanguages = []struct {
	name string
	lang Language
}{
	{"python", LangPython},
	{"ruby", LangRuby},
	{"node", LangJavaScript},
	{"deno", LangTypeScript},
	{"php", LangPHP},
	{"bash", LangBash},
	{"zsh", LangBash},
	{"sh", LangBash},
}

// DetectLanguageContent classifies by extension first, then sniffs the
// content (shebang line) for extensionless scripts.
func DetectLanguageContent(path string, content []byte) Language {
	if lang := DetectLanguage(path); lang != LangUnknown {
		return lang
	}
	return sniffShebang(content)
}

// sniffShebang inspects a leading #! line and maps the interpreter.
func sniffShebang(content []byte) Language {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return LangUnknown
	}
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}

	fields := strings.Fields(string(line[2:]))
	if len(fields) == 0 {
		return LangUnknown
	}

	interp := filepath.Base(fields[0])
	// `#!/usr/bin/env python3` puts the interpreter in the second field.
	if interp == "env" && len(fields) > 1 {
		interp = filepath.Base(fields[1])
	}
	// Prefix match so versioned interpreters (python3.12) still resolve.
	for _, s := range shebangLanguages {
		if strings.HasPrefix(interp, s.name) {
			return s.lang
		}
	}
	return LangUnknown
}

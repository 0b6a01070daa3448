package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// GetImports extracts import targets from parsed code, in source order.
func GetImports(result *ParseResult) []string {
	var imports []string
	root := result.Tree.RootNode()

	importTypes := importNodeTypes(result.Language)
	if len(importTypes) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(importTypes))
	for _, t := range importTypes {
		typeSet[t] = true
	}

	WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if typeSet[nodeType] {
			if imp := importPath(node, source, result.Language); imp != "" {
				imports = append(imports, imp)
			}
		}
		return true
	})

	return imports
}

// importNodeTypes returns AST node types for imports per language.
func importNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_spec"}
	case LangRust:
		return []string{"use_declaration"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"import_statement"}
	case LangJava, LangCSharp:
		return []string{"import_declaration", "using_directive"}
	case LangC, LangCPP:
		return []string{"preproc_include"}
	case LangRuby:
		return []string{"call"} // require / require_relative
	case LangPHP:
		return []string{"namespace_use_declaration", "require_expression", "include_expression"}
	default:
		return nil
	}
}

// importPath extracts the import target from an import node.
func importPath(node *sitter.Node, source []byte, lang Language) string {
	switch lang {
	case LangGo:
		return trimQuotes(GetNodeText(node.ChildByFieldName("path"), source))

	case LangRust:
		if arg := node.ChildByFieldName("argument"); arg != nil {
			return GetNodeText(arg, source)
		}

	case LangPython:
		if name := node.ChildByFieldName("module_name"); name != nil {
			return GetNodeText(name, source)
		}
		if name := node.ChildByFieldName("name"); name != nil {
			return GetNodeText(name, source)
		}

	case LangTypeScript, LangJavaScript, LangTSX:
		if src := node.ChildByFieldName("source"); src != nil {
			return trimQuotes(GetNodeText(src, source))
		}

	case LangJava, LangCSharp:
		for i := range int(node.ChildCount()) {
			child := node.Child(i)
			t := child.Type()
			if t == "scoped_identifier" || t == "identifier" || t == "qualified_name" {
				return GetNodeText(child, source)
			}
		}

	case LangC, LangCPP:
		if path := node.ChildByFieldName("path"); path != nil {
			return strings.Trim(GetNodeText(path, source), `"<>`)
		}

	case LangRuby:
		method := GetNodeText(node.ChildByFieldName("method"), source)
		if method != "require" && method != "require_relative" && method != "load" {
			return ""
		}
		if args := node.ChildByFieldName("arguments"); args != nil {
			return strings.Trim(GetNodeText(args, source), `()"' `)
		}

	case LangPHP:
		for i := range int(node.ChildCount()) {
			child := node.Child(i)
			if t := child.Type(); t == "namespace_use_clause" || t == "string" {
				return strings.Trim(GetNodeText(child, source), `"' `)
			}
		}
	}
	return ""
}

func trimQuotes(s string) string {
	return strings.Trim(s, "`\"'")
}

// CountCommentLines sums the line spans of all comment nodes.
func CountCommentLines(result *ParseResult) int {
	lines := 0
	WalkTyped(result.Tree.RootNode(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if strings.Contains(nodeType, "comment") {
			lines += int(node.EndPoint().Row-node.StartPoint().Row) + 1
			return false
		}
		return true
	})
	return lines
}

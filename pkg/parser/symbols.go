package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// FunctionNode is an extracted function or method definition.
type FunctionNode struct {
	// Name is the qualified name: `Recv.Name` for Go methods,
	// `Class.method` for class languages, the plain name otherwise.
	Name      string
	StartLine uint32
	EndLine   uint32
	Body      *sitter.Node
}

// GetFunctions extracts all function definitions from parsed code.
// Results follow source order, which is deterministic for fixed input.
func GetFunctions(result *ParseResult) []FunctionNode {
	var functions []FunctionNode
	root := result.Tree.RootNode()

	funcTypes := functionNodeTypes(result.Language)
	if len(funcTypes) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(funcTypes))
	for _, t := range funcTypes {
		typeSet[t] = true
	}

	WalkTyped(root, result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if typeSet[nodeType] {
			if fn := extractFunction(node, source, result.Language); fn != nil && fn.Name != "" {
				functions = append(functions, *fn)
			}
		}
		return true
	})

	return functions
}

// functionNodeTypes returns the AST node types for functions per language.
func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangRust:
		return []string{"function_item"}
	case LangPython:
		return []string{"function_definition"}
	case LangTypeScript, LangJavaScript, LangTSX:
		return []string{"function_declaration", "method_definition"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangC, LangCPP:
		return []string{"function_definition"}
	case LangCSharp:
		return []string{"method_declaration", "constructor_declaration"}
	case LangRuby:
		return []string{"method", "singleton_method"}
	case LangPHP:
		return []string{"function_definition", "method_declaration"}
	case LangBash:
		return []string{"function_definition"}
	default:
		return nil
	}
}

// extractFunction pulls name, range, and body out of a function node.
func extractFunction(node *sitter.Node, source []byte, lang Language) *FunctionNode {
	fn := &FunctionNode{
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
	}

	name := nodeName(node, source, lang)
	if name == "" {
		return nil
	}
	fn.Name = qualifyName(node, source, lang, name)

	fn.Body = node.ChildByFieldName("body")
	if fn.Body == nil {
		fn.Body = node.ChildByFieldName("block")
	}
	if fn.Body == nil {
		// Ruby method bodies.
		fn.Body = node.ChildByFieldName("body_statement")
	}

	return fn
}

// nodeName extracts the unqualified name of a definition node.
func nodeName(node *sitter.Node, source []byte, lang Language) string {
	if lang == LangC || lang == LangCPP {
		// C/C++ nest the name inside declarators.
		decl := node.ChildByFieldName("declarator")
		for decl != nil {
			if inner := decl.ChildByFieldName("declarator"); inner != nil {
				decl = inner
				continue
			}
			return GetNodeText(decl, source)
		}
		return ""
	}
	return GetNodeText(node.ChildByFieldName("name"), source)
}

// classNodeTypes lists the container node types used for qualification.
var classNodeTypes = map[Language][]string{
	LangGo:         nil, // methods qualify via receiver instead
	LangRust:       {"impl_item"},
	LangPython:     {"class_definition"},
	LangTypeScript: {"class_declaration"},
	LangTSX:        {"class_declaration"},
	LangJavaScript: {"class_declaration"},
	LangJava:       {"class_declaration", "interface_declaration", "enum_declaration"},
	LangCSharp:     {"class_declaration", "interface_declaration", "struct_declaration"},
	LangRuby:       {"class", "module"},
	LangPHP:        {"class_declaration", "interface_declaration", "trait_declaration"},
	LangCPP:        {"class_specifier", "struct_specifier"},
}

// qualifyName prefixes the name with its receiver or enclosing class so
// same-named methods in different containers stay distinct.
func qualifyName(node *sitter.Node, source []byte, lang Language, name string) string {
	if lang == LangGo && node.Type() == "method_declaration" {
		if recv := goReceiverType(node, source); recv != "" {
			return recv + "." + name
		}
		return name
	}

	containers := classNodeTypes[lang]
	if len(containers) == 0 {
		return name
	}

	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		for _, ct := range containers {
			if parent.Type() != ct {
				continue
			}
			owner := containerName(parent, source, lang)
			if owner != "" {
				return owner + "." + name
			}
			return name
		}
	}
	return name
}

// goReceiverType extracts the receiver type name from a Go method.
func goReceiverType(node *sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := ""
	Walk(recv, source, func(n *sitter.Node, src []byte) bool {
		if n.Type() == "type_identifier" {
			text = GetNodeText(n, src)
			return false
		}
		return true
	})
	return text
}

// containerName extracts the name of a class-like node.
func containerName(node *sitter.Node, source []byte, lang Language) string {
	if lang == LangRust {
		// impl blocks name the type in the `type` field.
		if t := node.ChildByFieldName("type"); t != nil {
			return GetNodeText(t, source)
		}
	}
	return GetNodeText(node.ChildByFieldName("name"), source)
}

// ExportedName reports whether a function name looks exported for its
// language. Best-effort: used as a ranking signal, not a contract.
func ExportedName(name string, lang Language) bool {
	base := name
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		base = name[idx+1:]
	}
	if base == "" {
		return false
	}
	switch lang {
	case LangGo:
		return base[0] >= 'A' && base[0] <= 'Z'
	case LangPython, LangRuby:
		return !strings.HasPrefix(base, "_")
	default:
		return true
	}
}

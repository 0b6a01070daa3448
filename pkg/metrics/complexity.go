// Package metrics computes complexity and quality metrics.
//
// The decision-point and cognitive node tables below are versioned:
// changing them changes metric comparability across stored snapshots,
// so TableVersion must be bumped on any edit.
package metrics

import (
	"github.com/oakmap/codemap/pkg/models"
	"github.com/oakmap/codemap/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// TableVersion identifies the complexity rule tables.
const TableVersion = 1

// ForFunction computes complexity metrics for one extracted function.
// Both cyclomatic and cognitive complexity are integers >= 1.
func ForFunction(fn parser.FunctionNode, source []byte, lang parser.Language) models.FunctionMetrics {
	m := models.FunctionMetrics{
		Cyclomatic: 1,
		Cognitive:  1,
		Lines:      int(fn.EndLine-fn.StartLine) + 1,
	}
	if fn.Body == nil {
		return m
	}

	m.Cyclomatic = 1 + CountDecisionPoints(fn.Body, source, lang)
	if cog := cognitiveComplexity(fn.Body, source, lang); cog > 1 {
		m.Cognitive = cog
	}
	m.MaxNesting = maxNesting(fn.Body, 0)
	return m
}

// CountDecisionPoints counts branching constructs for cyclomatic
// complexity, including boolean combinators.
func CountDecisionPoints(node *sitter.Node, source []byte, lang parser.Language) uint32 {
	var count uint32
	decisionTypes := makeSet(decisionNodeTypes(lang))

	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if decisionTypes[nodeType] {
			count++
		}
		if nodeType == "binary_expression" || nodeType == "logical_expression" || nodeType == "boolean_operator" {
			switch operatorOf(n, src) {
			case "&&", "||", "and", "or":
				count++
			}
		}
		return true
	})

	return count
}

// decisionNodeTypes is the per-language decision-point token table.
func decisionNodeTypes(lang parser.Language) []string {
	common := []string{
		"if_statement",
		"if_expression",
		"while_statement",
		"while_expression",
		"for_statement",
		"for_expression",
		"case_statement",
		"catch_clause",
		"ternary_expression",
		"conditional_expression",
	}

	switch lang {
	case parser.LangGo:
		return append(common, "select_statement", "type_switch_statement", "expression_switch_statement", "range_clause")
	case parser.LangRust:
		return append(common, "match_expression", "loop_expression", "if_let_expression")
	case parser.LangPython:
		return append(common, "elif_clause", "except_clause", "with_statement", "comprehension")
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return append(common, "switch_statement", "do_statement")
	case parser.LangJava, parser.LangCSharp:
		return append(common, "switch_statement", "switch_expression", "do_statement", "enhanced_for_statement")
	case parser.LangC, parser.LangCPP:
		return append(common, "switch_statement", "do_statement")
	case parser.LangRuby:
		return []string{"if", "elsif", "unless", "while", "until", "for", "case", "when", "rescue", "conditional"}
	case parser.LangPHP:
		return append(common, "switch_statement", "elseif_clause")
	default:
		return common
	}
}

// operatorOf extracts the operator token of a binary expression.
func operatorOf(node *sitter.Node, source []byte) string {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "&&", "||", "and", "or":
			return child.Type()
		case "operator":
			return parser.GetNodeText(child, source)
		}
	}
	return ""
}

// cognitiveTypeInfo separates constructs that deepen nesting from ones
// that add complexity flat.
type cognitiveTypeInfo struct {
	nesting map[string]bool
	flat    map[string]bool
}

func cognitiveTypes(lang parser.Language) cognitiveTypeInfo {
	var nesting, flat []string

	switch lang {
	case parser.LangRuby:
		nesting = []string{"if", "unless", "while", "until", "for", "case", "begin"}
		flat = []string{"elsif", "else", "when", "rescue", "break", "next", "redo"}
	default:
		nesting = []string{
			"if_statement", "if_expression",
			"while_statement", "while_expression",
			"for_statement", "for_expression",
			"switch_statement", "match_expression",
			"try_statement",
		}
		flat = []string{
			"else_clause", "elif_clause", "elseif_clause",
			"break_statement", "continue_statement",
			"goto_statement",
		}
	}

	return cognitiveTypeInfo{nesting: makeSet(nesting), flat: makeSet(flat)}
}

// cognitiveComplexity weights decision constructs by nesting depth:
// each nested control structure adds a depth-proportional penalty.
func cognitiveComplexity(node *sitter.Node, source []byte, lang parser.Language) uint32 {
	return cognitiveRecursive(node, cognitiveTypes(lang), 0)
}

func cognitiveRecursive(node *sitter.Node, info cognitiveTypeInfo, depth int) uint32 {
	var complexity uint32

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		childType := child.Type()

		switch {
		case info.nesting[childType]:
			complexity += 1 + uint32(depth)
			complexity += cognitiveRecursive(child, info, depth+1)
		case info.flat[childType]:
			complexity += 1 + uint32(depth)
			complexity += cognitiveRecursive(child, info, depth)
		default:
			complexity += cognitiveRecursive(child, info, depth)
		}
	}

	return complexity
}

var nestingTypes = makeSet([]string{
	"if_statement", "if_expression", "if", "unless",
	"while_statement", "while_expression", "while", "until",
	"for_statement", "for_expression", "for",
	"switch_statement", "match_expression", "case",
	"try_statement", "begin",
	"block", "body_statement",
	"function_definition", "function_declaration", "method",
	"lambda_expression", "arrow_function",
})

// maxNesting finds the maximum nesting depth beneath node.
func maxNesting(node *sitter.Node, depth int) int {
	maxDepth := depth

	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		childDepth := depth
		if nestingTypes[child.Type()] {
			childDepth++
		}
		if childMax := maxNesting(child, childDepth); childMax > maxDepth {
			maxDepth = childMax
		}
	}

	return maxDepth
}

func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

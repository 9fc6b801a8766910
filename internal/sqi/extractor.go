package sqi

import (
	"strings"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

// Extractor walks a parse tree and produces symbols, usages, and imports for
// one file.
type Extractor struct {
	backend parsing.Backend
	configs map[parsing.Language]languageConfig
}

// New builds an Extractor backed by the given parser backend.
func New(backend parsing.Backend) *Extractor {
	return &Extractor{backend: backend, configs: defaultLanguageConfigs()}
}

// Extract parses source and extracts symbols/usages/imports for file. lang
// is required; callers typically resolve it the same way the chunker does
// (parsing.LanguageFromExtension).
func (e *Extractor) Extract(file string, source []byte, lang parsing.Language) Result {
	if !e.backend.Supports(lang) {
		return Result{Success: false}
	}
	cfg, ok := e.configs[lang]
	if !ok {
		return Result{Success: false}
	}

	tree, err := e.backend.Parse(lang, source)
	if tree == nil {
		return Result{Success: false, Error: err}
	}
	defer tree.Close()

	root := tree.Root()

	symbols := extractSymbols(root, file, cfg)
	imports := extractImports(root, file, cfg)
	usages := extractUsages(root, file, cfg)
	usages = dedupUsages(usages)

	return Result{Symbols: symbols, Usages: usages, Imports: imports, Success: true, Error: err}
}

func extractSymbols(root parsing.Node, file string, cfg languageConfig) []Symbol {
	var out []Symbol
	if cfg.declare == nil {
		return out
	}
	parsing.Walk(root, func(n parsing.Node) bool {
		if sym, ok := cfg.declare(n); ok {
			sym.File = file
			if sym.QualifiedName == "" {
				sym.QualifiedName = qualifiedName(n, sym.Name, cfg.classKinds)
			}
			if cfg.docComment != nil && sym.Docstring == "" {
				sym.Docstring = cfg.docComment(n)
			}
			out = append(out, sym)
		}
		return true
	})
	return out
}

func extractImports(root parsing.Node, file string, cfg languageConfig) []Import {
	var out []Import
	parsing.Walk(root, func(n parsing.Node) bool {
		if cfg.importOf != nil {
			if imp, ok := cfg.importOf(n); ok {
				imp.File = file
				imp.Line = n.StartLine()
				out = append(out, imp)
			}
		}
		if cfg.requireOf != nil {
			if imp, ok := cfg.requireOf(n); ok {
				imp.File = file
				imp.Line = n.StartLine()
				out = append(out, imp)
			}
		}
		return true
	})
	return out
}

// declarationLikeKinds marks ancestor node kinds whose "name" (or parameter
// position) field identifies a thing being defined rather than referenced.
// Used to tell declarations apart from usages.
var declarationLikeKinds = map[string]bool{
	"function_declaration":  true,
	"method_declaration":    true,
	"type_spec":             true,
	"var_spec":              true,
	"const_spec":            true,
	"parameter_declaration": true,
	"import_spec":           true,
	"class_declaration":     true,
	"interface_declaration": true,
	"method_definition":     true,
	"enum_declaration":      true,
	"type_alias_declaration": true,
	"variable_declarator":   true,
	"required_parameter":    true,
	"formal_parameter":      true,
	"import_specifier":      true,
	"function_definition":   true,
	"class_definition":      true,
	"method":                true,
	"struct_item":           true,
	"function_item":         true,
	"parameter":             true,
	"field_declaration":     true,
	"struct_specifier":      true,
}

func isIdentifierKind(kind string) bool {
	return strings.HasSuffix(kind, "identifier")
}

func isDeclarationSite(n parsing.Node) bool {
	cur := n
	for depth := 0; depth < 3; depth++ {
		p := cur.Parent()
		if p == nil {
			return false
		}
		if declarationLikeKinds[p.Kind()] {
			for _, field := range []string{"name", "key"} {
				if fc, ok := p.FieldChild(field); ok && sameSpan(fc, n) {
					return true
				}
			}
		}
		cur = p
	}
	return false
}

func sameSpan(a, b parsing.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func isField(parent parsing.Node, field string, target parsing.Node) bool {
	fc, ok := parent.FieldChild(field)
	return ok && sameSpan(fc, target)
}

func extractUsages(root parsing.Node, file string, cfg languageConfig) []Usage {
	var out []Usage
	parsing.Walk(root, func(n parsing.Node) bool {
		if !isIdentifierKind(n.Kind()) {
			return true
		}
		if isDeclarationSite(n) {
			return true
		}
		name := n.Text()
		if name == "" {
			return true
		}
		out = append(out, Usage{
			SymbolName: name,
			File:       file,
			Line:       n.StartLine(),
			Column:     n.StartByte(),
			Type:       classifyUsage(n),
		})
		return true
	})
	return out
}

// classifyUsage applies the 8-way ordered rules: call, instantiate, write,
// extend, implement, type_ref, decorator, else read.
func classifyUsage(n parsing.Node) UsageType {
	parent := n.Parent()
	if parent == nil {
		return UsageRead
	}

	switch parent.Kind() {
	case "call_expression":
		if isField(parent, "function", n) {
			return UsageCall
		}
	case "new_expression":
		if isField(parent, "constructor", n) {
			return UsageInstantiate
		}
	case "composite_literal":
		if isField(parent, "type", n) {
			return UsageInstantiate
		}
	case "selector_expression", "member_expression":
		if isField(parent, "field", n) || isField(parent, "property", n) {
			if gp := parent.Parent(); gp != nil && gp.Kind() == "call_expression" && isField(gp, "function", parent) {
				return UsageCall
			}
		}
	}

	if isWriteTarget(n, parent) {
		return UsageWrite
	}

	insideDecorator := false
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "extends_clause":
			return UsageExtend
		case "implements_clause":
			return UsageImplement
		case "decorator":
			insideDecorator = true
		}
	}

	if parent.Kind() == "type_annotation" {
		return UsageTypeRef
	}
	if isField(parent, "type", n) {
		return UsageTypeRef
	}
	if insideDecorator {
		return UsageDecorator
	}

	return UsageRead
}

func isWriteTarget(n, parent parsing.Node) bool {
	switch parent.Kind() {
	case "assignment_expression", "assignment_statement", "short_var_declaration", "augmented_assignment_expression":
		if isField(parent, "left", n) {
			return true
		}
	case "expression_list":
		gp := parent.Parent()
		if gp == nil {
			return false
		}
		switch gp.Kind() {
		case "assignment_statement", "short_var_declaration":
			return isField(gp, "left", parent)
		}
	}
	return false
}

func dedupUsages(usages []Usage) []Usage {
	type key struct {
		line, col int
		name      string
	}
	seen := make(map[key]bool, len(usages))
	var out []Usage
	for _, u := range usages {
		k := key{u.Line, u.Column, u.SymbolName}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, u)
	}
	return out
}

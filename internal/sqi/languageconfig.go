package sqi

import (
	"strings"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

// languageConfig drives the generic symbol/usage/import walk in extractor.go
// with the per-language vocabulary needed to recognize declarations,
// containers, and flags. Every field is optional; nil means "this language
// doesn't have the concept".
type languageConfig struct {
	// declare recognizes a declaration node and returns the symbol it
	// produces, or false for any other node.
	declare func(n parsing.Node) (Symbol, bool)

	// classKinds are container node kinds used to build qualified names and
	// to reclassify a function as a method when nested inside one.
	classKinds map[string]bool

	// importOf extracts the one Import record rooted at n, for n's whose
	// Kind() is a recognized import-statement kind.
	importOf func(n parsing.Node) (Import, bool)

	// requireOf recognizes a commonjs/ruby-style require call anywhere in an
	// expression position (not just at statement level).
	requireOf func(n parsing.Node) (Import, bool)

	docComment func(n parsing.Node) string
}

func qualifiedName(n parsing.Node, name string, classKinds map[string]bool) string {
	var chain []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		if classKinds[p.Kind()] {
			if nameNode, ok := p.FieldChild("name"); ok {
				chain = append([]string{nameNode.Text()}, chain...)
			}
		}
	}
	chain = append(chain, name)
	return strings.Join(chain, ".")
}

func nodeName(n parsing.Node) (string, bool) {
	if nameNode, ok := n.FieldChild("name"); ok {
		return nameNode.Text(), true
	}
	if keyNode, ok := n.FieldChild("key"); ok {
		return keyNode.Text(), true
	}
	return "", false
}

func hasChildKind(n parsing.Node, kind string) bool {
	for i := 0; i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

func paramTexts(n parsing.Node, field string) []string {
	list, ok := n.FieldChild(field)
	if !ok {
		return nil
	}
	var out []string
	for i := 0; i < list.ChildCount(); i++ {
		c := list.Child(i)
		if c.IsNamed() {
			out = append(out, strings.TrimSpace(c.Text()))
		}
	}
	return out
}

// precedingComment returns the text of the named sibling comment node
// immediately preceding n among its parent's children, or "".
func precedingComment(n parsing.Node, commentKind string) string {
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	var prev parsing.Node
	for i := 0; i < parent.ChildCount(); i++ {
		c := parent.Child(i)
		if c.StartByte() == n.StartByte() && c.EndByte() == n.EndByte() {
			break
		}
		if c.Kind() == commentKind {
			prev = c
		} else if c.IsNamed() {
			prev = nil
		}
	}
	if prev == nil {
		return ""
	}
	return prev.Text()
}

// stripDocFrame turns a /** ... */ or // ... jsdoc-style comment block into a
// plain description, dropping the comment frame and any @tag lines.
func stripDocFrame(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, " ")
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func lastSegment(path string) string {
	path = stripQuotes(path)
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

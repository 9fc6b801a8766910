// Package parsing adapts tree-sitter grammars and go/ast into one generic
// parse-tree shape so the chunker and the SQI extractors can walk any
// supported language through the same Node/Tree interfaces.
package parsing

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language identifies one of the grammars this module knows how to parse.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
	LangRust       Language = "rust"
)

var extensionLanguages = map[string]Language{
	".go":   LangGo,
	".ts":   LangTypeScript,
	".tsx":  LangTSX,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".py":   LangPython,
	".java": LangJava,
	".c":    LangC,
	".h":    LangC,
	".cc":   LangCPP,
	".cpp":  LangCPP,
	".hpp":  LangCPP,
	".php":  LangPHP,
	".rb":   LangRuby,
	".rs":   LangRust,
}

// LanguageFromExtension infers a Language from a file path's extension. The
// second return value is false for unrecognized extensions.
func LanguageFromExtension(path string) (Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extensionLanguages[ext]
	return lang, ok
}

// Node is one parse-tree node, regardless of backend. Line numbers are
// 1-indexed; byte offsets are into the source buffer the owning Tree was
// parsed from.
type Node interface {
	Kind() string
	StartLine() int
	EndLine() int
	StartByte() int
	EndByte() int
	Text() string
	IsNamed() bool
	ChildCount() int
	Child(i int) Node
	FieldChild(name string) (Node, bool)
	Parent() Node
}

// Tree is a parsed file.
type Tree interface {
	Root() Node
	Language() Language
	Source() []byte
	Close()
}

// Backend parses source into a Tree for the languages it supports.
type Backend interface {
	Supports(lang Language) bool
	Parse(lang Language, source []byte) (Tree, error)
}

// dispatchingBackend routes Go to goBackend (go/ast) and everything else to
// treeSitterBackend, so callers never need to know which underlying parser
// produced a given Tree.
type dispatchingBackend struct {
	goBackend *goBackend
	ts        *treeSitterBackend
}

// NewBackend returns a Backend covering every Language this package knows:
// Go via go/ast, the rest via tree-sitter grammars.
func NewBackend() Backend {
	return &dispatchingBackend{
		goBackend: newGoBackend(),
		ts:        newTreeSitterBackend(),
	}
}

func (b *dispatchingBackend) Supports(lang Language) bool {
	return lang == LangGo || b.ts.Supports(lang)
}

func (b *dispatchingBackend) Parse(lang Language, source []byte) (Tree, error) {
	if lang == LangGo {
		return b.goBackend.Parse(source)
	}
	if !b.ts.Supports(lang) {
		return nil, fmt.Errorf("parsing: unsupported language %q", lang)
	}
	return b.ts.Parse(lang, source)
}

// Walk visits node and every descendant in document order.
func Walk(node Node, visit func(Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < node.ChildCount(); i++ {
		Walk(node.Child(i), visit)
	}
}

// FindChildByKind returns the first direct child with the given kind.
func FindChildByKind(node Node, kind string) (Node, bool) {
	if node == nil {
		return nil, false
	}
	for i := 0; i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

// FindChildrenByKind returns every direct child with the given kind.
func FindChildrenByKind(node Node, kind string) []Node {
	if node == nil {
		return nil
	}
	var out []Node
	for i := 0; i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

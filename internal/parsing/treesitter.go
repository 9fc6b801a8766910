package parsing

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// treeSitterBackend parses every non-Go language through its tree-sitter
// grammar. JavaScript reuses the TypeScript grammar, mirroring how most
// tree-sitter TS/JS tooling treats the two.
type treeSitterBackend struct {
	languages map[Language]*sitter.Language
}

func newTreeSitterBackend() *treeSitterBackend {
	return &treeSitterBackend{
		languages: map[Language]*sitter.Language{
			LangTypeScript: sitter.NewLanguage(typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(typescript.LanguageTSX()),
			LangJavaScript: sitter.NewLanguage(typescript.LanguageTypescript()),
			LangPython:     sitter.NewLanguage(python.Language()),
			LangJava:       sitter.NewLanguage(java.Language()),
			LangC:          sitter.NewLanguage(c.Language()),
			LangCPP:        sitter.NewLanguage(c.Language()),
			LangPHP:        sitter.NewLanguage(php.LanguagePHP()),
			LangRuby:       sitter.NewLanguage(ruby.Language()),
			LangRust:       sitter.NewLanguage(rust.Language()),
		},
	}
}

func (b *treeSitterBackend) Supports(lang Language) bool {
	_, ok := b.languages[lang]
	return ok
}

func (b *treeSitterBackend) Parse(lang Language, source []byte) (Tree, error) {
	grammar, ok := b.languages[lang]
	if !ok {
		return nil, fmt.Errorf("parsing: no tree-sitter grammar for %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("parsing: set language %q: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing: failed to parse %q source", lang)
	}

	return &tsTree{tree: tree, source: source, lang: lang}, nil
}

type tsTree struct {
	tree   *sitter.Tree
	source []byte
	lang   Language
}

func (t *tsTree) Root() Node       { return &tsNode{n: t.tree.RootNode(), source: t.source} }
func (t *tsTree) Language() Language { return t.lang }
func (t *tsTree) Source() []byte   { return t.source }
func (t *tsTree) Close()           { t.tree.Close() }

// tsNode adapts *sitter.Node to the generic Node interface.
type tsNode struct {
	n      *sitter.Node
	source []byte
}

func (n *tsNode) Kind() string   { return n.n.Kind() }
func (n *tsNode) StartLine() int { return int(n.n.StartPosition().Row) + 1 }
func (n *tsNode) EndLine() int   { return int(n.n.EndPosition().Row) + 1 }
func (n *tsNode) StartByte() int { return int(n.n.StartByte()) }
func (n *tsNode) EndByte() int   { return int(n.n.EndByte()) }
func (n *tsNode) IsNamed() bool  { return n.n.IsNamed() }

func (n *tsNode) Text() string {
	return string(n.source[n.n.StartByte():n.n.EndByte()])
}

func (n *tsNode) ChildCount() int { return int(n.n.ChildCount()) }

func (n *tsNode) Child(i int) Node {
	c := n.n.Child(uint(i))
	if c == nil {
		return nil
	}
	return &tsNode{n: c, source: n.source}
}

func (n *tsNode) FieldChild(name string) (Node, bool) {
	c := n.n.ChildByFieldName(name)
	if c == nil {
		return nil, false
	}
	return &tsNode{n: c, source: n.source}, true
}

func (n *tsNode) Parent() Node {
	p := n.n.Parent()
	if p == nil {
		return nil
	}
	return &tsNode{n: p, source: n.source}
}

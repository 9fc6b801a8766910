// Package chunker implements the Chunker : it walks a parsed file and
// emits function/class/method/module chunks, falling back to fixed-line
// text chunking when a language has no registered node-kind mapping or its
// grammar isn't available.
package chunker

import (
	"fmt"
	"strings"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

// SymbolKind mirrors the Chunk entity's symbol kind enum.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindClass    SymbolKind = "class"
	KindMethod   SymbolKind = "method"
	KindModule   SymbolKind = "module"
	KindOther    SymbolKind = "other"
)

// DefaultFixedLineSize is the fallback chunk size when a file can't be parsed.
const DefaultFixedLineSize = 50

// Chunk is one emitted unit of source.
type Chunk struct {
	Symbol      string
	SymbolKind  SymbolKind
	Language    parsing.Language
	ContentType string // "code", "docs", or "config"
	StartLine   int
	EndLine     int
	Content     string
}

// Result is the chunker's contract: parseFile(path, content, language?) ->
// {path, language, chunks[], success, error?}.
type Result struct {
	Path     string
	Language parsing.Language
	Chunks   []Chunk
	Success  bool
	Error    error
}

// Chunker owns a parser backend and the per-language node-kind maps.
type Chunker struct {
	backend        parsing.Backend
	fixedLineSize  int
	languageConfig map[parsing.Language]languageConfig
}

// New builds a Chunker backed by the given parser backend.
func New(backend parsing.Backend) *Chunker {
	return &Chunker{
		backend:        backend,
		fixedLineSize:  DefaultFixedLineSize,
		languageConfig: defaultLanguageConfigs(),
	}
}

// ParseFile chunks one file. If language is nil it is inferred from the
// path's extension; an unrecognized extension or an unregistered/missing
// grammar falls back to fixed-line text chunks so the file still
// contributes to search,.
func (c *Chunker) ParseFile(path string, content []byte, language *parsing.Language) Result {
	lang, ok := resolveLanguage(path, language)
	if !ok {
		return c.fixedLineResult(path, "", content)
	}

	if !c.backend.Supports(lang) {
		return c.fixedLineResult(path, lang, content)
	}

	cfg, hasConfig := c.languageConfig[lang]
	if !hasConfig {
		return c.fixedLineResult(path, lang, content)
	}

	tree, err := c.backend.Parse(lang, content)
	if tree == nil {
		return Result{Path: path, Language: lang, Success: false, Error: err}
	}
	defer tree.Close()

	chunks := chunkTree(tree.Root(), lang, cfg)
	if len(chunks) == 0 {
		chunks = []Chunk{moduleChunk(path, lang, content)}
	}

	return Result{Path: path, Language: lang, Chunks: chunks, Success: true, Error: err}
}

func resolveLanguage(path string, language *parsing.Language) (parsing.Language, bool) {
	if language != nil {
		return *language, true
	}
	return parsing.LanguageFromExtension(path)
}

func (c *Chunker) fixedLineResult(path string, lang parsing.Language, content []byte) Result {
	return Result{
		Path:     path,
		Language: lang,
		Chunks:   fixedLineChunks(lang, content, c.fixedLineSize),
		Success:  true,
	}
}

func moduleChunk(path string, lang parsing.Language, content []byte) Chunk {
	lines := strings.Count(string(content), "\n") + 1
	return Chunk{
		Symbol:      "module",
		SymbolKind:  KindModule,
		Language:    lang,
		ContentType: "code",
		StartLine:   1,
		EndLine:     lines,
		Content:     string(content),
	}
}

func fixedLineChunks(lang parsing.Language, content []byte, size int) []Chunk {
	if size <= 0 {
		size = DefaultFixedLineSize
	}
	lines := strings.Split(string(content), "\n")
	var chunks []Chunk
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, Chunk{
			Symbol:      fmt.Sprintf("lines_%d_%d", start+1, end),
			SymbolKind:  KindOther,
			Language:    lang,
			ContentType: "code",
			StartLine:   start + 1,
			EndLine:     end,
			Content:     strings.Join(lines[start:end], "\n"),
		})
	}
	return chunks
}

// languageConfig declares how one language's parse tree maps onto chunk
// symbols: which node kinds to chunk, which kinds are class-like containers
// (used to prefix nested methods with their enclosing class), and, for
// languages like Go where methods aren't lexically nested in their type,
// how to recover the receiver/owner type name instead.
type languageConfig struct {
	classify       func(n parsing.Node) (SymbolKind, bool)
	classKinds     map[string]bool
	receiverPrefix func(n parsing.Node) (string, bool)
}

func chunkTree(root parsing.Node, lang parsing.Language, cfg languageConfig) []Chunk {
	var chunks []Chunk
	parsing.Walk(root, func(n parsing.Node) bool {
		kind, ok := cfg.classify(n)
		if !ok {
			return true
		}

		prefix := ""
		if (kind == KindFunction || kind == KindMethod) && cfg.classKinds != nil {
			if className, found := enclosingClass(n, cfg.classKinds); found {
				kind = KindMethod
				prefix = className
			}
		}
		if kind == KindMethod && cfg.receiverPrefix != nil {
			if p, found := cfg.receiverPrefix(n); found {
				prefix = p
			}
		}

		name := symbolName(n)
		if name == "" {
			name = fmt.Sprintf("anonymous_%d", n.StartLine())
		} else if prefix != "" {
			name = prefix + "." + name
		}

		chunks = append(chunks, Chunk{
			Symbol:      name,
			SymbolKind:  kind,
			Language:    lang,
			ContentType: "code",
			StartLine:   n.StartLine(),
			EndLine:     n.EndLine(),
			Content:     n.Text(),
		})
		return true
	})
	return chunks
}

func symbolName(n parsing.Node) string {
	if nameNode, ok := n.FieldChild("name"); ok {
		return nameNode.Text()
	}
	return ""
}

func enclosingClass(n parsing.Node, classKinds map[string]bool) (string, bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if classKinds[p.Kind()] {
			if nameNode, ok := p.FieldChild("name"); ok {
				return nameNode.Text(), true
			}
			return "", false
		}
	}
	return "", false
}

func goReceiverPrefix(n parsing.Node) (string, bool) {
	recv, ok := n.FieldChild("receiver")
	if !ok || recv.ChildCount() == 0 {
		return "", false
	}
	item := recv.Child(0)
	typeNode, ok := item.FieldChild("type")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(typeNode.Text(), "*"), true
}

func defaultLanguageConfigs() map[parsing.Language]languageConfig {
	return map[parsing.Language]languageConfig{
		parsing.LangGo: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "function_declaration":
					return KindFunction, true
				case "method_declaration":
					return KindMethod, true
				case "type_spec":
					if t, ok := n.FieldChild("type"); ok {
						if t.Kind() == "struct_type" || t.Kind() == "interface_type" {
							return KindClass, true
						}
					}
				}
				return "", false
			},
			receiverPrefix: goReceiverPrefix,
		},
		parsing.LangTypeScript: tsLikeConfig(),
		parsing.LangTSX:        tsLikeConfig(),
		parsing.LangJavaScript: tsLikeConfig(),
		parsing.LangPython: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "class_definition":
					return KindClass, true
				case "function_definition":
					return KindFunction, true
				}
				return "", false
			},
			classKinds: map[string]bool{"class_definition": true},
		},
		parsing.LangJava: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "class_declaration", "interface_declaration", "enum_declaration":
					return KindClass, true
				case "method_declaration", "constructor_declaration":
					return KindMethod, true
				}
				return "", false
			},
			classKinds: map[string]bool{"class_declaration": true, "interface_declaration": true, "enum_declaration": true},
		},
		parsing.LangRuby: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "class", "module":
					return KindClass, true
				case "method", "singleton_method":
					return KindMethod, true
				}
				return "", false
			},
			classKinds: map[string]bool{"class": true, "module": true},
		},
		parsing.LangRust: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "struct_item", "enum_item", "trait_item", "impl_item":
					return KindClass, true
				case "function_item":
					return KindFunction, true
				}
				return "", false
			},
			classKinds: map[string]bool{"impl_item": true, "trait_item": true},
		},
		parsing.LangC: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "struct_specifier":
					return KindClass, true
				case "function_definition":
					return KindFunction, true
				}
				return "", false
			},
		},
		parsing.LangCPP: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "struct_specifier", "class_specifier":
					return KindClass, true
				case "function_definition":
					return KindFunction, true
				}
				return "", false
			},
			classKinds: map[string]bool{"struct_specifier": true, "class_specifier": true},
		},
		parsing.LangPHP: {
			classify: func(n parsing.Node) (SymbolKind, bool) {
				switch n.Kind() {
				case "class_declaration", "interface_declaration":
					return KindClass, true
				case "function_definition":
					return KindFunction, true
				case "method_declaration":
					return KindMethod, true
				}
				return "", false
			},
			classKinds: map[string]bool{"class_declaration": true, "interface_declaration": true},
		},
	}
}

func tsLikeConfig() languageConfig {
	return languageConfig{
		classify: func(n parsing.Node) (SymbolKind, bool) {
			switch n.Kind() {
			case "class_declaration", "interface_declaration":
				return KindClass, true
			case "method_definition":
				return KindMethod, true
			case "function_declaration", "function_expression", "arrow_function", "generator_function_declaration":
				return KindFunction, true
			}
			return "", false
		},
		classKinds: map[string]bool{"class_declaration": true},
	}
}

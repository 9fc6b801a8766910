// Package sqi implements the Structural Query Index extractors and
// the post-extraction usage linker: walking a parsed file to emit
// symbols, usages, and imports, then binding each usage to its defining and
// enclosing symbol.
package sqi

// SymbolKind is an open enum; languages populate it with whatever concrete
// kinds their grammar distinguishes.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindMethod    SymbolKind = "method"
	KindField     SymbolKind = "field"
	KindInterface SymbolKind = "interface"
	KindTypeAlias SymbolKind = "type_alias"
	KindEnum      SymbolKind = "enum"
	KindNamespace SymbolKind = "namespace"
	KindModule    SymbolKind = "module"
	KindProperty  SymbolKind = "property"
	KindVariable  SymbolKind = "variable"
	KindConstant  SymbolKind = "constant"
	KindStruct    SymbolKind = "struct"
	KindTrait     SymbolKind = "trait"
	KindImpl      SymbolKind = "impl"
)

// Visibility reflects an accessibility modifier, when the language has one.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
	VisibilityUndefined Visibility = "undefined"
)

// UsageType classifies how a symbol name is referenced at a usage site.
type UsageType string

const (
	UsageRead        UsageType = "read"
	UsageWrite       UsageType = "write"
	UsageCall        UsageType = "call"
	UsageInstantiate UsageType = "instantiate"
	UsageExtend      UsageType = "extend"
	UsageImplement   UsageType = "implement"
	UsageTypeRef     UsageType = "type_ref"
	UsageDecorator   UsageType = "decorator"
)

// Symbol is one declaration extracted from a parse tree.
type Symbol struct {
	Name          string
	QualifiedName string
	Kind          SymbolKind
	File          string
	StartLine     int
	EndLine       int
	Visibility    Visibility
	IsAsync       bool
	IsStatic      bool
	IsExported    bool
	ReturnType    string
	Parameters    []string
	Docstring     string
	ContentHash   string
}

// Usage is one reference to a symbol name. Enclosing/Definition
// are populated by the linker and are zero values until then.
type Usage struct {
	SymbolName       string
	File             string
	Line             int
	Column           int
	Type             UsageType
	EnclosingSymbol  string
	DefinitionSymbol string
	// DefinitionAmbiguous is set by the linker when more than one candidate
	// definition survived the resolution chain and a fallback had to pick.
	DefinitionAmbiguous bool
}

// Binding is one name bound by an import statement.
type Binding struct {
	ImportedName string
	LocalName    string
	IsTypeOnly   bool
}

// Import is one import/require/use statement.
type Import struct {
	File             string
	Line             int
	Type             string // es_import, commonjs, go_import, python_import, ...
	ModuleSpecifier  string
	Bindings         []Binding
}

// Result is the extractor's contract: extract(tree, file, source) ->
// {symbols[], usages[], imports[], success}.
type Result struct {
	Symbols []Symbol
	Usages  []Usage
	Imports []Import
	Success bool
	Error   error
}

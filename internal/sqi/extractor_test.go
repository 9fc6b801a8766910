package sqi

// Test Plan for the SQI extractor and linker:
// - Go: extracts function/method/struct symbols, qualifies methods by receiver, records imports
// - Go: classifies a call usage and a write usage inside a function body
// - TypeScript: extracts a class symbol, marks it exported, extracts named imports
// - TypeScript: classifies an extends-clause usage
// - Linker: resolves enclosing symbol and picks the same-file definition when names collide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

func TestExtract_GoSymbolsAndImports(t *testing.T) {
	e := New(parsing.NewBackend())
	src := `package widgets

import "fmt"

// Widget represents a thing.
type Widget struct {
	Name string
}

func NewWidget(name string) *Widget {
	w := &Widget{Name: name}
	fmt.Println(w.Name)
	return w
}

func (w *Widget) Greet() string {
	return w.Name
}
`
	result := e.Extract("widget.go", []byte(src), parsing.LangGo)
	require.True(t, result.Success)
	require.NoError(t, result.Error)

	var names []string
	var qualified []string
	for _, s := range result.Symbols {
		names = append(names, s.Name)
		qualified = append(qualified, s.QualifiedName)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "NewWidget")
	assert.Contains(t, qualified, "Widget.Greet")

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "go_import", result.Imports[0].Type)
	assert.Equal(t, "fmt", result.Imports[0].ModuleSpecifier)

	var sawCall, sawWrite bool
	for _, u := range result.Usages {
		if u.SymbolName == "Println" && u.Type == UsageCall {
			sawCall = true
		}
		if u.SymbolName == "w" && u.Type == UsageWrite {
			sawWrite = true
		}
	}
	assert.True(t, sawCall, "expected a call usage for fmt.Println")
	assert.True(t, sawWrite, "expected a write usage for w := ...")
}

func TestExtract_GoStructSymbolIsExportedByCase(t *testing.T) {
	e := New(parsing.NewBackend())
	result := e.Extract("x.go", []byte("package x\n\ntype widget struct{}\n"), parsing.LangGo)
	require.True(t, result.Success)
	require.Len(t, result.Symbols, 1)
	assert.False(t, result.Symbols[0].IsExported)
	assert.Equal(t, VisibilityPrivate, result.Symbols[0].Visibility)
}

func TestExtract_TypeScriptClassAndImports(t *testing.T) {
	e := New(parsing.NewBackend())
	src := `import { Logger } from "./logger";

export class Greeter {
  private name: string;

  greet(): string {
    return "hi " + this.name;
  }
}
`
	result := e.Extract("greeter.ts", []byte(src), parsing.LangTypeScript)
	require.True(t, result.Success)

	var found bool
	for _, s := range result.Symbols {
		if s.Name == "Greeter" {
			found = true
			assert.True(t, s.IsExported)
		}
	}
	assert.True(t, found)

	require.Len(t, result.Imports, 1)
	assert.Equal(t, "es_import", result.Imports[0].Type)
	assert.Equal(t, "./logger", result.Imports[0].ModuleSpecifier)
	require.Len(t, result.Imports[0].Bindings, 1)
	assert.Equal(t, "Logger", result.Imports[0].Bindings[0].LocalName)
}

func TestExtract_TypeScriptExtendsClauseIsClassified(t *testing.T) {
	e := New(parsing.NewBackend())
	src := `class Base {}
class Derived extends Base {}
`
	result := e.Extract("classes.ts", []byte(src), parsing.LangTypeScript)
	require.True(t, result.Success)

	var sawExtend bool
	for _, u := range result.Usages {
		if u.SymbolName == "Base" && u.Type == UsageExtend {
			sawExtend = true
		}
	}
	assert.True(t, sawExtend)
}

func TestLinker_ResolvesEnclosingAndSameFileDefinition(t *testing.T) {
	symbols := []Symbol{
		{Name: "Helper", File: "a.go", StartLine: 1, EndLine: 5, QualifiedName: "a.Helper"},
		{Name: "run", File: "a.go", StartLine: 10, EndLine: 20, QualifiedName: "a.run"},
		{Name: "Helper", File: "b.go", StartLine: 1, EndLine: 5, QualifiedName: "b.Helper"},
	}
	usages := []Usage{
		{SymbolName: "Helper", File: "a.go", Line: 15},
	}

	linked := NewLinker().Link(usages, symbols)
	require.Len(t, linked, 1)
	assert.Equal(t, "a.run", linked[0].EnclosingSymbol)
	assert.Equal(t, "a.Helper", linked[0].DefinitionSymbol)
	assert.False(t, linked[0].DefinitionAmbiguous)
}

func TestLinker_FallsBackWhenAmbiguous(t *testing.T) {
	symbols := []Symbol{
		{Name: "Run", File: "a.go", StartLine: 1, EndLine: 5},
		{Name: "Run", File: "b.go", StartLine: 1, EndLine: 5},
	}
	usages := []Usage{
		{SymbolName: "Run", File: "c.go", Line: 3},
	}
	linked := NewLinker().Link(usages, symbols)
	require.Len(t, linked, 1)
	assert.NotEmpty(t, linked[0].DefinitionSymbol)
	assert.True(t, linked[0].DefinitionAmbiguous)
}

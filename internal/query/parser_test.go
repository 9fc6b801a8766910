package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_DefinitionIntent(t *testing.T) {
	p := Parse("where is Greet defined")
	require.Equal(t, IntentDefinition, p.Intent)
	require.Contains(t, p.SymbolTerms, "Greet")
}

func TestParse_UsageIntent(t *testing.T) {
	p := Parse("usages of parseConfig")
	require.Equal(t, IntentUsage, p.Intent)
	require.Contains(t, p.SymbolTerms, "parseConfig")
}

func TestParse_GeneralIntentByDefault(t *testing.T) {
	p := Parse("retry loop for the http client")
	require.Equal(t, IntentGeneral, p.Intent)
}

func TestParse_SymbolTypeKeywords(t *testing.T) {
	p := Parse("which function handles retries")
	require.Contains(t, p.SymbolTypes, "function")
}

func TestParse_DocsContentType(t *testing.T) {
	p := Parse("find the documentation for setup")
	require.Equal(t, []string{"docs"}, p.ContentTypes)
}

func TestParse_ConfigContentType(t *testing.T) {
	p := Parse("where is the yaml config for batching")
	require.Equal(t, []string{"config"}, p.ContentTypes)
}

func TestParse_DefaultsToCodeContentType(t *testing.T) {
	p := Parse("retry loop")
	require.Equal(t, []string{"code"}, p.ContentTypes)
}

func TestParse_SnakeCaseSymbolTerm(t *testing.T) {
	p := Parse("who calls call_site here")
	require.Contains(t, p.SymbolTerms, "call_site")
}

func TestParse_ForEmbeddingStripsIntentKeywords(t *testing.T) {
	p := Parse("where is Greet defined")
	require.NotContains(t, p.ForEmbedding, "where is")
	require.Contains(t, p.ForEmbedding, "Greet")
}

func TestParse_EmptyQueryDegradesGracefully(t *testing.T) {
	p := Parse("")
	require.Equal(t, IntentGeneral, p.Intent)
	require.Equal(t, []string{"code"}, p.ContentTypes)
	require.Empty(t, p.SymbolTerms)
}

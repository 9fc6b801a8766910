package dedup

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/stefan-kp/sourcerack-sub001/internal/sqi"
)

var namespaceSymbols = uuid.MustParse("9c5a2e1d-4b3f-4e7a-8c6d-2f1a3b4c5d7e")

const bindingSeparator = "\x1f"

func symbolID(commitID string, s sqi.Symbol) string {
	key := fmt.Sprintf("%s\x1f%s\x1f%s\x1f%d\x1f%d", commitID, s.File, s.QualifiedName, s.StartLine, s.EndLine)
	return uuid.NewSHA1(namespaceSymbols, []byte(key)).String()
}

// PersistSymbols writes one commit's extracted symbols.
func (s *Store) PersistSymbols(commitID, language string, symbols []sqi.Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin persist symbols: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO symbols
		(id, commit_id, name, qualified_name, kind, language, file, start_line, end_line,
		 visibility, is_async, is_static, is_exported, return_type, parameters, docstring, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare symbol insert: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		_, err := stmt.Exec(
			symbolID(commitID, sym), commitID, sym.Name, sym.QualifiedName, string(sym.Kind), language, sym.File,
			sym.StartLine, sym.EndLine, string(sym.Visibility), sym.IsAsync, sym.IsStatic, sym.IsExported,
			sym.ReturnType, strings.Join(sym.Parameters, bindingSeparator), sym.Docstring, sym.ContentHash,
		)
		if err != nil {
			return fmt.Errorf("dedup: insert symbol: %w", err)
		}
	}
	return tx.Commit()
}

// PersistUsages writes one commit's extracted (and possibly linked) usages.
func (s *Store) PersistUsages(commitID string, usages []sqi.Usage) error {
	if len(usages) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin persist usages: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO usages
		(commit_id, symbol_name, file, line, column, usage_type, enclosing_symbol, definition_symbol, definition_ambiguous)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range usages {
		_, err := stmt.Exec(commitID, u.SymbolName, u.File, u.Line, u.Column, string(u.Type),
			u.EnclosingSymbol, u.DefinitionSymbol, u.DefinitionAmbiguous)
		if err != nil {
			return fmt.Errorf("dedup: insert usage: %w", err)
		}
	}
	return tx.Commit()
}

// PersistImports writes one commit's extracted imports and their bindings.
func (s *Store) PersistImports(commitID string, imports []sqi.Import) error {
	if len(imports) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin persist imports: %w", err)
	}
	defer tx.Rollback()

	importStmt, err := tx.Prepare(`INSERT INTO imports (commit_id, file, line, type, module_specifier) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare import insert: %w", err)
	}
	defer importStmt.Close()

	bindingStmt, err := tx.Prepare(`INSERT INTO import_bindings (import_id, imported_name, local_name, is_type_only) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dedup: prepare binding insert: %w", err)
	}
	defer bindingStmt.Close()

	for _, imp := range imports {
		res, err := importStmt.Exec(commitID, imp.File, imp.Line, imp.Type, imp.ModuleSpecifier)
		if err != nil {
			return fmt.Errorf("dedup: insert import: %w", err)
		}
		importID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("dedup: import insert id: %w", err)
		}
		for _, b := range imp.Bindings {
			if _, err := bindingStmt.Exec(importID, b.ImportedName, b.LocalName, b.IsTypeOnly); err != nil {
				return fmt.Errorf("dedup: insert binding: %w", err)
			}
		}
	}
	return tx.Commit()
}

// DeleteSQIForFiles removes symbols/usages/imports rows scoped to one commit
// for a set of files. Used by the incremental indexer to avoid duplicate
// rows when re-extracting a changed file on top of a base-commit copy.
func (s *Store) DeleteSQIForFiles(commitID string, files map[string]bool) error {
	if len(files) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin delete sqi: %w", err)
	}
	defer tx.Rollback()

	for file := range files {
		if _, err := tx.Exec(`DELETE FROM symbols WHERE commit_id = ? AND file = ?`, commitID, file); err != nil {
			return fmt.Errorf("dedup: delete symbols for file: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM usages WHERE commit_id = ? AND file = ?`, commitID, file); err != nil {
			return fmt.Errorf("dedup: delete usages for file: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM imports WHERE commit_id = ? AND file = ?`, commitID, file); err != nil {
			return fmt.Errorf("dedup: delete imports for file: %w", err)
		}
	}
	return tx.Commit()
}

// CopySQIExcluding copies every symbol/usage/import row from baseCommitID to
// newCommitID, skipping rows whose file is in exclude. This is how the
// incremental indexer preserves SQI data for files unchanged by a diff
// without re-running extraction.
func (s *Store) CopySQIExcluding(baseCommitID, newCommitID string, exclude map[string]bool) error {
	baseSymbols, err := s.symbolsForCommit(baseCommitID)
	if err != nil {
		return err
	}
	baseUsages, err := s.usagesForCommit(baseCommitID)
	if err != nil {
		return err
	}
	baseImports, err := s.importsForCommit(baseCommitID)
	if err != nil {
		return err
	}

	for lang, syms := range baseSymbols {
		var kept []sqi.Symbol
		for _, sym := range syms {
			if !exclude[sym.File] {
				kept = append(kept, sym)
			}
		}
		if err := s.PersistSymbols(newCommitID, lang, kept); err != nil {
			return err
		}
	}

	var usages []sqi.Usage
	for _, u := range baseUsages {
		if !exclude[u.File] {
			usages = append(usages, u)
		}
	}
	if err := s.PersistUsages(newCommitID, usages); err != nil {
		return err
	}

	var imports []sqi.Import
	for _, imp := range baseImports {
		if !exclude[imp.File] {
			imports = append(imports, imp)
		}
	}
	return s.PersistImports(newCommitID, imports)
}

// symbolsForCommit returns every symbol in a commit, grouped by language, so
// CopySQIExcluding can call PersistSymbols once per language (its signature
// takes a single language for the whole batch).
func (s *Store) symbolsForCommit(commitID string) (map[string][]sqi.Symbol, error) {
	rows, err := s.db.Query(`SELECT name, qualified_name, kind, language, file, start_line, end_line,
		visibility, is_async, is_static, is_exported, return_type, parameters, docstring, content_hash
		FROM symbols WHERE commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: symbols for commit: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]sqi.Symbol)
	for rows.Next() {
		var sym sqi.Symbol
		var kind, visibility, language, params string
		if err := rows.Scan(&sym.Name, &sym.QualifiedName, &kind, &language, &sym.File, &sym.StartLine, &sym.EndLine,
			&visibility, &sym.IsAsync, &sym.IsStatic, &sym.IsExported, &sym.ReturnType, &params, &sym.Docstring, &sym.ContentHash); err != nil {
			return nil, fmt.Errorf("dedup: scan symbol: %w", err)
		}
		sym.Kind = sqi.SymbolKind(kind)
		sym.Visibility = sqi.Visibility(visibility)
		if params != "" {
			sym.Parameters = strings.Split(params, bindingSeparator)
		}
		out[language] = append(out[language], sym)
	}
	return out, rows.Err()
}

func (s *Store) usagesForCommit(commitID string) ([]sqi.Usage, error) {
	rows, err := s.db.Query(`SELECT symbol_name, file, line, column, usage_type, enclosing_symbol, definition_symbol, definition_ambiguous
		FROM usages WHERE commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: usages for commit: %w", err)
	}
	defer rows.Close()

	var out []sqi.Usage
	for rows.Next() {
		var u sqi.Usage
		var usageType string
		if err := rows.Scan(&u.SymbolName, &u.File, &u.Line, &u.Column, &usageType, &u.EnclosingSymbol, &u.DefinitionSymbol, &u.DefinitionAmbiguous); err != nil {
			return nil, fmt.Errorf("dedup: scan usage: %w", err)
		}
		u.Type = sqi.UsageType(usageType)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) importsForCommit(commitID string) ([]sqi.Import, error) {
	rows, err := s.db.Query(`SELECT id, file, line, type, module_specifier FROM imports WHERE commit_id = ?`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: imports for commit: %w", err)
	}
	defer rows.Close()

	var out []sqi.Import
	var ids []int64
	for rows.Next() {
		var id int64
		var imp sqi.Import
		if err := rows.Scan(&id, &imp.File, &imp.Line, &imp.Type, &imp.ModuleSpecifier); err != nil {
			return nil, fmt.Errorf("dedup: scan import: %w", err)
		}
		ids = append(ids, id)
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		bindings, err := s.bindingsForImport(id)
		if err != nil {
			return nil, err
		}
		out[i].Bindings = bindings
	}
	return out, nil
}

func (s *Store) bindingsForImport(importID int64) ([]sqi.Binding, error) {
	rows, err := s.db.Query(`SELECT imported_name, local_name, is_type_only FROM import_bindings WHERE import_id = ?`, importID)
	if err != nil {
		return nil, fmt.Errorf("dedup: bindings for import: %w", err)
	}
	defer rows.Close()

	var out []sqi.Binding
	for rows.Next() {
		var b sqi.Binding
		if err := rows.Scan(&b.ImportedName, &b.LocalName, &b.IsTypeOnly); err != nil {
			return nil, fmt.Errorf("dedup: scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindDefinition returns every symbol named name within a commit.
func (s *Store) FindDefinition(commitID, name string) ([]sqi.Symbol, error) {
	return s.querySymbols(`SELECT name, qualified_name, kind, language, file, start_line, end_line,
		visibility, is_async, is_static, is_exported, return_type, parameters, docstring, content_hash
		FROM symbols WHERE commit_id = ? AND name = ?`, commitID, name)
}

// FindUsages returns every usage of name within a commit.
func (s *Store) FindUsages(commitID, name string) ([]sqi.Usage, error) {
	rows, err := s.db.Query(`SELECT symbol_name, file, line, column, usage_type, enclosing_symbol, definition_symbol, definition_ambiguous
		FROM usages WHERE commit_id = ? AND symbol_name = ? ORDER BY file, line`, commitID, name)
	if err != nil {
		return nil, fmt.Errorf("dedup: find usages: %w", err)
	}
	defer rows.Close()

	var out []sqi.Usage
	for rows.Next() {
		var u sqi.Usage
		var usageType string
		if err := rows.Scan(&u.SymbolName, &u.File, &u.Line, &u.Column, &usageType, &u.EnclosingSymbol, &u.DefinitionSymbol, &u.DefinitionAmbiguous); err != nil {
			return nil, fmt.Errorf("dedup: scan usage: %w", err)
		}
		u.Type = sqi.UsageType(usageType)
		out = append(out, u)
	}
	return out, rows.Err()
}

// FindImports returns the imports declared in one file.
func (s *Store) FindImports(commitID, file string) ([]sqi.Import, error) {
	rows, err := s.db.Query(`SELECT id, file, line, type, module_specifier FROM imports WHERE commit_id = ? AND file = ?`, commitID, file)
	if err != nil {
		return nil, fmt.Errorf("dedup: find imports: %w", err)
	}
	var out []sqi.Import
	var ids []int64
	for rows.Next() {
		var id int64
		var imp sqi.Import
		if err := rows.Scan(&id, &imp.File, &imp.Line, &imp.Type, &imp.ModuleSpecifier); err != nil {
			rows.Close()
			return nil, fmt.Errorf("dedup: scan import: %w", err)
		}
		ids = append(ids, id)
		out = append(out, imp)
	}
	rows.Close()
	for i, id := range ids {
		bindings, err := s.bindingsForImport(id)
		if err != nil {
			return nil, err
		}
		out[i].Bindings = bindings
	}
	return out, nil
}

// FindImporters returns every import statement across the commit whose
// module specifier matches moduleSpecifier.
func (s *Store) FindImporters(commitID, moduleSpecifier string) ([]sqi.Import, error) {
	rows, err := s.db.Query(`SELECT id, file, line, type, module_specifier FROM imports WHERE commit_id = ? AND module_specifier = ?`,
		commitID, moduleSpecifier)
	if err != nil {
		return nil, fmt.Errorf("dedup: find importers: %w", err)
	}
	var out []sqi.Import
	var ids []int64
	for rows.Next() {
		var id int64
		var imp sqi.Import
		if err := rows.Scan(&id, &imp.File, &imp.Line, &imp.Type, &imp.ModuleSpecifier); err != nil {
			rows.Close()
			return nil, fmt.Errorf("dedup: scan import: %w", err)
		}
		ids = append(ids, id)
		out = append(out, imp)
	}
	rows.Close()
	for i, id := range ids {
		bindings, err := s.bindingsForImport(id)
		if err != nil {
			return nil, err
		}
		out[i].Bindings = bindings
	}
	return out, nil
}

// HierarchyEdges returns (subclass, superclass) pairs for every extend or
// implement usage in the commit, the raw material the query engine turns
// into a traversable graph for findHierarchy.
func (s *Store) HierarchyEdges(commitID string) ([][2]string, error) {
	rows, err := s.db.Query(`SELECT enclosing_symbol, symbol_name FROM usages
		WHERE commit_id = ? AND usage_type IN ('extend', 'implement') AND enclosing_symbol != ''`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: hierarchy edges: %w", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			return nil, fmt.Errorf("dedup: scan hierarchy edge: %w", err)
		}
		out = append(out, [2]string{child, parent})
	}
	return out, rows.Err()
}

// CodebaseSummary aggregates symbol counts by language and kind for a commit.
type CodebaseSummary struct {
	TotalSymbols int
	ByLanguage   map[string]int
	ByKind       map[string]int
}

// CodebaseSummary reports aggregate symbol counts for a commit, grouped by
// language and by symbol kind.
func (s *Store) CodebaseSummary(commitID string) (*CodebaseSummary, error) {
	summary := &CodebaseSummary{ByLanguage: map[string]int{}, ByKind: map[string]int{}}

	rows, err := s.db.Query(`SELECT language, kind, COUNT(*) FROM symbols WHERE commit_id = ? GROUP BY language, kind`, commitID)
	if err != nil {
		return nil, fmt.Errorf("dedup: codebase summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var language, kind string
		var count int
		if err := rows.Scan(&language, &kind, &count); err != nil {
			return nil, fmt.Errorf("dedup: scan summary row: %w", err)
		}
		summary.ByLanguage[language] += count
		summary.ByKind[kind] += count
		summary.TotalSymbols += count
	}
	return summary, rows.Err()
}

// FuzzySymbols returns symbols in a commit whose name contains term
// (case-insensitive) or matches exactly, restricted to the given kinds when
// kinds is non-empty.
func (s *Store) FuzzySymbols(commitID, term string, kinds []string) ([]sqi.Symbol, error) {
	query := `SELECT name, qualified_name, kind, language, file, start_line, end_line,
		visibility, is_async, is_static, is_exported, return_type, parameters, docstring, content_hash
		FROM symbols WHERE commit_id = ? AND name LIKE ?`
	args := []any{commitID, "%" + term + "%"}

	if len(kinds) > 0 {
		placeholders := make([]byte, 0, len(kinds)*2)
		for i, k := range kinds {
			if i > 0 {
				placeholders = append(placeholders, ',')
			}
			placeholders = append(placeholders, '?')
			args = append(args, k)
		}
		query += fmt.Sprintf(" AND kind IN (%s)", string(placeholders))
	}

	return s.querySymbols(query, args...)
}

func (s *Store) querySymbols(query string, args ...any) ([]sqi.Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("dedup: query symbols: %w", err)
	}
	defer rows.Close()

	var out []sqi.Symbol
	for rows.Next() {
		var sym sqi.Symbol
		var kind, visibility, language, params string
		if err := rows.Scan(&sym.Name, &sym.QualifiedName, &kind, &language, &sym.File, &sym.StartLine, &sym.EndLine,
			&visibility, &sym.IsAsync, &sym.IsStatic, &sym.IsExported, &sym.ReturnType, &params, &sym.Docstring, &sym.ContentHash); err != nil {
			return nil, fmt.Errorf("dedup: scan symbol: %w", err)
		}
		sym.Kind = sqi.SymbolKind(kind)
		sym.Visibility = sqi.Visibility(visibility)
		if params != "" {
			sym.Parameters = strings.Split(params, bindingSeparator)
		}
		_ = language
		out = append(out, sym)
	}
	return out, rows.Err()
}

package dedup

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 2

const createMetaTable = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
)`

const createRepositoriesTable = `
CREATE TABLE IF NOT EXISTS repositories (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const createIndexedCommitsTable = `
CREATE TABLE IF NOT EXISTS indexed_commits (
	id               TEXT PRIMARY KEY,
	repo_id          TEXT NOT NULL REFERENCES repositories(id),
	sha              TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'pending',
	embedding_status TEXT NOT NULL DEFAULT 'pending',
	chunk_count      INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE(repo_id, sha)
)`

const createChunkRefsTable = `
CREATE TABLE IF NOT EXISTS chunk_refs (
	chunk_id  TEXT NOT NULL,
	commit_id TEXT NOT NULL REFERENCES indexed_commits(id),
	PRIMARY KEY (chunk_id, commit_id)
)`

const createFileBlobsTable = `
CREATE TABLE IF NOT EXISTS file_blobs (
	commit_id TEXT NOT NULL REFERENCES indexed_commits(id),
	path      TEXT NOT NULL,
	blob_sha  TEXT NOT NULL,
	UNIQUE(commit_id, path)
)`

const createBlobChunksTable = `
CREATE TABLE IF NOT EXISTS blob_chunks (
	blob_sha TEXT NOT NULL,
	chunk_id TEXT NOT NULL,
	PRIMARY KEY (blob_sha, chunk_id)
)`

const createGCCandidatesTable = `
CREATE TABLE IF NOT EXISTS gc_candidates (
	commit_id   TEXT NOT NULL PRIMARY KEY,
	orphaned_at TEXT NOT NULL,
	eligible_at TEXT NOT NULL
)`

// SQI tables: symbols, usages, and imports are scoped to the commit that
// produced them (§3 "Symbols are scoped to a commit"). The incremental
// indexer copies rows forward for unchanged files rather than re-extracting.

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
	id             TEXT NOT NULL,
	commit_id      TEXT NOT NULL REFERENCES indexed_commits(id),
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	kind           TEXT NOT NULL,
	language       TEXT NOT NULL,
	file           TEXT NOT NULL,
	start_line     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	visibility     TEXT NOT NULL DEFAULT 'undefined',
	is_async       INTEGER NOT NULL DEFAULT 0,
	is_static      INTEGER NOT NULL DEFAULT 0,
	is_exported    INTEGER NOT NULL DEFAULT 0,
	return_type    TEXT NOT NULL DEFAULT '',
	parameters     TEXT NOT NULL DEFAULT '',
	docstring      TEXT NOT NULL DEFAULT '',
	content_hash   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (id, commit_id)
)`

const createUsagesTable = `
CREATE TABLE IF NOT EXISTS usages (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id            TEXT NOT NULL REFERENCES indexed_commits(id),
	symbol_name          TEXT NOT NULL,
	file                 TEXT NOT NULL,
	line                 INTEGER NOT NULL,
	column               INTEGER NOT NULL,
	usage_type           TEXT NOT NULL,
	enclosing_symbol     TEXT NOT NULL DEFAULT '',
	definition_symbol    TEXT NOT NULL DEFAULT '',
	definition_ambiguous INTEGER NOT NULL DEFAULT 0
)`

const createImportsTable = `
CREATE TABLE IF NOT EXISTS imports (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	commit_id        TEXT NOT NULL REFERENCES indexed_commits(id),
	file             TEXT NOT NULL,
	line             INTEGER NOT NULL,
	type             TEXT NOT NULL,
	module_specifier TEXT NOT NULL
)`

const createImportBindingsTable = `
CREATE TABLE IF NOT EXISTS import_bindings (
	import_id     INTEGER NOT NULL REFERENCES imports(id),
	imported_name TEXT NOT NULL,
	local_name    TEXT NOT NULL,
	is_type_only  INTEGER NOT NULL DEFAULT 0
)`

var schemaIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_indexed_commits_repo ON indexed_commits(repo_id)",
	"CREATE INDEX IF NOT EXISTS idx_chunk_refs_commit ON chunk_refs(commit_id)",
	"CREATE INDEX IF NOT EXISTS idx_chunk_refs_chunk ON chunk_refs(chunk_id)",
	"CREATE INDEX IF NOT EXISTS idx_file_blobs_commit ON file_blobs(commit_id)",
	"CREATE INDEX IF NOT EXISTS idx_file_blobs_blob ON file_blobs(blob_sha)",
	"CREATE INDEX IF NOT EXISTS idx_blob_chunks_blob ON blob_chunks(blob_sha)",
	"CREATE INDEX IF NOT EXISTS idx_gc_candidates_eligible ON gc_candidates(eligible_at)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_commit ON symbols(commit_id)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
	"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(commit_id, file)",
	"CREATE INDEX IF NOT EXISTS idx_usages_commit ON usages(commit_id)",
	"CREATE INDEX IF NOT EXISTS idx_usages_name ON usages(symbol_name)",
	"CREATE INDEX IF NOT EXISTS idx_usages_file ON usages(commit_id, file)",
	"CREATE INDEX IF NOT EXISTS idx_imports_commit ON imports(commit_id)",
	"CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(commit_id, file)",
	"CREATE INDEX IF NOT EXISTS idx_imports_specifier ON imports(module_specifier)",
	"CREATE INDEX IF NOT EXISTS idx_import_bindings_import ON import_bindings(import_id)",
}

// createSchema creates all tables and indexes inside one transaction, and
// migrates forward from whatever version is currently recorded.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("dedup: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("dedup: enable foreign keys: %w", err)
	}

	tables := []string{
		createMetaTable,
		createRepositoriesTable,
		createIndexedCommitsTable,
		createChunkRefsTable,
		createFileBlobsTable,
		createBlobChunksTable,
		createGCCandidatesTable,
		createSymbolsTable,
		createUsagesTable,
		createImportsTable,
		createImportBindingsTable,
	}
	for _, ddl := range tables {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("dedup: create table: %w", err)
		}
	}

	for _, idx := range schemaIndexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("dedup: create index: %w", err)
		}
	}

	version, err := readSchemaVersion(tx)
	if err != nil {
		return err
	}
	if version == 0 {
		if _, err := tx.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("dedup: seed schema version: %w", err)
		}
	} else if version < schemaVersion {
		if err := migrate(tx, version); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE schema_meta SET version = ?", schemaVersion); err != nil {
			return fmt.Errorf("dedup: update schema version: %w", err)
		}
	}

	return tx.Commit()
}

func readSchemaVersion(tx *sql.Tx) (int, error) {
	var version int
	err := tx.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dedup: read schema version: %w", err)
	}
	return version, nil
}

// migrate applies forward-only schema changes keyed by the version row.
// No migration step exists yet: an older version row is simply advanced to
// schemaVersion. This is the seam for the next schema change.
func migrate(tx *sql.Tx, fromVersion int) error {
	return nil
}

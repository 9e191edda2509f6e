// Package db provides warehouse access for the dashboard: the sqlite and
// postgres drivers, a generic query executor with a TTL cache, catalog
// metadata, the domain query surface, embedded migrations and CSV ingest.
package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DevMode loosens production caching so schema work shows up without a
// restart: migrations are read from the working tree instead of the embedded
// copy and the curated consistency check reruns on every call.
var DevMode bool

type DB struct {
	*sql.DB
	driver string
	schema string
}

// Open connects to the warehouse. The sqlite driver gets the standard pragma
// set applied; postgres DSNs pass through to lib/pq untouched.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := applyPragmas(sqldb); err != nil {
			sqldb.Close()
			return nil, err
		}
		return &DB{DB: sqldb, driver: DriverSQLite}, nil

	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		return &DB{DB: sqldb, driver: DriverPostgres, schema: "public"}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}

// OpenDB opens the default sqlite warehouse at path without touching the
// schema. Migrations manage the schema.
func OpenDB(path string) (*DB, error) {
	return Open(DriverSQLite, path)
}

func applyPragmas(sqldb *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := sqldb.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}
	return nil
}

// Driver returns the driver name the DB was opened with.
func (db *DB) Driver() string { return db.driver }

// CatalogSchema returns the schema consulted for catalog lookups on postgres.
func (db *DB) CatalogSchema() string { return db.schema }

// SetCatalogSchema overrides the catalog schema. Only postgres lookups use it.
func (db *DB) SetCatalogSchema(schema string) { db.schema = schema }

// Executor runs one SQL statement and returns the whole result. *DB satisfies
// it directly; CachedExecutor layers a TTL cache over any Executor.
type Executor interface {
	Query(query string) (*Table, error)
}

// Table is a fully materialized query result. Cells hold driver-native values
// with []byte already decoded to string; a nil cell is SQL NULL. Tables that
// pass through the cache are shared between callers and must not be mutated.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Col returns the index of the named column, matched case-insensitively,
// or -1 when absent.
func (t *Table) Col(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func (t *Table) cell(row, col int) (interface{}, bool) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return nil, false
	}
	return t.Rows[row][col], true
}

// Float reads a cell as float64. ok is false for NULL, out-of-range indexes
// and non-numeric text.
func (t *Table) Float(row, col int) (float64, bool) {
	v, ok := t.cell(row, col)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FloatPtr reads a nullable numeric cell; NULL comes back as nil.
func (t *Table) FloatPtr(row, col int) *float64 {
	f, ok := t.Float(row, col)
	if !ok {
		return nil
	}
	return &f
}

// Int reads a cell as int. Sqlite reports integers as int64; text cells are
// parsed so raw year columns decode either way.
func (t *Table) Int(row, col int) (int, bool) {
	v, ok := t.cell(row, col)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// String reads a cell as text, formatting numeric cells on the way out.
func (t *Table) String(row, col int) (string, bool) {
	v, ok := t.cell(row, col)
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// Query runs the statement and materializes every row. This is the Executor
// implementation the rest of the dashboard goes through.
func (db *DB) Query(query string) (*Table, error) {
	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	table := &Table{Columns: cols}
	for rows.Next() {
		cells := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range cells {
			if b, ok := v.([]byte); ok {
				cells[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// QuoteLiteral makes s safe to splice into query text as a single-quoted
// string literal. Query bodies are assembled by interpolation (there is no
// parameter binding on the query surface), so every string that reaches one
// must pass through here.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

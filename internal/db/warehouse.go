package db

import (
	"fmt"
	"strings"
)

// Warehouse issues the dashboard's queries through an Executor. The executor
// is usually a CachedExecutor over a *DB; handing in the *DB directly skips
// caching without changing any result.
type Warehouse struct {
	exec    Executor
	dialect string
	schema  string
}

// NewWarehouse binds an executor to a driver dialect. schema is only
// consulted for postgres catalog lookups and defaults to public when empty.
func NewWarehouse(exec Executor, dialect, schema string) *Warehouse {
	if schema == "" {
		schema = "public"
	}
	return &Warehouse{exec: exec, dialect: dialect, schema: schema}
}

// Warehouse returns an uncached Warehouse bound to this database.
func (db *DB) Warehouse() *Warehouse {
	return NewWarehouse(db, db.driver, db.schema)
}

// Relations lists the table and view names visible to the dashboard,
// ascending. Which relations exist decides the schema variant and the
// national baseline provenance, so this listing is the resolver's only
// catalog dependency.
func (w *Warehouse) Relations() ([]string, error) {
	var q string
	switch w.dialect {
	case DriverPostgres:
		q = fmt.Sprintf(
			"SELECT table_name FROM information_schema.tables WHERE table_schema = %s ORDER BY table_name",
			QuoteLiteral(w.schema),
		)
	default:
		q = "SELECT name FROM sqlite_master WHERE type IN ('table', 'view') ORDER BY name"
	}

	table, err := w.exec.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog relations: %w", err)
	}

	names := make([]string, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		if name, ok := table.String(i, 0); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// HasRelation reports whether name exists as a table or view. The comparison
// is case-insensitive to match the warehouse's own identifier rules.
func (w *Warehouse) HasRelation(name string) (bool, error) {
	names, err := w.Relations()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}

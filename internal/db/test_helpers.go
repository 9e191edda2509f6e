package db

import (
	"io/fs"
	"testing"
)

// Helper for creating pointer values
func floatPtr(f float64) *float64 {
	return &f
}

// seedRow is a minimal states_all record for test fixtures. Year is text,
// matching how the CSV load leaves the raw table.
type seedRow struct {
	state   string
	year    string
	enroll  *float64
	revenue *float64
	expend  *float64
}

// newTestDB opens a fresh sqlite warehouse under t.TempDir migrated to the
// given schema version: 1 is the raw table only, 2 adds the curated view,
// 3 adds the national summary.
func newTestDB(t *testing.T, version uint) *DB {
	t.Helper()

	database, err := OpenDB(t.TempDir() + "/warehouse.db")
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	// Always migrate from the embedded copy; tests must not depend on the
	// working directory the way the DevMode source does.
	fsys, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		t.Fatalf("embedded migrations unavailable: %v", err)
	}
	if err := database.MigrateTo(fsys, version); err != nil {
		t.Fatalf("MigrateTo(%d) failed: %v", version, err)
	}
	return database
}

// seedStatesAll inserts fixture rows into the raw table. The curated and
// national views derive from it, so one seeding covers every variant.
func seedStatesAll(t *testing.T, database *DB, rows []seedRow) {
	t.Helper()

	for _, r := range rows {
		_, err := database.DB.Exec(
			`INSERT INTO states_all (primary_key, state, year, enroll, total_revenue, total_expenditure)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.year+"_"+r.state, r.state, r.year, r.enroll, r.revenue, r.expend,
		)
		if err != nil {
			t.Fatalf("seeding states_all (%s, %s) failed: %v", r.state, r.year, err)
		}
	}
}

// seedTwoStateFixture loads a small two-state, two-year dataset with known
// arithmetic: state sizes differ so average-of-ratios and ratio-of-sums
// disagree for per-student metrics.
func seedTwoStateFixture(t *testing.T, database *DB) {
	t.Helper()

	seedStatesAll(t, database, []seedRow{
		{"NEW_YORK", "2018", floatPtr(2000), floatPtr(5000000), floatPtr(4000000)},
		{"NEW_YORK", "2019", floatPtr(2000), floatPtr(5200000), floatPtr(4400000)},
		{"VERMONT", "2018", floatPtr(500), floatPtr(800000), floatPtr(750000)},
		{"VERMONT", "2019", floatPtr(500), floatPtr(820000), floatPtr(790000)},
	})
}

package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chalkline-data/edufinance.report/internal/monitoring"
)

// statesAllColumns are the CSV headers loaded into states_all, in table
// order. Header matching is case-insensitive; columns beyond these (grade
// counts, test scores) are ignored.
var statesAllColumns = []string{
	"primary_key",
	"state",
	"year",
	"enroll",
	"total_revenue",
	"federal_revenue",
	"state_revenue",
	"local_revenue",
	"total_expenditure",
	"instruction_expenditure",
	"support_services_expenditure",
	"other_expenditure",
	"capital_outlay_expenditure",
}

// ImportStatesCSV loads a states_all CSV export into the raw table and
// returns the number of rows written. Rows are keyed by primary_key
// (synthesized as YEAR_STATE when the export lacks the column), so loading
// the same file twice replaces rather than duplicates. Empty numeric cells
// become NULL.
func (db *DB) ImportStatesCSV(r io.Reader) (int, error) {
	if db.driver != DriverSQLite {
		return 0, fmt.Errorf("ingest only loads the sqlite warehouse, not %q", db.driver)
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"state", "year"} {
		if _, ok := colIdx[required]; !ok {
			return 0, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statesAllColumns)), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR REPLACE INTO states_all (%s) VALUES (%s)",
		strings.Join(statesAllColumns, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare ingest statement: %w", err)
	}
	defer stmt.Close()

	field := func(record []string, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	count := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read CSV record: %w", err)
		}

		state := field(record, "state")
		year := field(record, "year")
		if state == "" || year == "" {
			continue
		}
		key := field(record, "primary_key")
		if key == "" {
			key = year + "_" + state
		}

		args := make([]interface{}, 0, len(statesAllColumns))
		args = append(args, key, state, year)
		for _, col := range statesAllColumns[3:] {
			args = append(args, nullableFloat(field(record, col)))
		}

		if _, err := stmt.Exec(args...); err != nil {
			return count, fmt.Errorf("failed to insert row %s: %w", key, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}

	monitoring.Logf("ingested %d rows into states_all", count)
	return count, nil
}

// nullableFloat parses a CSV cell into a float64 pointer, mapping empty or
// unparsable cells to NULL.
func nullableFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// RunIngestCommand handles the 'ingest' subcommand: load a states_all CSV
// into the sqlite warehouse.
func RunIngestCommand(args []string, dbPath string) {
	if len(args) < 1 {
		fmt.Println("Usage: dashboard ingest <csv-file>")
		fmt.Println()
		fmt.Println("Loads a states_all CSV export into the warehouse. The schema must")
		fmt.Println("exist first; run 'dashboard migrate up' before the first ingest.")
		os.Exit(1)
	}

	f, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer f.Close()

	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ok, err := database.Warehouse().HasRelation("states_all")
	if err != nil {
		log.Fatalf("Failed to inspect warehouse catalog: %v", err)
	}
	if !ok {
		log.Fatalf("Warehouse has no states_all table. Run 'dashboard migrate up' first")
	}

	count, err := database.ImportStatesCSV(f)
	if err != nil {
		log.Fatalf("Ingest failed after %d rows: %v", count, err)
	}
	log.Printf("✓ Ingested %d rows from %s", count, args[0])
}

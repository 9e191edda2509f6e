package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/trend"
)

func TestYearsAgreeAcrossVariants(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)
	w := database.Warehouse()

	want := []int{2018, 2019}
	for _, src := range []metrics.Source{metrics.Raw(), metrics.Curated()} {
		got, err := w.Years(src)
		if err != nil {
			t.Fatalf("%s: Years failed: %v", src.Variant(), err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: Years mismatch (-want +got):\n%s", src.Variant(), diff)
		}
	}
}

func TestStatesListsRawIdentifiers(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)

	got, err := database.Warehouse().States(metrics.Raw())
	if err != nil {
		t.Fatalf("States failed: %v", err)
	}
	want := []string{"NEW_YORK", "VERMONT"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("States mismatch (-want +got):\n%s", diff)
	}
}

// The curated view materializes exactly the arithmetic the raw variant
// inlines, so the two variants must return identical rows for every label.
func TestStateYearRowsCuratedMatchesRaw(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)
	w := database.Warehouse()

	wantByLabel := map[metrics.Label]map[string]float64{
		metrics.ExpenditurePerStudent: {"NY": 2000, "VT": 1500},
		metrics.RevenuePerStudent:     {"NY": 2500, "VT": 1600},
		metrics.SurplusDeficit:        {"NY": 1000000, "VT": 50000},
		metrics.TotalExpenditure:      {"NY": 4000000, "VT": 750000},
		metrics.TotalRevenue:          {"NY": 5000000, "VT": 800000},
	}

	for label, want := range wantByLabel {
		rawRows, _, err := w.StateYearRows(metrics.Raw(), label, 2018)
		if err != nil {
			t.Fatalf("%s: raw StateYearRows failed: %v", label, err)
		}
		curRows, _, err := w.StateYearRows(metrics.Curated(), label, 2018)
		if err != nil {
			t.Fatalf("%s: curated StateYearRows failed: %v", label, err)
		}

		for variant, rows := range map[string][]StateYearRow{"raw": rawRows, "curated": curRows} {
			got := map[string]float64{}
			for _, r := range rows {
				if r.Year != 2018 {
					t.Errorf("%s/%s: row for %s has year %d", label, variant, r.StateCode, r.Year)
				}
				if r.Metric == nil {
					t.Errorf("%s/%s: row for %s has nil metric", label, variant, r.StateCode)
					continue
				}
				got[r.StateCode] = *r.Metric
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s/%s: metric mismatch (-want +got):\n%s", label, variant, diff)
			}
		}
	}
}

func TestStateYearRowsDropsUnmappableStates(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)
	seedStatesAll(t, database, []seedRow{
		{"EAST_DAKOTA", "2018", floatPtr(100), floatPtr(1000), floatPtr(900)},
	})

	rows, dropped, err := database.Warehouse().StateYearRows(metrics.Raw(), metrics.TotalRevenue, 2018)
	if err != nil {
		t.Fatalf("StateYearRows failed: %v", err)
	}

	if dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (unmappable dropped, never defaulted)", len(rows))
	}
	for _, r := range rows {
		if r.StateCode == "" {
			t.Errorf("row for %s kept without a state code", r.State)
		}
		if r.State == "EAST_DAKOTA" {
			t.Error("unmappable row survived")
		}
	}
}

func TestStateYearRowsNullMetricOnZeroEnrollment(t *testing.T) {
	database := newTestDB(t, 3)
	seedStatesAll(t, database, []seedRow{
		{"WYOMING", "2018", floatPtr(0), floatPtr(100000), floatPtr(90000)},
	})
	w := database.Warehouse()

	for _, src := range []metrics.Source{metrics.Raw(), metrics.Curated()} {
		rows, _, err := w.StateYearRows(src, metrics.ExpenditurePerStudent, 2018)
		if err != nil {
			t.Fatalf("%s: StateYearRows failed: %v", src.Variant(), err)
		}
		if len(rows) != 1 {
			t.Fatalf("%s: got %d rows, want 1", src.Variant(), len(rows))
		}
		if rows[0].Metric != nil {
			t.Errorf("%s: zero enrollment produced metric %g, want NULL", src.Variant(), *rows[0].Metric)
		}

		// The same row still carries its absolute totals.
		rows, _, err = w.StateYearRows(src, metrics.TotalExpenditure, 2018)
		if err != nil {
			t.Fatalf("%s: StateYearRows failed: %v", src.Variant(), err)
		}
		if rows[0].Metric == nil || *rows[0].Metric != 90000 {
			t.Errorf("%s: total expenditure lost on zero-enrollment row", src.Variant())
		}
	}
}

func TestStateTrendSeries(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)

	series, err := database.Warehouse().StateTrend(metrics.Curated(), metrics.ExpenditurePerStudent, "NEW_YORK")
	if err != nil {
		t.Fatalf("StateTrend failed: %v", err)
	}

	if series.Label != "New York" {
		t.Errorf("series label = %q, want %q", series.Label, "New York")
	}
	want := []trend.Point{
		{Year: 2018, Value: floatPtr(2000)},
		{Year: 2019, Value: floatPtr(2200)},
	}
	if diff := cmp.Diff(want, series.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestStateTrendUnknownStateIsEmpty(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)

	series, err := database.Warehouse().StateTrend(metrics.Raw(), metrics.TotalRevenue, "ATLANTIS")
	if err != nil {
		t.Fatalf("StateTrend failed: %v", err)
	}
	if len(series.Points) != 0 {
		t.Errorf("got %d points for unknown state, want 0", len(series.Points))
	}
}

// Identifiers containing quote characters must pass through literal quoting
// intact.
func TestStateTrendQuotesIdentifier(t *testing.T) {
	database := newTestDB(t, 1)
	seedStatesAll(t, database, []seedRow{
		{"O'BRIEN_TERRITORY", "2018", floatPtr(10), floatPtr(100), floatPtr(90)},
	})

	series, err := database.Warehouse().StateTrend(metrics.Raw(), metrics.TotalRevenue, "O'BRIEN_TERRITORY")
	if err != nil {
		t.Fatalf("StateTrend failed: %v", err)
	}
	if len(series.Points) != 1 {
		t.Fatalf("got %d points, want 1", len(series.Points))
	}
}

func TestNationalTrendDedicatedSummary(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)

	series, err := database.Warehouse().NationalTrend(metrics.Curated(), metrics.ProvenanceDedicatedSummary, metrics.ExpenditurePerStudent)
	if err != nil {
		t.Fatalf("NationalTrend failed: %v", err)
	}

	if series.Label != NationalSeriesLabel {
		t.Errorf("series label = %q, want %q", series.Label, NationalSeriesLabel)
	}
	// Ratio of national sums: 4,750,000/2,500 and 5,190,000/2,500.
	want := []trend.Point{
		{Year: 2018, Value: floatPtr(1900)},
		{Year: 2019, Value: floatPtr(2076)},
	}
	if diff := cmp.Diff(want, series.Points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestNationalTrendComputedAggregate(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)

	for _, src := range []metrics.Source{metrics.Raw(), metrics.Curated()} {
		series, err := database.Warehouse().NationalTrend(src, metrics.ProvenanceComputedAggregate, metrics.ExpenditurePerStudent)
		if err != nil {
			t.Fatalf("%s: NationalTrend failed: %v", src.Variant(), err)
		}

		// Average of state ratios: AVG(2000, 1500) and AVG(2200, 1580).
		want := []trend.Point{
			{Year: 2018, Value: floatPtr(1750)},
			{Year: 2019, Value: floatPtr(1890)},
		}
		if diff := cmp.Diff(want, series.Points); diff != "" {
			t.Errorf("%s: points mismatch (-want +got):\n%s", src.Variant(), diff)
		}
	}
}

// The two provenances carry different arithmetic for ratio metrics
// (ratio-of-sums vs average-of-ratios). The divergence is intentional and
// must survive exactly as each provenance defines it.
func TestNationalProvenancesDiverge(t *testing.T) {
	database := newTestDB(t, 3)
	seedTwoStateFixture(t, database)
	w := database.Warehouse()

	dedicated, err := w.NationalTrend(metrics.Curated(), metrics.ProvenanceDedicatedSummary, metrics.ExpenditurePerStudent)
	if err != nil {
		t.Fatalf("dedicated NationalTrend failed: %v", err)
	}
	computed, err := w.NationalTrend(metrics.Curated(), metrics.ProvenanceComputedAggregate, metrics.ExpenditurePerStudent)
	if err != nil {
		t.Fatalf("computed NationalTrend failed: %v", err)
	}

	if d, c := *dedicated.Points[0].Value, *computed.Points[0].Value; d == c {
		t.Errorf("provenances agree at %g; fixture sizes differ so they must not", d)
	}
	if got := *dedicated.Points[0].Value; got != 1900 {
		t.Errorf("dedicated 2018 = %g, want 1900 (ratio of sums)", got)
	}
	if got := *computed.Points[0].Value; got != 1750 {
		t.Errorf("computed 2018 = %g, want 1750 (average of ratios)", got)
	}
}

func TestNationalTrendUnknownProvenance(t *testing.T) {
	database := newTestDB(t, 3)

	if _, err := database.Warehouse().NationalTrend(metrics.Curated(), "guesswork", metrics.TotalRevenue); err == nil {
		t.Fatal("expected error for unknown provenance")
	}
}

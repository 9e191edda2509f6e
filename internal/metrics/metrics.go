// Package metrics resolves user-facing metric labels into warehouse query
// expressions.
//
// The warehouse exposes the dataset in one of two shapes. The curated shape
// (v_state_year_metrics) materializes each metric as a column and stores the
// year as an integer. The raw shape (states_all) carries only totals and
// enrollment, with the year as text, so metrics are computed inline and the
// year is cast on every query. A Source value binds a variant to its relation
// and expression strategy; callers hold the Source for a session and never
// branch on the variant themselves.
package metrics

import "fmt"

// Label identifies one of the five user-facing metrics. Labels are the exact
// display strings shown in the metric selector.
type Label string

const (
	ExpenditurePerStudent Label = "Expenditure per student"
	RevenuePerStudent     Label = "Revenue per student"
	SurplusDeficit        Label = "Surplus / Deficit"
	TotalExpenditure      Label = "Total Expenditure"
	TotalRevenue          Label = "Total Revenue"
)

// Labels returns the five metric labels in selector order.
func Labels() []Label {
	return []Label{
		ExpenditurePerStudent,
		RevenuePerStudent,
		SurplusDeficit,
		TotalExpenditure,
		TotalRevenue,
	}
}

// ParseLabel validates a display string against the known labels.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown metric label %q", s)
}

// Variant tags which shape of the dataset a Source addresses.
type Variant string

const (
	VariantCurated Variant = "curated"
	VariantRaw     Variant = "raw"
)

// Relation names in the warehouse. The curated view and the national summary
// are created by later migrations and may be absent; the raw table is the
// baseline every deployment has.
const (
	CuratedRelation         = "v_state_year_metrics"
	RawRelation             = "states_all"
	NationalSummaryRelation = "v_national_summary"
)

// Source binds a schema variant to its relation and expression strategy.
// Values are immutable; obtain them from Curated(), Raw() or For().
type Source struct {
	variant  Variant
	relation string
	yearExpr string
	exprs    map[Label]string
}

// Curated returns the Source for the materialized view. Metric expressions
// are plain column names and the year column is already an integer.
func Curated() Source {
	return Source{
		variant:  VariantCurated,
		relation: CuratedRelation,
		yearExpr: "year",
		exprs: map[Label]string{
			ExpenditurePerStudent: "expenditure_per_student",
			RevenuePerStudent:     "revenue_per_student",
			SurplusDeficit:        "surplus_deficit",
			TotalExpenditure:      "total_expenditure",
			TotalRevenue:          "total_revenue",
		},
	}
}

// Raw returns the Source for the baseline table. Ratio metrics divide through
// NULLIF so a zero enrollment yields NULL rather than an error, and the year
// is cast to an integer on every use.
func Raw() Source {
	return Source{
		variant:  VariantRaw,
		relation: RawRelation,
		yearExpr: "CAST(year AS integer)",
		exprs: map[Label]string{
			ExpenditurePerStudent: "total_expenditure / NULLIF(enroll, 0)",
			RevenuePerStudent:     "total_revenue / NULLIF(enroll, 0)",
			SurplusDeficit:        "total_revenue - total_expenditure",
			TotalExpenditure:      "total_expenditure",
			TotalRevenue:          "total_revenue",
		},
	}
}

// For returns the Source for a variant tag.
func For(v Variant) (Source, error) {
	switch v {
	case VariantCurated:
		return Curated(), nil
	case VariantRaw:
		return Raw(), nil
	}
	return Source{}, fmt.Errorf("unknown schema variant %q", v)
}

// Variant returns the Source's tag.
func (s Source) Variant() Variant { return s.variant }

// Relation returns the relation queries should read from.
func (s Source) Relation() string { return s.relation }

// YearExpr returns the expression that yields an integer year for this
// variant. The same expression is used in SELECT, WHERE, GROUP BY and
// ORDER BY so every query in a session agrees on year semantics.
func (s Source) YearExpr() string { return s.yearExpr }

// Expr returns the query expression computing label against this Source.
// Curated and raw expressions for the same label represent the same quantity;
// they differ only in whether the computation already happened upstream.
func (s Source) Expr(label Label) (string, error) {
	expr, ok := s.exprs[label]
	if !ok {
		return "", fmt.Errorf("no %s expression for metric label %q", s.variant, label)
	}
	return expr, nil
}

// Provenance tags how the national baseline series is produced. The dedicated
// summary reads pre-aggregated national rows; the computed aggregate averages
// the per-state metric by year. For ratio metrics these are ratio-of-sums and
// average-of-ratios respectively and legitimately disagree.
type Provenance string

const (
	ProvenanceDedicatedSummary  Provenance = "dedicated_summary"
	ProvenanceComputedAggregate Provenance = "computed_aggregate"
)

// NationalExpr maps a label to the matching expression over the dedicated
// national summary. The summary pre-aggregates nationally, so per-student
// metrics come out as ratio-of-sums; the per-state aggregate path averages
// ratios instead. That divergence is accepted, not corrected. An unmapped
// label falls back to national spend per student as the closest proxy.
func NationalExpr(label Label) string {
	switch label {
	case ExpenditurePerStudent:
		return "national_spend_per_student"
	case RevenuePerStudent:
		return "national_revenue / NULLIF(national_enrollment, 0)"
	case SurplusDeficit:
		return "national_revenue - national_expenditure"
	case TotalExpenditure:
		return "national_expenditure"
	case TotalRevenue:
		return "national_revenue"
	}
	return "national_spend_per_student"
}

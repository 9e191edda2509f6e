package metrics

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// rawFormulas mirror the raw SQL expressions for in-process evaluation. A
// zero divisor yields nil, matching NULLIF semantics: not zero, not an error.
var rawFormulas = map[Label]string{
	ExpenditurePerStudent: "enroll == 0.0 ? nil : total_expenditure / enroll",
	RevenuePerStudent:     "enroll == 0.0 ? nil : total_revenue / enroll",
	SurplusDeficit:        "total_revenue - total_expenditure",
	TotalExpenditure:      "total_expenditure",
	TotalRevenue:          "total_revenue",
}

// Evaluator computes raw metric formulas over in-memory rows. It exists so
// the curated view can be cross-checked against the raw table without a
// second query dialect, and so importers can derive metrics for rows that
// never hit the warehouse.
type Evaluator struct {
	programs map[Label]*exprvm.Program
}

// NewEvaluator compiles the raw formula for every label up front; a compile
// failure is a programming error surfaced immediately rather than at first
// use.
func NewEvaluator() (*Evaluator, error) {
	programs := make(map[Label]*exprvm.Program, len(rawFormulas))
	for label, formula := range rawFormulas {
		program, err := exprlang.Compile(formula)
		if err != nil {
			return nil, fmt.Errorf("compile formula for %q: %w", label, err)
		}
		programs[label] = program
	}
	return &Evaluator{programs: programs}, nil
}

// EvalRaw evaluates label's raw formula against one row's columns. The result
// is nil when the formula's divisor is zero. Callers are expected to skip
// rows whose source columns are themselves NULL.
func (e *Evaluator) EvalRaw(label Label, enroll, totalRevenue, totalExpenditure float64) (*float64, error) {
	program, ok := e.programs[label]
	if !ok {
		return nil, fmt.Errorf("no raw formula for metric label %q", label)
	}

	env := map[string]interface{}{
		"enroll":            enroll,
		"total_revenue":     totalRevenue,
		"total_expenditure": totalExpenditure,
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate formula for %q: %w", label, err)
	}
	if out == nil {
		return nil, nil
	}
	v, ok := out.(float64)
	if !ok {
		return nil, fmt.Errorf("formula for %q returned %T, want float64", label, out)
	}
	return &v, nil
}

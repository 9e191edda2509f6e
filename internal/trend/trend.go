// Package trend reconciles a selected state's metric series with the
// national baseline for dual-line comparison.
package trend

import "sort"

// Point is one (year, value) observation. Value is nil when the warehouse
// reported NULL for that year (missing data or a zero divisor upstream).
type Point struct {
	Year  int      `json:"year"`
	Value *float64 `json:"value"`
}

// Series is an ordered run of points under one display label. Resolvers
// produce at most one point per year.
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Clean returns a copy of the series without nil-valued points, ordered by
// year. Dropped points are simply absent: no interpolation, no zero-fill.
func (s Series) Clean() Series {
	out := Series{Label: s.Label, Points: make([]Point, 0, len(s.Points))}
	for _, p := range s.Points {
		if p.Value != nil {
			out.Points = append(out.Points, p)
		}
	}
	sort.Slice(out.Points, func(i, j int) bool { return out.Points[i].Year < out.Points[j].Year })
	return out
}

// ValueAt reports the series value for a year, if present.
func (s Series) ValueAt(year int) (float64, bool) {
	for _, p := range s.Points {
		if p.Year == year && p.Value != nil {
			return *p.Value, true
		}
	}
	return 0, false
}

// Row is one merged observation, labeled with the series it came from.
type Row struct {
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
	Series string  `json:"series"`
}

// Comparison is the reconciled view handed to the presentation layer.
type Comparison struct {
	State    Series `json:"state"`
	National Series `json:"national"`
	Rows     []Row  `json:"rows"`

	// Delta is state minus national at the selected year. DeltaOK is false
	// when either series lacks that year; the comparison then degrades to
	// the two lines without a headline number.
	Delta   float64 `json:"delta"`
	DeltaOK bool    `json:"delta_ok"`
	Year    int     `json:"year"`
}

// Merge reconciles the state and national series into one labeled row
// sequence and computes the signed delta for the selected year. Both inputs
// are cleaned first, so a year present in only one series still renders in
// that series but never contributes a delta.
func Merge(state, national Series, year int) Comparison {
	state = state.Clean()
	national = national.Clean()

	rows := make([]Row, 0, len(state.Points)+len(national.Points))
	for _, p := range state.Points {
		rows = append(rows, Row{Year: p.Year, Value: *p.Value, Series: state.Label})
	}
	for _, p := range national.Points {
		rows = append(rows, Row{Year: p.Year, Value: *p.Value, Series: national.Label})
	}

	c := Comparison{State: state, National: national, Rows: rows, Year: year}
	sv, sok := state.ValueAt(year)
	nv, nok := national.ValueAt(year)
	if sok && nok {
		c.Delta = sv - nv
		c.DeltaOK = true
	}
	return c
}

package dashboard

import (
	"fmt"
	"image/color"
	"net/http"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/chalkline-data/edufinance.report/internal/httputil"
)

// handleTrendPNG renders the state and national series as a PNG for report
// export. It accepts the same selection parameters as the dashboard page.
func (h *Handler) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sel, ok := h.resolveSelection(w, r)
	if !ok {
		return
	}
	cmp, ok := h.loadComparison(w, sel)
	if !ok {
		return
	}
	data := PrepareTrendChartData(sel.label, cmp)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s vs %s", data.Metric, data.StateLabel, data.NationalLabel)
	if data.Delta != nil {
		p.Title.Text += fmt.Sprintf("\ndelta at %d: %+.0f USD", data.Year, *data.Delta)
	}
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "USD"
	p.X.Tick.Marker = yearTicks(data.Years)

	if err := addSeriesLine(p, data.StateLabel, data.Years, data.StateValues, color.RGBA{R: 255, G: 82, B: 82, A: 255}); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to plot state series: %v", err))
		return
	}
	if err := addSeriesLine(p, data.NationalLabel, data.Years, data.NationalValues, color.RGBA{R: 158, G: 158, B: 158, A: 255}); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to plot national series: %v", err))
		return
	}

	p.Legend.Top = true
	p.Legend.Left = true

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = wt.WriteTo(w)
}

// addSeriesLine adds one series to the plot with a line and a legend entry.
// Years with a nil value are skipped; a series with no values adds nothing.
func addSeriesLine(p *plot.Plot, label string, years []int, vals []*float64, c color.Color) error {
	pts := make(plotter.XYs, 0, len(years))
	for i, y := range years {
		if vals[i] == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(y), Y: *vals[i]})
	}
	if len(pts) == 0 {
		return nil
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

// yearTicks pins the x axis to whole years so the default ticker cannot
// label fractional ones.
func yearTicks(years []int) plot.ConstantTicks {
	ticks := make([]plot.Tick, 0, len(years))
	for _, y := range years {
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: strconv.Itoa(y)})
	}
	return plot.ConstantTicks(ticks)
}

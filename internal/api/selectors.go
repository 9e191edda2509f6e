package api

import (
	"net/http"

	"github.com/chalkline-data/edufinance.report/internal/httputil"
	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/states"
)

// YearsResponse lists the years the warehouse can answer for, with the range
// endpoints broken out for slider defaults.
type YearsResponse struct {
	Years   []int `json:"years"`
	MinYear int   `json:"min_year"`
	MaxYear int   `json:"max_year"`
}

// StateOption is one entry of the state selector. ID is the identifier
// exactly as stored and is what the trend endpoint accepts; Code is empty for
// identifiers the normalizer cannot resolve.
type StateOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

func (s *Server) listMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, metrics.Labels())
}

func (s *Server) listYears(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	years, err := s.warehouse.Years(src)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve years: "+err.Error())
		return
	}

	resp := YearsResponse{Years: years}
	if len(years) > 0 {
		// Years come back ascending
		resp.MinYear = years[0]
		resp.MaxYear = years[len(years)-1]
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) listStates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	ids, err := s.warehouse.States(src)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve states: "+err.Error())
		return
	}

	options := make([]StateOption, 0, len(ids))
	for _, id := range ids {
		opt := StateOption{ID: id, Name: states.DisplayName(id)}
		if code, ok := states.Normalize(id); ok {
			opt.Code = code
		}
		options = append(options, opt)
	}

	httputil.WriteJSON(w, http.StatusOK, options)
}

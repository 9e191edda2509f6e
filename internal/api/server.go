package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/chalkline-data/edufinance.report/internal/config"
	"github.com/chalkline-data/edufinance.report/internal/db"
	"github.com/chalkline-data/edufinance.report/internal/httputil"
	"github.com/chalkline-data/edufinance.report/internal/session"
	"github.com/chalkline-data/edufinance.report/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// DefaultSessionID is the shared resolution window used by requests that do
// not carry a session of their own. It memoizes the warehouse schema like any
// other session, so anonymous clients still get the TTL behaviour.
const DefaultSessionID = "default"

type Server struct {
	warehouse *db.Warehouse
	sessions  *session.Store
	cfg       *config.Config
}

func NewServer(warehouse *db.Warehouse, sessions *session.Store, cfg *config.Config) *Server {
	return &Server{
		warehouse: warehouse,
		sessions:  sessions,
		cfg:       cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session", s.createSession)
	mux.HandleFunc("/api/metrics", s.listMetrics)
	mux.HandleFunc("/api/years", s.listYears)
	mux.HandleFunc("/api/states", s.listStates)
	mux.HandleFunc("/api/map", s.showMap)
	mux.HandleFunc("/api/leaderboard", s.showLeaderboard)
	mux.HandleFunc("/api/trend", s.showTrend)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	return mux
}

// resolveSession pins the request to a schema resolution. The session comes
// from the ?session query parameter or the X-Session-ID header; requests
// without either share DefaultSessionID.
func (s *Server) resolveSession(r *http.Request) (session.Resolution, error) {
	id := r.URL.Query().Get("session")
	if id == "" {
		id = r.Header.Get("X-Session-ID")
	}
	if id == "" {
		id = DefaultSessionID
	}
	return s.sessions.Resolve(id)
}

// SessionResponse is the payload minted for a new session.
type SessionResponse struct {
	Session string `json:"session"`
	session.Resolution
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	id, res, err := s.sessions.NewSession()
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SessionResponse{Session: id, Resolution: res})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}

	config := map[string]interface{}{
		"driver":           s.cfg.GetDriver(),
		"variant":          res.Variant,
		"provenance":       res.Provenance,
		"metadata_ttl":     s.cfg.GetMetadataTTL().String(),
		"query_ttl":        s.cfg.GetQueryTTL().String(),
		"leaderboard_size": s.cfg.GetLeaderboardSize(),
	}

	httputil.WriteJSON(w, http.StatusOK, config)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, version.Get())
}

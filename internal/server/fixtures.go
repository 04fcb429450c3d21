package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/tunemeld/internal/fixtures"
)

var queryNamePattern = regexp.MustCompile(`query\s+(\w+)`)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   any            `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// Fault describes an injected failure for one query.
//
// Status > 0 replies with that status and Body. Errors replies 200 with a GraphQL error list.
// Delay sleeps before answering and Drop hijacks the connection and closes it without a response.
type Fault struct {
	Status int
	Body   string
	Errors []string
	Delay  time.Duration
	Drop   bool
}

// FixtureHandler answers the chart API's named queries from a [fixtures.Chart].
//
// Queries are addressed as POST /api/{QueryName}/, or POST /api/gql/ with the name taken from the document.
type FixtureHandler struct {
	chart  *fixtures.Chart
	logger *log.Logger

	mu     sync.RWMutex
	faults map[string]Fault
	hits   map[string]int
}

// NewFixtureHandler creates a [FixtureHandler] over chart.
func NewFixtureHandler(chart *fixtures.Chart, logger *log.Logger) *FixtureHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &FixtureHandler{
		chart:  chart,
		logger: logger,
		faults: make(map[string]Fault),
		hits:   make(map[string]int),
	}
}

// Routes implements [Handler].
func (h *FixtureHandler) Routes() []string {
	return []string{"/api/"}
}

// SetFault injects f for key, which is a query name or "GetPlaylistTracks:{service}".
func (h *FixtureHandler) SetFault(key string, f Fault) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults[key] = f
}

// ClearFaults removes every injected fault.
func (h *FixtureHandler) ClearFaults() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults = make(map[string]Fault)
}

// Hits returns how many requests were received for a query name.
func (h *FixtureHandler) Hits(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hits[name]
}

func (h *FixtureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}

	var req graphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, graphQLResponse{Errors: []graphQLError{{Message: "invalid request body"}}})
		return
	}

	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	if name == "" || name == "gql" {
		if m := queryNamePattern.FindStringSubmatch(req.Query); m != nil {
			name = m[1]
		}
	}

	h.mu.Lock()
	h.hits[name]++
	fault, faulted := h.faults[name]
	if service, ok := req.Variables["service"].(string); ok && !faulted {
		fault, faulted = h.faults[name+":"+service]
	}
	h.mu.Unlock()

	if faulted && h.inject(w, r, fault) {
		return
	}

	data, err := h.resolve(name, req.Variables)
	if err != nil {
		h.logger.Debug("query rejected", "query", name, "error", err)
		writeJSON(w, http.StatusOK, graphQLResponse{Errors: []graphQLError{{Message: err.Error()}}})
		return
	}
	writeJSON(w, http.StatusOK, graphQLResponse{Data: data})
}

// inject applies f and reports whether the response has been fully handled.
func (h *FixtureHandler) inject(w http.ResponseWriter, r *http.Request, f Fault) bool {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-r.Context().Done():
			return true
		}
	}

	switch {
	case f.Drop:
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return true
			}
		}
		panic(http.ErrAbortHandler)
	case f.Status > 0:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(f.Status)
		io.WriteString(w, f.Body)
		return true
	case len(f.Errors) > 0:
		errs := make([]graphQLError, len(f.Errors))
		for i, m := range f.Errors {
			errs[i] = graphQLError{Message: m}
		}
		writeJSON(w, http.StatusOK, graphQLResponse{Errors: errs})
		return true
	}
	return false
}

var errUnknownQuery = errors.New("unknown query")

func (h *FixtureHandler) resolve(name string, vars map[string]any) (any, error) {
	str := func(key string) string {
		s, _ := vars[key].(string)
		return s
	}

	switch name {
	case "GetAvailableGenres":
		return map[string]any{"genres": h.chart.Genres, "defaultGenre": h.chart.DefaultGenre}, nil
	case "GetPlaylistRanks":
		return map[string]any{"ranks": h.chart.Ranks}, nil
	case "GetPlaylistMetadata":
		meta, ok := h.chart.Metadata(str("genre"))
		if !ok {
			return nil, fmt.Errorf("invalid genre %q", str("genre"))
		}
		return map[string]any{"serviceOrder": meta.ServiceOrder, "playlistsByGenre": meta.Playlists}, nil
	case "GetPlaylistTracks":
		p, ok := h.chart.Playlist(str("genre"), str("service"))
		if !ok {
			return map[string]any{"playlist": nil}, nil
		}
		return map[string]any{"playlist": p}, nil
	case "GetPlayCounts":
		raw, _ := vars["isrcs"].([]any)
		isrcs := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				isrcs = append(isrcs, s)
			}
		}
		return map[string]any{"tracksPlayCounts": h.chart.PlayCounts(isrcs)}, nil
	case "GetMiscButtonLabels":
		return map[string]any{"miscButtonLabels": h.chart.ButtonLabels(str("buttonType"), str("context"))}, nil
	default:
		return nil, errUnknownQuery
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewFixtureRouter wires a [FixtureHandler] behind request id, logging and recovery middleware.
func NewFixtureRouter(h *FixtureHandler, logger *log.Logger) *BasicRouter {
	r := NewBasicRouter()
	r.Use(Recover(logger), RequestID(), Logging(logger))
	r.Handler(h)
	r.HandleFunc(http.MethodGet, "/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// Serve runs an HTTP server for handler on addr until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("fixture server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/desertthunder/tunemeld/internal/fixtures"
	"github.com/desertthunder/tunemeld/internal/server"
	"github.com/desertthunder/tunemeld/internal/shared"
	tu "github.com/desertthunder/tunemeld/internal/testing"
)

var _ DataGateway = (*GraphQLClient)(nil)
var _ DataGateway = (*tu.MockGateway)(nil)

func newTestClient(baseURL string, opts ...func(*ClientOptions)) *GraphQLClient {
	o := ClientOptions{BaseURL: baseURL, Timeout: 2 * time.Second, Logger: log.New(io.Discard)}
	for _, fn := range opts {
		fn(&o)
	}
	c := NewGraphQLClient(o)
	c.retryInterval = time.Millisecond
	return c
}

func fixtureServer(t *testing.T) (*server.FixtureHandler, *httptest.Server) {
	t.Helper()
	h := server.NewFixtureHandler(fixtures.MustLoad(), nil)
	srv := httptest.NewServer(server.NewFixtureRouter(h, log.New(io.Discard)))
	t.Cleanup(srv.Close)
	return h, srv
}

func TestGraphQLClientTransport(t *testing.T) {
	t.Run("Posts Named Query", func(t *testing.T) {
		var got GraphQLRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST request, got %s", r.Method)
			}
			if r.URL.Path != "/api/GetPlaylistMetadata/" {
				t.Errorf("Expected query path, got %s", r.URL.Path)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("X-Request-ID") == "" {
				t.Error("Expected X-Request-ID header")
			}
			json.NewDecoder(r.Body).Decode(&got)
			io.WriteString(w, `{"data":{"serviceOrder":["spotify"],"playlistsByGenre":[{"serviceName":"spotify","genreName":"pop"}]}}`)
		}))
		defer srv.Close()

		meta, err := newTestClient(srv.URL+"/").PlaylistMetadata(context.Background(), "pop")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got.Variables["genre"] != "pop" {
			t.Errorf("Expected genre variable, got %v", got.Variables)
		}
		if !strings.Contains(got.Query, "query GetPlaylistMetadata") {
			t.Errorf("Expected query document, got %q", got.Query)
		}
		if len(meta.ServiceOrder) != 1 || meta.Playlists[0].ServiceName != "spotify" {
			t.Errorf("Unexpected metadata %+v", meta)
		}
	})

	t.Run("HTTP Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).PlaylistRanks(context.Background())
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GatewayError, got %v", err)
		}
		if gerr.Kind != KindHTTP || gerr.Status != http.StatusBadGateway {
			t.Errorf("Expected http 502, got %v %d", gerr.Kind, gerr.Status)
		}
		if !errors.Is(err, shared.ErrHTTPStatus) {
			t.Error("Expected error to match ErrHTTPStatus")
		}
		if !strings.Contains(gerr.Body, "bad gateway") {
			t.Errorf("Expected body to be kept, got %q", gerr.Body)
		}
	})

	t.Run("Query Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":null,"errors":[{"message":"first"},{"message":"second"}]}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).AvailableGenres(context.Background())
		if !errors.Is(err, shared.ErrQuery) {
			t.Fatalf("Expected ErrQuery, got %v", err)
		}
		if !strings.Contains(err.Error(), "first, second") {
			t.Errorf("Expected joined messages, got %q", err.Error())
		}
	})

	t.Run("Decode Error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).AvailableGenres(context.Background())
		if kind, ok := KindOf(err); !ok || kind != KindDecode {
			t.Errorf("Expected decode error, got %v", err)
		}
	})

	t.Run("Missing Data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":null}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).AvailableGenres(context.Background())
		if !errors.Is(err, shared.ErrDecode) {
			t.Errorf("Expected ErrDecode, got %v", err)
		}
	})

	t.Run("Read Error", func(t *testing.T) {
		resp := tu.NewResponse(http.StatusOK, "")
		resp.Body = &tu.FCloser{}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

		_, err := newTestClient("http://fixtures.invalid", func(o *ClientOptions) { o.HTTPClient = client }).
			PlaylistRanks(context.Background())
		if err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("Expected read failure, got %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL, func(o *ClientOptions) { o.Timeout = 20 * time.Millisecond }).
			PlaylistRanks(context.Background())
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("Expected ErrTimeout, got %v", err)
		}
	})

	t.Run("Connection Errors Are Retried", func(t *testing.T) {
		var calls atomic.Int32
		rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return nil, errors.New("connection refused")
			}
			return tu.NewResponse(http.StatusOK, `{"data":{"ranks":[{"name":"tunemeld_rank","sortField":"tunemeld-rank","isDefault":true}]}}`), nil
		})

		ranks, err := newTestClient("http://fixtures.invalid", func(o *ClientOptions) {
			o.HTTPClient = &http.Client{Transport: rt}
			o.MaxRetries = 2
		}).PlaylistRanks(context.Background())
		if err != nil {
			t.Fatalf("Expected success after retries, got %v", err)
		}
		if calls.Load() != 3 || len(ranks) != 1 {
			t.Errorf("Expected 3 calls and 1 rank, got %d calls and %d ranks", calls.Load(), len(ranks))
		}
	})

	t.Run("Connection Errors Exhaust Retries", func(t *testing.T) {
		var calls atomic.Int32
		rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		})

		_, err := newTestClient("http://fixtures.invalid", func(o *ClientOptions) {
			o.HTTPClient = &http.Client{Transport: rt}
			o.MaxRetries = 1
		}).PlaylistRanks(context.Background())
		if !errors.Is(err, shared.ErrConnection) {
			t.Errorf("Expected ErrConnection, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("Expected 2 calls, got %d", calls.Load())
		}
	})

	t.Run("HTTP Errors Are Not Retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		newTestClient(srv.URL, func(o *ClientOptions) { o.MaxRetries = 3 }).PlaylistRanks(context.Background())
		if calls.Load() != 1 {
			t.Errorf("Expected a single attempt, got %d", calls.Load())
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestGraphQLClientFixtures(t *testing.T) {
	t.Run("Reference Data", func(t *testing.T) {
		_, srv := fixtureServer(t)
		c := newTestClient(srv.URL)

		genres, err := c.AvailableGenres(context.Background())
		if err != nil {
			t.Fatalf("AvailableGenres() error = %v", err)
		}
		if genres.DefaultGenre != "pop" || len(genres.Genres) != 4 {
			t.Errorf("unexpected genres %+v", genres)
		}

		ranks, err := c.PlaylistRanks(context.Background())
		if err != nil {
			t.Fatalf("PlaylistRanks() error = %v", err)
		}
		def, ok := RanksResult{Ranks: ranks}.Default()
		if !ok || def.SortField != "tunemeld-rank" {
			t.Errorf("unexpected default rank %+v", def)
		}
	})

	t.Run("Playlist Tracks Carry Positions", func(t *testing.T) {
		_, srv := fixtureServer(t)
		p, err := newTestClient(srv.URL).PlaylistTracks(context.Background(), "pop", "tunemeld")
		if err != nil {
			t.Fatalf("PlaylistTracks() error = %v", err)
		}
		if len(p.Tracks) == 0 {
			t.Fatal("expected tracks")
		}
		for i, tr := range p.Tracks {
			if tr.Position != i+1 {
				t.Errorf("track %d: expected position %d, got %d", i, i+1, tr.Position)
			}
		}
	})

	t.Run("Unknown Service", func(t *testing.T) {
		_, srv := fixtureServer(t)
		_, err := newTestClient(srv.URL).PlaylistTracks(context.Background(), "pop", "napster")
		if !errors.Is(err, shared.ErrDecode) {
			t.Errorf("expected ErrDecode for missing playlist, got %v", err)
		}
	})

	t.Run("Misc Button Labels", func(t *testing.T) {
		_, srv := fixtureServer(t)
		labels, err := newTestClient(srv.URL).MiscButtonLabels(context.Background(), "theme_toggle", "light")
		if err != nil {
			t.Fatalf("MiscButtonLabels() error = %v", err)
		}
		if len(labels) != 1 || labels[0].Title != "Switch to dark mode" {
			t.Errorf("unexpected labels %+v", labels)
		}
	})

	t.Run("Dropped Connection", func(t *testing.T) {
		h, srv := fixtureServer(t)
		h.SetFault("GetPlaylistRanks", server.Fault{Drop: true})

		_, err := newTestClient(srv.URL).PlaylistRanks(context.Background())
		if !errors.Is(err, shared.ErrConnection) {
			t.Errorf("expected ErrConnection, got %v", err)
		}
	})
}

func TestPlayCounts(t *testing.T) {
	chart := fixtures.MustLoad()
	pop, _ := chart.Playlist("pop", "tunemeld")
	isrcs := pop.ISRCs()

	t.Run("Keeps Request Order", func(t *testing.T) {
		_, srv := fixtureServer(t)
		req := []string{isrcs[3], isrcs[1], "", isrcs[3]}

		counts, err := newTestClient(srv.URL).PlayCounts(context.Background(), req)
		if err != nil {
			t.Fatalf("PlayCounts() error = %v", err)
		}
		if len(counts) != 2 || counts[0].ISRC != isrcs[3] || counts[1].ISRC != isrcs[1] {
			t.Errorf("unexpected counts %+v", counts)
		}
	})

	t.Run("Empty Input Skips Request", func(t *testing.T) {
		h, srv := fixtureServer(t)
		counts, err := newTestClient(srv.URL).PlayCounts(context.Background(), nil)
		if err != nil || len(counts) != 0 {
			t.Errorf("expected empty result, got %v %v", counts, err)
		}
		if h.Hits("GetPlayCounts") != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("Cache Serves Known ISRCs", func(t *testing.T) {
		h, srv := fixtureServer(t)
		cache := NewPlayCountCache(100, time.Minute)
		defer cache.Stop()
		c := newTestClient(srv.URL, func(o *ClientOptions) { o.PlayCounts = cache })

		if _, err := c.PlayCounts(context.Background(), isrcs[:2]); err != nil {
			t.Fatalf("PlayCounts() error = %v", err)
		}
		if _, err := c.PlayCounts(context.Background(), isrcs[:2]); err != nil {
			t.Fatalf("PlayCounts() error = %v", err)
		}
		if h.Hits("GetPlayCounts") != 1 {
			t.Errorf("expected cached second call, got %d requests", h.Hits("GetPlayCounts"))
		}

		counts, err := c.PlayCounts(context.Background(), isrcs)
		if err != nil {
			t.Fatalf("PlayCounts() error = %v", err)
		}
		if h.Hits("GetPlayCounts") != 2 || len(counts) != len(isrcs) {
			t.Errorf("expected one more request for the misses, got %d requests, %d counts", h.Hits("GetPlayCounts"), len(counts))
		}
		if counts[0].ISRC != isrcs[0] {
			t.Errorf("expected request order, got %s first", counts[0].ISRC)
		}
	})
}

func TestPlayCountCache(t *testing.T) {
	cache := NewPlayCountCache(10, time.Minute)
	defer cache.Stop()

	cache.Store(fixtures.MustLoad().PlayCountData[:3])
	found, missing := cache.Lookup([]string{"USRC102400000", "NOPE"})

	if _, ok := found["USRC102400000"]; !ok {
		t.Error("expected cached ISRC")
	}
	if len(missing) != 1 || missing[0] != "NOPE" {
		t.Errorf("unexpected misses %v", missing)
	}

	cache.Clear()
	if _, missing := cache.Lookup([]string{"USRC102400000"}); len(missing) != 1 {
		t.Error("expected cleared cache to miss")
	}
}

func TestGatewayError(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		sentinel error
		contains string
	}{
		{"Connection", &GatewayError{Kind: KindConnection, Query: "Q", Err: errors.New("refused")}, shared.ErrConnection, "refused"},
		{"Timeout", &GatewayError{Kind: KindTimeout, Query: "Q"}, shared.ErrTimeout, "Q"},
		{"HTTP", &GatewayError{Kind: KindHTTP, Query: "Q", Status: 503}, shared.ErrHTTPStatus, "503"},
		{"Query", &GatewayError{Kind: KindQuery, Query: "Q", Messages: []string{"a", "b"}}, shared.ErrQuery, "a, b"},
		{"Decode", &GatewayError{Kind: KindDecode, Query: "Q"}, shared.ErrDecode, "Q"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("expected %v to match %v", tc.err, tc.sentinel)
			}
			if !strings.Contains(tc.err.Error(), tc.contains) {
				t.Errorf("expected %q in %q", tc.contains, tc.err.Error())
			}
			if tc.err.Retryable() != (tc.err.Kind == KindConnection) {
				t.Errorf("unexpected Retryable() for %v", tc.err.Kind)
			}
		})
	}
}

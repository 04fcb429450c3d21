// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tunemeld/internal/fixtures"
	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/shared"
)

// Fixtures returns a fresh copy of the embedded chart dataset.
func Fixtures() *fixtures.Chart {
	return fixtures.MustLoad()
}

// MockGateway is a test double for [services.DataGateway] serving [Fixtures] data.
//
// Failures are injected per call key with [MockGateway.FailWith]. Keys are method names, and PlaylistTracks also
// accepts "PlaylistTracks:<service>". Calls for a key can be held with [MockGateway.Block] until released.
type MockGateway struct {
	Chart *fixtures.Chart

	mu     sync.Mutex
	errs   map[string]error
	calls  map[string]int
	gates  map[string]chan struct{}
	params []string
}

// NewMockGateway creates a [MockGateway] over a fresh fixture dataset.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Chart: Fixtures(),
		errs:  make(map[string]error),
		calls: make(map[string]int),
		gates: make(map[string]chan struct{}),
	}
}

// FailWith makes calls matching key return err. A nil err clears the failure.
func (m *MockGateway) FailWith(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, key)
		return
	}
	m.errs[key] = err
}

// Block holds calls matching key until the returned release func is called or the call's context ends.
func (m *MockGateway) Block(key string) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[key] = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.gates, key)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times key was called.
func (m *MockGateway) Calls(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

// Requests returns every call as "key(args)" in arrival order.
func (m *MockGateway) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.params...)
}

// Reset clears call counts and recorded requests.
func (m *MockGateway) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.params = nil
}

// enter records a call and applies any gate or injected error for the given keys.
func (m *MockGateway) enter(ctx context.Context, args string, keys ...string) error {
	m.mu.Lock()
	m.params = append(m.params, fmt.Sprintf("%s(%s)", keys[0], args))
	var gate chan struct{}
	var err error
	for _, k := range keys {
		m.calls[k]++
		if g, ok := m.gates[k]; ok && gate == nil {
			gate = g
		}
		if e, ok := m.errs[k]; ok && err == nil {
			err = e
		}
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// AvailableGenres implements [services.DataGateway].
func (m *MockGateway) AvailableGenres(ctx context.Context) (*models.GenreList, error) {
	if err := m.enter(ctx, "", "AvailableGenres"); err != nil {
		return nil, err
	}
	return &models.GenreList{
		Genres:       append([]models.Genre(nil), m.Chart.Genres...),
		DefaultGenre: m.Chart.DefaultGenre,
	}, nil
}

// PlaylistRanks implements [services.DataGateway].
func (m *MockGateway) PlaylistRanks(ctx context.Context) ([]models.Rank, error) {
	if err := m.enter(ctx, "", "PlaylistRanks"); err != nil {
		return nil, err
	}
	return append([]models.Rank(nil), m.Chart.Ranks...), nil
}

// PlaylistMetadata implements [services.DataGateway].
func (m *MockGateway) PlaylistMetadata(ctx context.Context, genre string) (*models.PlaylistMetadata, error) {
	if err := m.enter(ctx, genre, "PlaylistMetadata"); err != nil {
		return nil, err
	}
	meta, ok := m.Chart.Metadata(genre)
	if !ok {
		return nil, fmt.Errorf("%w: unknown genre %q", shared.ErrQuery, genre)
	}
	return meta, nil
}

// PlaylistTracks implements [services.DataGateway].
func (m *MockGateway) PlaylistTracks(ctx context.Context, genre, service string) (*models.Playlist, error) {
	if err := m.enter(ctx, genre+","+service, "PlaylistTracks", "PlaylistTracks:"+service); err != nil {
		return nil, err
	}
	p, ok := m.Chart.Playlist(genre, service)
	if !ok {
		return nil, fmt.Errorf("%w: no playlist for %s/%s", shared.ErrQuery, genre, service)
	}
	return p, nil
}

// PlayCounts implements [services.DataGateway].
func (m *MockGateway) PlayCounts(ctx context.Context, isrcs []string) ([]models.PlayCount, error) {
	if err := m.enter(ctx, strings.Join(isrcs, ","), "PlayCounts"); err != nil {
		return nil, err
	}
	return m.Chart.PlayCounts(isrcs), nil
}

// MiscButtonLabels implements [services.DataGateway].
func (m *MockGateway) MiscButtonLabels(ctx context.Context, buttonType, labelContext string) ([]models.ButtonLabel, error) {
	if err := m.enter(ctx, buttonType+","+labelContext, "MiscButtonLabels"); err != nil {
		return nil, err
	}
	return m.Chart.ButtonLabels(buttonType, labelContext), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// NewResponse builds an [http.Response] with the given status and body for use with [MockRoundTripper].
func NewResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

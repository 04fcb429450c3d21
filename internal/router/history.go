package router

import (
	"net/url"
	"strings"
	"sync"
)

// Query parameter names in the URL surface.
const (
	ParamGenre  = "genre"
	ParamRank   = "rank"
	ParamPlayer = "player"
	ParamISRC   = "isrc"
)

// History is the navigation history the router reads its location from.
//
// Push adds an entry that Back can return to. Replace rewrites the current entry.
type History interface {
	Location() *url.URL
	Push(u *url.URL)
	Replace(u *url.URL)
	Back() bool
	Forward() bool
	Len() int
}

// BuildURL builds "/?genre=G[&rank=R][&player=P&isrc=I]". Empty values are omitted.
func BuildURL(genre, rank, player, isrc string) *url.URL {
	var b strings.Builder
	b.WriteString(ParamGenre + "=" + url.QueryEscape(genre))
	if rank != "" {
		b.WriteString("&" + ParamRank + "=" + url.QueryEscape(rank))
	}
	if player != "" {
		b.WriteString("&" + ParamPlayer + "=" + url.QueryEscape(player))
	}
	if isrc != "" {
		b.WriteString("&" + ParamISRC + "=" + url.QueryEscape(isrc))
	}
	return &url.URL{Path: "/", RawQuery: b.String()}
}

// ParseLocation parses a path-and-query such as "/?genre=pop". An empty string is "/".
func ParseLocation(s string) (*url.URL, error) {
	if s == "" {
		s = "/"
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &url.URL{Path: u.Path, RawQuery: u.RawQuery}, nil
}

// MemoryHistory is an in-memory [History] with browser semantics: pushing discards forward entries.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

// NewMemoryHistory starts a history at start, or "/" when start is empty or unparsable.
func NewMemoryHistory(start string) *MemoryHistory {
	u, err := ParseLocation(start)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	return &MemoryHistory{entries: []string{u.String()}}
}

// Location returns a copy of the current entry.
func (h *MemoryHistory) Location() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, _ := ParseLocation(h.entries[h.index])
	return u
}

func (h *MemoryHistory) Push(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], u.String())
	h.index++
}

func (h *MemoryHistory) Replace(u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = u.String()
}

func (h *MemoryHistory) Back() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return false
	}
	h.index--
	return true
}

func (h *MemoryHistory) Forward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return false
	}
	h.index++
	return true
}

// Len returns the number of entries, including forward entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Entries returns every entry in order.
func (h *MemoryHistory) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

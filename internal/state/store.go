package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/shared"
)

// LoadingKind selects which placeholder layout is shown while data loads.
type LoadingKind string

const (
	LoadingNone    LoadingKind = ""
	LoadingInitial LoadingKind = "initial"
	LoadingGenre   LoadingKind = "genre"
	LoadingRank    LoadingKind = "rank"
)

// ApplicationState is a point-in-time copy of the store.
type ApplicationState struct {
	SortColumn       string
	SortOrder        string
	Theme            Theme
	CurrentGenre     string
	DefaultRankField string
	CurrentISRC      string
	CurrentPlayer    string
	Loading          LoadingKind
	InitialLoad      bool
}

// Options configures a [Store]. Every field is optional.
type Options struct {
	Preferences Preferences
	Surface     Surface
	Resolver    AnchorResolver
	Logger      *log.Logger
}

// Store is the single source of truth for client state. It is safe for concurrent use.
//
// Construct one per process with [NewStore] and pass it by reference.
type Store struct {
	prefs    Preferences
	surface  Surface
	elements *ElementCache
	logger   *log.Logger

	mu    sync.RWMutex
	state ApplicationState
}

// NewStore creates a [Store] with ascending sort order and no theme.
func NewStore(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	prefs := opts.Preferences
	if prefs == nil {
		prefs = NewMemoryPreferences()
	}

	return &Store{
		prefs:    prefs,
		surface:  opts.Surface,
		elements: NewElementCache(opts.Resolver),
		logger:   shared.WithLogger(logger, "component", "state"),
		state:    ApplicationState{SortOrder: models.OrderAsc},
	}
}

// CurrentColumn returns the active sort column, or "" before one is chosen.
func (s *Store) CurrentColumn() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortColumn
}

// SetCurrentColumn records the active sort column.
func (s *Store) SetCurrentColumn(column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortColumn = column
}

// CurrentOrder returns "asc" or "desc".
func (s *Store) CurrentOrder() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortOrder
}

// SetCurrentOrder records the sort order. Values other than "desc" are stored as "asc".
func (s *Store) SetCurrentOrder(order string) {
	if order != models.OrderDesc {
		order = models.OrderAsc
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SortOrder = order
}

// SetDefaultRankField records the backend's default rank field without touching the active column.
func (s *Store) SetDefaultRankField(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DefaultRankField = field
}

// SeedDefaultRank records the default rank field and makes it the active column if none is set yet.
// An already chosen column is never overwritten.
func (s *Store) SeedDefaultRank(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DefaultRankField = field
	if s.state.SortColumn == "" {
		s.state.SortColumn = field
	}
}

// DefaultRankField returns the backend's default rank field, or "" before rank data loads.
func (s *Store) DefaultRankField() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.DefaultRankField
}

// IsSortingByDefaultRank reports whether the active column is the default rank field.
func (s *Store) IsSortingByDefaultRank() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortColumn == s.state.DefaultRankField
}

// IsRankActive reports whether sortField is the active column.
func (s *Store) IsRankActive(sortField string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SortColumn == sortField
}

// CurrentGenre returns the active genre name, or "" before the first activation.
func (s *Store) CurrentGenre() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentGenre
}

// SetCurrentGenre records the active genre.
func (s *Store) SetCurrentGenre(genre string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentGenre = genre
}

// SetCurrentTrack records the deep-linked track and the player it opens in.
func (s *Store) SetCurrentTrack(isrc, player string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentISRC = isrc
	s.state.CurrentPlayer = player
}

// ClearCurrentTrack forgets the deep-linked track.
func (s *Store) ClearCurrentTrack() {
	s.SetCurrentTrack("", "")
}

// CurrentTrack returns the deep-linked ISRC and player, both "" when no track is selected.
func (s *Store) CurrentTrack() (isrc, player string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentISRC, s.state.CurrentPlayer
}

// Theme returns the current theme, or "" before [Store.LoadTheme].
func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Theme
}

// SetTheme records, persists and applies theme.
//
// The theme is applied even when persisting it fails; that error is still returned.
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if _, err := ParseTheme(string(theme)); err != nil {
		return err
	}

	s.mu.Lock()
	s.state.Theme = theme
	s.mu.Unlock()

	err := s.prefs.Set(ctx, PreferenceTheme, string(theme))
	if err != nil {
		s.logger.Warn("failed to persist theme", "theme", theme, "error", err)
		err = fmt.Errorf("failed to persist theme: %w", err)
	}
	s.ApplyTheme(theme)
	return err
}

// ToggleTheme switches between dark and light and returns the new theme.
func (s *Store) ToggleTheme(ctx context.Context) (Theme, error) {
	next := s.Theme().Toggle()
	return next, s.SetTheme(ctx, next)
}

// ApplyTheme pushes theme to the surface without recording or persisting it.
func (s *Store) ApplyTheme(theme Theme) {
	if s.surface != nil {
		s.surface.ApplyTheme(theme)
	}
}

// LoadTheme restores the persisted theme, falling back to [DefaultTheme] for now, and applies it.
// The fallback is not persisted.
func (s *Store) LoadTheme(ctx context.Context, now time.Time) Theme {
	theme := DefaultTheme(now)

	stored, err := s.prefs.Get(ctx, PreferenceTheme)
	switch {
	case err == nil:
		if t, perr := ParseTheme(stored); perr == nil {
			theme = t
		} else {
			s.logger.Warn("ignoring stored theme", "value", stored)
		}
	case !errors.Is(err, shared.ErrPreferenceNotFound):
		s.logger.Warn("failed to read theme preference", "error", err)
	}

	s.mu.Lock()
	s.state.Theme = theme
	s.mu.Unlock()
	s.ApplyTheme(theme)
	return theme
}

// Element returns the anchor with id, memoised until [Store.ClearElementCache].
func (s *Store) Element(id string) (Anchor, bool) {
	return s.elements.Get(id)
}

// ClearElementCache drops memoised anchors.
func (s *Store) ClearElementCache() {
	s.elements.Clear()
}

// Elements exposes the element cache.
func (s *Store) Elements() *ElementCache {
	return s.elements
}

// ShowLoading marks kind as loading. initial is sticky until [Store.HideLoading] or [Store.MarkInitialLoadComplete].
func (s *Store) ShowLoading(kind LoadingKind, initial bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = kind
	if initial {
		s.state.InitialLoad = true
	}
}

// HideLoading clears every loading indicator.
func (s *Store) HideLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = LoadingNone
	s.state.InitialLoad = false
}

// Loading returns the active loading kind.
func (s *Store) Loading() LoadingKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

// MarkInitialLoadComplete clears the initial-load flag.
func (s *Store) MarkInitialLoadComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.InitialLoad = false
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() ApplicationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

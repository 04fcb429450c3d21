package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tunemeld/internal/shared"
)

type recordingSurface struct {
	mu      sync.Mutex
	applied []Theme
}

func (r *recordingSurface) ApplyTheme(t Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, t)
}

func (r *recordingSurface) last() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.applied) == 0 {
		return ""
	}
	return r.applied[len(r.applied)-1]
}

type failingPreferences struct{ err error }

func (f failingPreferences) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingPreferences) Set(context.Context, string, string) error   { return f.err }

type anchor string

func (a anchor) AnchorID() string { return string(a) }

func TestStoreSorting(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		s := NewStore(Options{})
		if s.CurrentColumn() != "" {
			t.Errorf("expected no column, got %q", s.CurrentColumn())
		}
		if s.CurrentOrder() != "asc" {
			t.Errorf("expected asc, got %q", s.CurrentOrder())
		}
	})

	t.Run("SeedDefaultRank Initialises Empty Column", func(t *testing.T) {
		s := NewStore(Options{})
		s.SeedDefaultRank("tunemeld-rank")

		if s.CurrentColumn() != "tunemeld-rank" || s.DefaultRankField() != "tunemeld-rank" {
			t.Errorf("unexpected state %+v", s.Snapshot())
		}
		if !s.IsSortingByDefaultRank() {
			t.Error("expected default rank to be active")
		}
	})

	t.Run("SeedDefaultRank Keeps Chosen Column", func(t *testing.T) {
		s := NewStore(Options{})
		s.SetCurrentColumn("spotify-views")
		s.SeedDefaultRank("tunemeld-rank")

		if s.CurrentColumn() != "spotify-views" {
			t.Errorf("expected chosen column to survive, got %q", s.CurrentColumn())
		}
		if s.IsSortingByDefaultRank() {
			t.Error("expected non-default rank")
		}
		if !s.IsRankActive("spotify-views") || s.IsRankActive("tunemeld-rank") {
			t.Error("unexpected IsRankActive result")
		}
	})

	t.Run("SetDefaultRankField Leaves Column", func(t *testing.T) {
		s := NewStore(Options{})
		s.SetDefaultRankField("tunemeld-rank")
		if s.CurrentColumn() != "" {
			t.Errorf("expected column untouched, got %q", s.CurrentColumn())
		}
	})

	t.Run("Order Is Normalised", func(t *testing.T) {
		s := NewStore(Options{})
		s.SetCurrentOrder("desc")
		if s.CurrentOrder() != "desc" {
			t.Errorf("expected desc, got %q", s.CurrentOrder())
		}
		s.SetCurrentOrder("sideways")
		if s.CurrentOrder() != "asc" {
			t.Errorf("expected asc, got %q", s.CurrentOrder())
		}
	})
}

func TestStoreGenreAndTrack(t *testing.T) {
	s := NewStore(Options{})
	s.SetCurrentGenre("rap")
	s.SetCurrentTrack("USRC1", "spotify")

	snap := s.Snapshot()
	if snap.CurrentGenre != "rap" || snap.CurrentISRC != "USRC1" || snap.CurrentPlayer != "spotify" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	s.ClearCurrentTrack()
	if isrc, player := s.CurrentTrack(); isrc != "" || player != "" {
		t.Errorf("expected cleared track, got %q %q", isrc, player)
	}
	if snap.CurrentISRC != "USRC1" {
		t.Error("expected snapshot to be a copy")
	}
}

func TestStoreTheme(t *testing.T) {
	ctx := context.Background()

	t.Run("Toggle Twice Restores Theme", func(t *testing.T) {
		prefs := NewMemoryPreferences()
		surface := &recordingSurface{}
		s := NewStore(Options{Preferences: prefs, Surface: surface})

		if err := s.SetTheme(ctx, ThemeLight); err != nil {
			t.Fatalf("SetTheme() error = %v", err)
		}

		first, err := s.ToggleTheme(ctx)
		if err != nil || first != ThemeDark {
			t.Fatalf("expected dark, got %q %v", first, err)
		}
		second, err := s.ToggleTheme(ctx)
		if err != nil || second != ThemeLight {
			t.Fatalf("expected light, got %q %v", second, err)
		}

		stored, _ := prefs.Get(ctx, PreferenceTheme)
		if stored != string(s.Theme()) {
			t.Errorf("expected storage %q to match state %q", stored, s.Theme())
		}
		if surface.last() != ThemeLight {
			t.Errorf("expected surface to show light, got %q", surface.last())
		}
	})

	t.Run("Rejects Unknown Theme", func(t *testing.T) {
		s := NewStore(Options{})
		if err := s.SetTheme(ctx, Theme("sepia")); !errors.Is(err, shared.ErrInvalidTheme) {
			t.Errorf("expected ErrInvalidTheme, got %v", err)
		}
	})

	t.Run("Persistence Failure Still Applies", func(t *testing.T) {
		surface := &recordingSurface{}
		s := NewStore(Options{Preferences: failingPreferences{err: errors.New("disk full")}, Surface: surface})

		if err := s.SetTheme(ctx, ThemeDark); err == nil {
			t.Error("expected persistence error")
		}
		if s.Theme() != ThemeDark || surface.last() != ThemeDark {
			t.Errorf("expected dark to be applied, got state %q surface %q", s.Theme(), surface.last())
		}
	})

	t.Run("LoadTheme Uses Stored Value", func(t *testing.T) {
		prefs := NewMemoryPreferences()
		prefs.Set(ctx, PreferenceTheme, "dark")
		surface := &recordingSurface{}
		s := NewStore(Options{Preferences: prefs, Surface: surface})

		noon := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
		if got := s.LoadTheme(ctx, noon); got != ThemeDark {
			t.Errorf("expected stored dark, got %q", got)
		}
		if surface.last() != ThemeDark {
			t.Error("expected theme to be applied")
		}
	})

	t.Run("LoadTheme Falls Back To Time Of Day", func(t *testing.T) {
		tests := []struct {
			hour int
			want Theme
		}{
			{6, ThemeDark},
			{7, ThemeLight},
			{18, ThemeLight},
			{19, ThemeDark},
			{23, ThemeDark},
		}
		for _, tc := range tests {
			prefs := NewMemoryPreferences()
			s := NewStore(Options{Preferences: prefs})
			now := time.Date(2024, 6, 1, tc.hour, 30, 0, 0, time.Local)

			if got := s.LoadTheme(ctx, now); got != tc.want {
				t.Errorf("hour %d: expected %q, got %q", tc.hour, tc.want, got)
			}
			if _, err := prefs.Get(ctx, PreferenceTheme); !errors.Is(err, shared.ErrPreferenceNotFound) {
				t.Errorf("hour %d: expected fallback not to be persisted", tc.hour)
			}
		}
	})

	t.Run("LoadTheme Ignores Garbage", func(t *testing.T) {
		prefs := NewMemoryPreferences()
		prefs.Set(ctx, PreferenceTheme, "neon")
		s := NewStore(Options{Preferences: prefs})

		noon := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
		if got := s.LoadTheme(ctx, noon); got != ThemeLight {
			t.Errorf("expected light fallback, got %q", got)
		}
	})
}

func TestElementCache(t *testing.T) {
	present := map[string]bool{"playlist-body": true}
	var mu sync.Mutex
	resolver := AnchorResolverFunc(func(id string) (Anchor, bool) {
		mu.Lock()
		defer mu.Unlock()
		if present[id] {
			return anchor(id), true
		}
		return nil, false
	})

	s := NewStore(Options{Resolver: resolver})

	t.Run("Memoises Hits", func(t *testing.T) {
		a, ok := s.Element("playlist-body")
		if !ok || a.AnchorID() != "playlist-body" {
			t.Fatalf("expected anchor, got %v %v", a, ok)
		}
		s.Element("playlist-body")
		if s.Elements().Lookups() != 1 {
			t.Errorf("expected a single resolver lookup, got %d", s.Elements().Lookups())
		}
	})

	t.Run("Does Not Memoise Misses", func(t *testing.T) {
		if _, ok := s.Element("rank-buttons"); ok {
			t.Fatal("expected miss")
		}
		mu.Lock()
		present["rank-buttons"] = true
		mu.Unlock()
		if _, ok := s.Element("rank-buttons"); !ok {
			t.Error("expected anchor once rendered")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s.ClearElementCache()
		if s.Elements().Len() != 0 {
			t.Errorf("expected empty cache, got %d", s.Elements().Len())
		}
	})

	t.Run("Nil Resolver", func(t *testing.T) {
		if _, ok := NewStore(Options{}).Element("x"); ok {
			t.Error("expected miss without resolver")
		}
	})
}

func TestStoreLoading(t *testing.T) {
	s := NewStore(Options{})
	s.ShowLoading(LoadingInitial, true)
	s.ShowLoading(LoadingGenre, false)

	snap := s.Snapshot()
	if snap.Loading != LoadingGenre || !snap.InitialLoad {
		t.Errorf("expected sticky initial flag, got %+v", snap)
	}

	s.HideLoading()
	if s.Loading() != LoadingNone || s.Snapshot().InitialLoad {
		t.Errorf("expected loading cleared, got %+v", s.Snapshot())
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(Options{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if i%2 == 0 {
					s.SetCurrentColumn("spotify-views")
				} else {
					s.IsSortingByDefaultRank()
					s.Snapshot()
				}
			}
		}()
	}
	wg.Wait()
}

package router

import (
	"github.com/samber/lo"

	"github.com/desertthunder/tunemeld/internal/models"
)

// defaultRank returns the rank flagged as default, falling back to the first rank.
func (d *ReferenceData) defaultRank() (models.Rank, bool) {
	if r, ok := lo.Find(d.Ranks, func(r models.Rank) bool { return r.IsDefault }); ok {
		return r, true
	}
	return lo.First(d.Ranks)
}

func (r *Router) reference() *ReferenceData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ref
}

// HasValidData reports whether genres and ranks have been loaded.
func (r *Router) HasValidData() bool {
	ref := r.reference()
	return ref != nil && len(ref.Genres) > 0 && len(ref.Ranks) > 0
}

// AvailableGenres returns the loaded genres, or nil before initialization.
func (r *Router) AvailableGenres() []models.Genre {
	if ref := r.reference(); ref != nil {
		return ref.Genres
	}
	return nil
}

// AvailableRanks returns the loaded ranks, or nil before initialization.
func (r *Router) AvailableRanks() []models.Rank {
	if ref := r.reference(); ref != nil {
		return ref.Ranks
	}
	return nil
}

// IsValidGenre reports whether a loaded genre is named name.
func (r *Router) IsValidGenre(name string) bool {
	_, ok := r.genre(name)
	return ok
}

// IsValidRank reports whether a loaded rank has sortField.
func (r *Router) IsValidRank(sortField string) bool {
	_, ok := r.rank(sortField)
	return ok
}

func (r *Router) genre(name string) (models.Genre, bool) {
	if name == "" {
		return models.Genre{}, false
	}
	return lo.Find(r.AvailableGenres(), func(g models.Genre) bool { return g.Name == name })
}

func (r *Router) rank(sortField string) (models.Rank, bool) {
	if sortField == "" {
		return models.Rank{}, false
	}
	return lo.Find(r.AvailableRanks(), func(rk models.Rank) bool { return rk.SortField == sortField })
}

// GenreDisplayName returns the genre's display name, or name itself when unknown.
func (r *Router) GenreDisplayName(name string) string {
	if g, ok := r.genre(name); ok && g.DisplayName != "" {
		return g.DisplayName
	}
	return name
}

// RankDisplayName returns the rank's display name, or sortField itself when unknown.
func (r *Router) RankDisplayName(sortField string) string {
	if rk, ok := r.rank(sortField); ok && rk.DisplayName != "" {
		return rk.DisplayName
	}
	return sortField
}

// DefaultGenre returns the backend's default genre when it is loaded, otherwise the first genre.
func (r *Router) DefaultGenre() string {
	ref := r.reference()
	if ref == nil {
		return ""
	}
	if r.IsValidGenre(ref.DefaultGenre) {
		return ref.DefaultGenre
	}
	if g, ok := lo.First(ref.Genres); ok {
		return g.Name
	}
	return ""
}

// DefaultRank returns the default rank's sort field, or "" before initialization.
func (r *Router) DefaultRank() string {
	ref := r.reference()
	if ref == nil {
		return ""
	}
	if rk, ok := ref.defaultRank(); ok {
		return rk.SortField
	}
	return ""
}

// CurrentGenre returns the active genre from the store.
func (r *Router) CurrentGenre() string {
	return r.store.CurrentGenre()
}

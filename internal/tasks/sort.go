package tasks

import (
	"slices"

	"github.com/desertthunder/tunemeld/internal/models"
)

// FindRank returns the rank whose sort field is sortField.
func FindRank(ranks []models.Rank, sortField string) (models.Rank, bool) {
	i := slices.IndexFunc(ranks, func(r models.Rank) bool { return r.SortField == sortField })
	if i < 0 {
		return models.Rank{}, false
	}
	return ranks[i], true
}

// ApplySort orders the playlist for the active column in place.
//
// The default rank keeps the backend order and positions, numbering tracks without a tunemeld rank by index. Any other known rank is a stable sort on its data field,
// unset values counting as 0, followed by renumbering positions from 1. It reports whether the tracks were re-sorted.
func ApplySort(p *models.Playlist, ranks []models.Rank, column, order, defaultField string) bool {
	if p == nil {
		return false
	}
	if column == "" || column == defaultField {
		for i := range p.Tracks {
			p.Tracks[i].Position = p.Tracks[i].TunemeldRank
			if p.Tracks[i].Position == 0 {
				p.Tracks[i].Position = i + 1
			}
		}
		return false
	}

	rank, ok := FindRank(ranks, column)
	if !ok {
		return false
	}

	field := rank.Field()
	desc := order == models.OrderDesc
	slices.SortStableFunc(p.Tracks, func(a, b models.Track) int {
		av, _ := a.Field(field)
		bv, _ := b.Field(field)
		if desc {
			av, bv = bv, av
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	})

	for i := range p.Tracks {
		p.Tracks[i].Position = i + 1
	}
	return true
}

// Enrich copies play counts onto every track with a matching ISRC and returns how many tracks were updated.
func Enrich(p *models.Playlist, counts map[string]models.PlayCount) int {
	if p == nil {
		return 0
	}
	n := 0
	for i := range p.Tracks {
		if pc, ok := counts[p.Tracks[i].ISRC]; ok {
			p.Tracks[i].ApplyPlayCount(pc)
			n++
		}
	}
	return n
}

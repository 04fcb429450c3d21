package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/tunemeld/internal/formatter"
	"github.com/desertthunder/tunemeld/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.TrackName + " " + i.track.ArtistName }
func (i trackItem) Title() string       { return fmt.Sprintf("%2d. %s", i.track.Position, i.track.TrackName) }
func (i trackItem) Description() string {
	desc := i.track.ArtistName
	if i.track.TotalCurrentPlayCount != nil {
		desc = fmt.Sprintf("%s • %s plays", desc, formatter.Abbreviate(*i.track.TotalCurrentPlayCount))
	}
	return desc
}

func trackItems(p *models.Playlist) []list.Item {
	if p == nil {
		return nil
	}
	items := make([]list.Item, len(p.Tracks))
	for i, t := range p.Tracks {
		items[i] = trackItem{track: t}
	}
	return items
}

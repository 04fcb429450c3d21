// package models defines the chart data model for the tunemeld client
package models

import "strings"

// Service names as used by the API and the player deep link.
const (
	ServiceTunemeld   = "tunemeld"
	ServiceSpotify    = "spotify"
	ServiceAppleMusic = "apple_music"
	ServiceSoundcloud = "soundcloud"
	ServiceYouTube    = "youtube"
)

// Sort orders accepted by [Rank.SortOrder].
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ButtonLabel carries UI text for a control, keyed by button type and context.
type ButtonLabel struct {
	ButtonType string `json:"buttonType"`
	Context    string `json:"context,omitempty"`
	Title      string `json:"title,omitempty"`
	AriaLabel  string `json:"ariaLabel,omitempty"`
}

// Genre is a musical category. Routing identifies genres by Name, never by ID.
type Genre struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	DisplayName  string        `json:"displayName"`
	IconURL      string        `json:"iconUrl"`
	ButtonLabels []ButtonLabel `json:"buttonLabels,omitempty"`
}

// GenreList is the genre reference data with the backend-declared default genre name.
type GenreList struct {
	Genres       []Genre `json:"genres"`
	DefaultGenre string  `json:"defaultGenre"`
}

// Rank is a named sort criterion with a backend-declared default.
type Rank struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	SortField   string `json:"sortField"`
	SortOrder   string `json:"sortOrder"`
	IsDefault   bool   `json:"isDefault"`
	DataField   string `json:"dataField"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// Field returns the track field this rank sorts on.
func (r Rank) Field() string {
	if r.DataField != "" {
		return r.DataField
	}
	return r.SortField
}

// Descending reports whether the rank sorts largest first.
func (r Rank) Descending() bool {
	return strings.EqualFold(r.SortOrder, OrderDesc)
}

// PlaylistDescriptor describes one service's playlist for a genre, without tracks.
type PlaylistDescriptor struct {
	PlaylistName                 string `json:"playlistName"`
	PlaylistCoverURL             string `json:"playlistCoverUrl,omitempty"`
	PlaylistCoverDescriptionText string `json:"playlistCoverDescriptionText,omitempty"`
	PlaylistURL                  string `json:"playlistUrl,omitempty"`
	GenreName                    string `json:"genreName"`
	ServiceName                  string `json:"serviceName"`
	ServiceIconURL               string `json:"serviceIconUrl,omitempty"`
}

// PlaylistMetadata lists the services contributing to a genre, in render order.
type PlaylistMetadata struct {
	ServiceOrder []string             `json:"serviceOrder"`
	Playlists    []PlaylistDescriptor `json:"playlistsByGenre"`
}

// Descriptor returns the descriptor for service, if present.
func (m *PlaylistMetadata) Descriptor(service string) (PlaylistDescriptor, bool) {
	for _, p := range m.Playlists {
		if p.ServiceName == service {
			return p, true
		}
	}
	return PlaylistDescriptor{}, false
}

// Playlist is a service or aggregated playlist with its tracks.
type Playlist struct {
	GenreName    string  `json:"genreName"`
	ServiceName  string  `json:"serviceName"`
	PlaylistName string  `json:"playlistName,omitempty"`
	PlaylistURL  string  `json:"playlistUrl,omitempty"`
	Tracks       []Track `json:"tracks"`
}

// ISRCs returns the distinct, non-empty ISRCs of the playlist in track order.
func (p *Playlist) ISRCs() []string {
	seen := make(map[string]struct{}, len(p.Tracks))
	isrcs := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if t.ISRC == "" {
			continue
		}
		if _, ok := seen[t.ISRC]; ok {
			continue
		}
		seen[t.ISRC] = struct{}{}
		isrcs = append(isrcs, t.ISRC)
	}
	return isrcs
}

// Track finds the track with the given ISRC.
func (p *Playlist) Track(isrc string) (*Track, bool) {
	for i := range p.Tracks {
		if p.Tracks[i].ISRC == isrc {
			return &p.Tracks[i], true
		}
	}
	return nil, false
}

// Clone returns a copy of the playlist whose track slice can be reordered independently.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Tracks = append([]Track(nil), p.Tracks...)
	return &c
}

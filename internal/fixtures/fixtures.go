// package fixtures embeds a small, self-consistent chart dataset used by the fixture server and by tests
package fixtures

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-json"

	"github.com/desertthunder/tunemeld/internal/models"
)

//go:embed chart.json
var chartJSON []byte

// Chart is the full dataset: reference data, per-genre playlists and enrichment.
type Chart struct {
	DefaultGenre     string                                 `json:"defaultGenre"`
	ServiceOrder     []string                               `json:"serviceOrder"`
	Genres           []models.Genre                         `json:"genres"`
	Ranks            []models.Rank                          `json:"ranks"`
	Playlists        map[string]map[string]*models.Playlist `json:"playlists"`
	PlaylistsByGenre map[string][]models.PlaylistDescriptor `json:"playlistsByGenre"`
	PlayCountData    []models.PlayCount                     `json:"playCounts"`
	ButtonLabelData  []models.ButtonLabel                   `json:"buttonLabels"`
}

// Load decodes a fresh copy of the embedded dataset. Callers may mutate the result.
func Load() (*Chart, error) {
	return decode(chartJSON)
}

// LoadFile decodes a dataset with the same shape as the embedded one from path.
func LoadFile(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Chart, error) {
	var c Chart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	for _, byService := range c.Playlists {
		for _, p := range byService {
			for i := range p.Tracks {
				p.Tracks[i].Position = p.Tracks[i].TunemeldRank
			}
		}
	}
	return &c, nil
}

// MustLoad is [Load] for package-level initialisation and tests.
func MustLoad() *Chart {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Genre returns the genre named name.
func (c *Chart) Genre(name string) (models.Genre, bool) {
	i := slices.IndexFunc(c.Genres, func(g models.Genre) bool { return g.Name == name })
	if i < 0 {
		return models.Genre{}, false
	}
	return c.Genres[i], true
}

// GenreNames returns the genre names in display order.
func (c *Chart) GenreNames() []string {
	names := make([]string, len(c.Genres))
	for i, g := range c.Genres {
		names[i] = g.Name
	}
	return names
}

// Metadata returns the service order and descriptors for genre.
func (c *Chart) Metadata(genre string) (*models.PlaylistMetadata, bool) {
	descriptors, ok := c.PlaylistsByGenre[genre]
	if !ok {
		return nil, false
	}
	return &models.PlaylistMetadata{
		ServiceOrder: slices.Clone(c.ServiceOrder),
		Playlists:    slices.Clone(descriptors),
	}, true
}

// Playlist returns a copy of the playlist for (genre, service).
func (c *Chart) Playlist(genre, service string) (*models.Playlist, bool) {
	byService, ok := c.Playlists[genre]
	if !ok {
		return nil, false
	}
	p, ok := byService[service]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// PlayCounts returns the known counts for isrcs, in request order.
func (c *Chart) PlayCounts(isrcs []string) []models.PlayCount {
	index := make(map[string]models.PlayCount, len(c.PlayCountData))
	for _, pc := range c.PlayCountData {
		index[pc.ISRC] = pc
	}

	counts := make([]models.PlayCount, 0, len(isrcs))
	for _, isrc := range isrcs {
		if pc, ok := index[isrc]; ok {
			counts = append(counts, pc)
		}
	}
	return counts
}

// ButtonLabels filters labels by type and, when context is non-empty, by context.
func (c *Chart) ButtonLabels(buttonType, context string) []models.ButtonLabel {
	labels := []models.ButtonLabel{}
	for _, l := range c.ButtonLabelData {
		if l.ButtonType != buttonType {
			continue
		}
		if context != "" && l.Context != context {
			continue
		}
		labels = append(labels, l)
	}
	return labels
}

// package services defines the [DataGateway] used by the router and the activation pipeline,
// and implements it over the tunemeld GraphQL API
package services

import (
	"context"

	"github.com/desertthunder/tunemeld/internal/models"
)

// DataGateway fetches chart data. Each call is independently retriable and may fail with a [*GatewayError].
type DataGateway interface {
	// AvailableGenres returns every genre and the backend-declared default genre name.
	AvailableGenres(ctx context.Context) (*GenresResult, error)

	// PlaylistRanks returns the rank (sort) definitions. Exactly one is flagged as default.
	PlaylistRanks(ctx context.Context) ([]models.Rank, error)

	// PlaylistMetadata returns the service order and per-service descriptors for genre.
	PlaylistMetadata(ctx context.Context, genre string) (*models.PlaylistMetadata, error)

	// PlaylistTracks returns the full track list for a (genre, service) pair.
	// The aggregated chart is requested with service [models.ServiceTunemeld].
	PlaylistTracks(ctx context.Context, genre, service string) (*models.Playlist, error)

	// PlayCounts returns play count enrichment for the given ISRCs in a single batch.
	PlayCounts(ctx context.Context, isrcs []string) ([]models.PlayCount, error)

	// MiscButtonLabels returns UI text for a button type, optionally narrowed by context (e.g. a theme).
	MiscButtonLabels(ctx context.Context, buttonType, labelContext string) ([]models.ButtonLabel, error)
}

// GenresResult is the payload of [DataGateway.AvailableGenres].
type GenresResult = models.GenreList

// RanksResult is the payload of [DataGateway.PlaylistRanks].
type RanksResult struct {
	Ranks []models.Rank `json:"ranks"`
}

// Default returns the rank flagged as default.
func (r RanksResult) Default() (models.Rank, bool) {
	for _, rank := range r.Ranks {
		if rank.IsDefault {
			return rank, true
		}
	}
	return models.Rank{}, false
}

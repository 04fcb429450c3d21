package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/desertthunder/tunemeld/internal/models"
)

// Query is a named GraphQL document. Name doubles as the endpoint path segment.
type Query struct {
	Name string
	Text string
}

const buttonLabelFields = `
            buttonType
            context
            title
            ariaLabel`

var (
	QueryAvailableGenres = Query{Name: "GetAvailableGenres", Text: `
      query GetAvailableGenres {
        genres {
          id
          name
          displayName
          iconUrl
          buttonLabels {` + buttonLabelFields + `
          }
        }
        defaultGenre
      }`}

	QueryPlaylistMetadata = Query{Name: "GetPlaylistMetadata", Text: `
      query GetPlaylistMetadata($genre: String!) {
        serviceOrder
        playlistsByGenre(genre: $genre) {
          playlistName
          playlistCoverUrl
          playlistCoverDescriptionText
          playlistUrl
          genreName
          serviceName
          serviceIconUrl
        }
      }`}

	QueryPlaylistTracks = Query{Name: "GetPlaylistTracks", Text: `
      query GetPlaylistTracks($genre: String!, $service: String!) {
        playlist(genre: $genre, service: $service) {
          genreName
          serviceName
          playlistName
          playlistUrl
          tracks {
            tunemeldRank
            spotifyRank
            appleMusicRank
            soundcloudRank
            isrc
            trackName
            artistName
            fullTrackName
            fullArtistName
            albumName
            albumCoverUrl
            youtubeUrl
            spotifyUrl
            appleMusicUrl
            soundcloudUrl
          }
        }
      }`}

	QueryPlaylistRanks = Query{Name: "GetPlaylistRanks", Text: `
      query GetPlaylistRanks {
        ranks {
          name
          displayName
          sortField
          sortOrder
          isDefault
          dataField
        }
      }`}

	QueryPlayCounts = Query{Name: "GetPlayCounts", Text: `
      query GetPlayCounts($isrcs: [String!]!) {
        tracksPlayCounts(isrcs: $isrcs) {
          isrc
          youtubeCurrentPlayCount
          spotifyCurrentPlayCount
          totalCurrentPlayCount
          youtubeCurrentPlayCountAbbreviated
          spotifyCurrentPlayCountAbbreviated
          totalCurrentPlayCountAbbreviated
          totalWeeklyChangePercentage
          totalWeeklyChangePercentageFormatted
        }
      }`}

	QueryMiscButtonLabels = Query{Name: "GetMiscButtonLabels", Text: `
      query GetMiscButtonLabels($buttonType: String!, $context: String) {
        miscButtonLabels(buttonType: $buttonType, context: $context) {` + buttonLabelFields + `
        }
      }`}
)

// Queries lists every query the client issues, keyed by name.
var Queries = lo.KeyBy([]Query{
	QueryAvailableGenres,
	QueryPlaylistMetadata,
	QueryPlaylistTracks,
	QueryPlaylistRanks,
	QueryPlayCounts,
	QueryMiscButtonLabels,
}, func(q Query) string { return q.Name })

// AvailableGenres implements [DataGateway].
func (c *GraphQLClient) AvailableGenres(ctx context.Context) (*GenresResult, error) {
	var result GenresResult
	if err := c.Query(ctx, QueryAvailableGenres, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlaylistRanks implements [DataGateway].
func (c *GraphQLClient) PlaylistRanks(ctx context.Context) ([]models.Rank, error) {
	var result RanksResult
	if err := c.Query(ctx, QueryPlaylistRanks, nil, &result); err != nil {
		return nil, err
	}
	return result.Ranks, nil
}

// PlaylistMetadata implements [DataGateway].
func (c *GraphQLClient) PlaylistMetadata(ctx context.Context, genre string) (*models.PlaylistMetadata, error) {
	var result models.PlaylistMetadata
	if err := c.Query(ctx, QueryPlaylistMetadata, map[string]any{"genre": genre}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlaylistTracks implements [DataGateway].
func (c *GraphQLClient) PlaylistTracks(ctx context.Context, genre, service string) (*models.Playlist, error) {
	var result struct {
		Playlist *models.Playlist `json:"playlist"`
	}
	vars := map[string]any{"genre": genre, "service": service}
	if err := c.Query(ctx, QueryPlaylistTracks, vars, &result); err != nil {
		return nil, err
	}
	if result.Playlist == nil {
		return nil, &GatewayError{
			Kind: KindDecode, Query: QueryPlaylistTracks.Name,
			Err: fmt.Errorf("no playlist for %s/%s", genre, service),
		}
	}

	for i := range result.Playlist.Tracks {
		result.Playlist.Tracks[i].Position = result.Playlist.Tracks[i].TunemeldRank
	}
	return result.Playlist, nil
}

// PlayCounts implements [DataGateway].
//
// When a [PlayCountCache] is configured, only ISRCs missing from the cache are requested and the result keeps the
// order of isrcs. ISRCs the backend has no data for are omitted.
func (c *GraphQLClient) PlayCounts(ctx context.Context, isrcs []string) ([]models.PlayCount, error) {
	isrcs = lo.Uniq(lo.Compact(isrcs))
	if len(isrcs) == 0 {
		return []models.PlayCount{}, nil
	}

	if c.playCounts == nil {
		return c.fetchPlayCounts(ctx, isrcs)
	}

	found, missing := c.playCounts.Lookup(isrcs)
	if len(missing) > 0 {
		fetched, err := c.fetchPlayCounts(ctx, missing)
		if err != nil {
			return nil, err
		}
		c.playCounts.Store(fetched)
		for _, pc := range fetched {
			found[pc.ISRC] = pc
		}
	}

	return lo.FilterMap(isrcs, func(isrc string, _ int) (models.PlayCount, bool) {
		pc, ok := found[isrc]
		return pc, ok
	}), nil
}

func (c *GraphQLClient) fetchPlayCounts(ctx context.Context, isrcs []string) ([]models.PlayCount, error) {
	var result struct {
		TracksPlayCounts []models.PlayCount `json:"tracksPlayCounts"`
	}
	if err := c.Query(ctx, QueryPlayCounts, map[string]any{"isrcs": isrcs}, &result); err != nil {
		return nil, err
	}
	return result.TracksPlayCounts, nil
}

// MiscButtonLabels implements [DataGateway]. An empty context is sent as null.
func (c *GraphQLClient) MiscButtonLabels(ctx context.Context, buttonType, labelContext string) ([]models.ButtonLabel, error) {
	vars := map[string]any{"buttonType": buttonType, "context": nil}
	if strings.TrimSpace(labelContext) != "" {
		vars["context"] = labelContext
	}

	var result struct {
		MiscButtonLabels []models.ButtonLabel `json:"miscButtonLabels"`
	}
	if err := c.Query(ctx, QueryMiscButtonLabels, vars, &result); err != nil {
		return nil, err
	}
	return result.MiscButtonLabels, nil
}

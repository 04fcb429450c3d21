// Package models defines the chart data exchanged between the tunemeld API, the router and the renderers.
//
// Reference data, loaded once per session and never invalidated:
//   - [Genre] : a musical category, addressed by [Genre.Name] in URLs
//   - [Rank] : a sort criterion; exactly one is flagged [Rank.IsDefault]
//
// Per-activation data, refetched whenever a genre is fully activated:
//   - [PlaylistMetadata] : service order plus one [PlaylistDescriptor] per service
//   - [Playlist] : a service (or the aggregated "tunemeld") playlist with its [Track] list
//   - [PlayCount] : play count enrichment joined to tracks by ISRC
//
// [Track.ISRC] is the cross-service join key.
package models

// Package server hosts a fixture rendition of the tunemeld chart API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// Provided middleware:
//   - [RequestID] : echoes or generates X-Request-ID
//   - [Logging] : one structured log line per request
//   - [Recover] : converts handler panics into 500 responses
//
// # Fixture API
//
// [FixtureHandler] serves the named GraphQL queries the client issues (GetAvailableGenres, GetPlaylistRanks,
// GetPlaylistMetadata, GetPlaylistTracks, GetPlayCounts, GetMiscButtonLabels) from the embedded fixtures dataset.
// It does not parse GraphQL; the query name selects the resolver and the variables select the data.
//
// Failures can be injected per query with [FixtureHandler.SetFault] to exercise every gateway error kind:
// HTTP status, GraphQL error lists, latency and dropped connections.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

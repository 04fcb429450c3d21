// Package tasks loads, orders and exports charts with real-time progress reporting.
//
// # Genre Activation
//
// [Pipeline.Run] activates one genre in one of two modes:
//
//  1. Full update (genre changed or first activation)
//     - Fetches playlist metadata, the aggregated tunemeld chart and rank definitions together
//     - Fetches every service's chart in metadata order; a failing service leaves an empty slot
//     - Enriches the tunemeld chart with play counts (failures are logged only)
//     - Renders headers, service charts by slot and the main chart
//
//  2. Partial update (rank change within the same genre)
//     - Refetches the tunemeld chart, enriches it and re-renders it
//
// Both modes finish by rendering rank buttons, hiding loaders, resetting collapse state and re-attaching listeners.
// Ordering keeps backend positions unless a non-default rank is active, see [ApplySort].
//
// Each activation carries a generation. When the configured stale check reports that a newer
// activation has started, the run stops before rendering.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Export
//
// [Exporter.Export] writes every selected genre/service chart through the formatter package using a
// rate-limited producer and a pool of writers, then records an export manifest.
package tasks

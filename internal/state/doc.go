// Package state holds the client's [ApplicationState] behind a [Store].
//
// The store owns the sort selection (active column, order and the backend's default rank field), the theme,
// the active genre and the deep-linked track. Routing and rendering read it; only the router and the UI bindings
// write it.
//
// # Default rank
//
// [Store.SetDefaultRankField] only records the default. [Store.SeedDefaultRank] also makes it the active column
// when no column has been chosen yet, and never overwrites a column that has.
//
// # Theme
//
// [Store.SetTheme] records, persists (through [Preferences], key "theme") and applies (through [Surface]).
// [Store.LoadTheme] restores the persisted value or falls back to [DefaultTheme].
//
// # Anchors
//
// Rendered elements are addressed by id through an [AnchorResolver]. [ElementCache] memoises hits only and is
// cleared on every full re-render.
package state

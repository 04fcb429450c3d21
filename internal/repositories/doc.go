// Package repositories implements SQLite persistence for client-local state.
//
// Key Implementations:
//   - [PreferenceRepository] : key/value preferences (the persisted theme) implementing state.Preferences
//   - [RouteHistoryRepository] : resolved locations, used to restore the previous session's route
//
// Tables are created by the embedded migrations in internal/shared. Every query takes a context.
package repositories

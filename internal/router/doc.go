// Package router maps locations of the form "/?genre=G&rank=R" to genre activations.
//
// A [Router] moves from [Uninitialized] through [Initializing] to [Ready]. [Router.Initialize] loads
// genres and ranks concurrently, seeds the default rank in the state store, installs the route table
// once and resolves the current [History] location.
//
// Resolution keeps a valid genre as is and leaves a missing rank out of the URL. A missing or unknown
// genre, or an unmatched path, replaces the current entry with the default genre and rank so no extra
// back entry is created. Navigation pushes entries; [Router.Back] and [Router.Forward] re-resolve.
//
// Every activation increments a generation counter that the activation pipeline checks before
// rendering, so a slow earlier navigation cannot overwrite a later one.
package router

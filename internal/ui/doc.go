// Package ui implements the interactive chart browser using bubbletea's Elm architecture.
//
// The screen mirrors the chart page: genre tabs, rank buttons, one summary per streaming service and the
// aggregated chart as a list. [Bridge] adapts the router and activation pipeline to the program: it is
// the pipeline's renderer, the router's document and track opener, and the state store's theme surface and
// anchor resolver. Each call updates a headless page and forwards a snapshot to the program with Send.
//
// Router operations block on the network, so [Model] runs them in tea.Cmds. Bridge methods must never be
// invoked from Update itself, since Program.Send would wait on the loop that is calling it.
//
// Keyboard navigation (tab/shift+tab genres, r or 1-9 ranks, </> history, t theme, p player, R retry) is
// shown with charmbracelet/bubbles/help. Rank and theme help text comes from the API's button labels.
package ui

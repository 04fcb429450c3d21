package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/tunemeld/internal/models"
	"github.com/desertthunder/tunemeld/internal/router"
	"github.com/desertthunder/tunemeld/internal/state"
	"github.com/desertthunder/tunemeld/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageRendered MsgKind = iota
	MsgNavigated
	MsgInitFailed
	MsgThemeApplied
	MsgLabelsFetched
	MsgTrackOpened
)

// Kind returns the message kind.
func (m Msg) Kind() MsgKind { return m.kind }

// pageRenderedMsg is the constructor for [MsgPageRendered]
func pageRenderedMsg(page tasks.Page) Msg {
	return Msg{kind: MsgPageRendered, data: page}
}

// navigatedMsg is the constructor for [MsgNavigated]. err is nil when the navigation rendered.
func navigatedMsg(err error) Msg {
	return Msg{kind: MsgNavigated, data: err}
}

// initFailedMsg is the constructor for [MsgInitFailed]
func initFailedMsg(r *router.InitRetryable) Msg {
	return Msg{kind: MsgInitFailed, data: r}
}

// themeAppliedMsg is the constructor for [MsgThemeApplied]
func themeAppliedMsg(t state.Theme) Msg {
	return Msg{kind: MsgThemeApplied, data: t}
}

// labelsFetchedMsg is the constructor for [MsgLabelsFetched]
func labelsFetchedMsg(labels []models.ButtonLabel, err error) Msg {
	return Msg{
		kind: MsgLabelsFetched,
		data: struct {
			labels []models.ButtonLabel
			err    error
		}{labels, err},
	}
}

// trackOpenedMsg is the constructor for [MsgTrackOpened]
func trackOpenedMsg(player string, track models.Track) Msg {
	return Msg{
		kind: MsgTrackOpened,
		data: struct {
			player string
			track  models.Track
		}{player, track},
	}
}

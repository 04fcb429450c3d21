package ui

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"

	"github.com/desertthunder/tunemeld/internal/models"
)

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	nextGenre key.Binding
	prevGenre key.Binding
	nextRank  key.Binding
	pickRank  key.Binding
	back      key.Binding
	forward   key.Binding
	open      key.Binding
	player    key.Binding
	theme     key.Binding
	retry     key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		nextGenre: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next genre")),
		prevGenre: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous genre")),
		nextRank:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "next rank")),
		pickRank: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "sort by rank"),
		),
		back:    key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "back")),
		forward: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "forward")),
		open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open track")),
		player:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "switch player")),
		theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle theme")),
		retry:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry"), key.WithDisabled()),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextGenre, k.nextRank, k.open, k.retry, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.open, k.player},
		{k.nextGenre, k.prevGenre, k.nextRank, k.pickRank},
		{k.back, k.forward, k.theme, k.retry},
		{k.help, k.quit},
	}
}

// applyLabels replaces help text with API button labels where one matches.
func (k *keyMap) applyLabels(labels []models.ButtonLabel, theme, activeRank string) {
	find := func(buttonType, context string) (models.ButtonLabel, bool) {
		i := slices.IndexFunc(labels, func(l models.ButtonLabel) bool {
			return l.ButtonType == buttonType && l.Context == context
		})
		if i < 0 {
			return models.ButtonLabel{}, false
		}
		return labels[i], true
	}

	if l, ok := find("theme_toggle", theme); ok && l.Title != "" {
		k.theme.SetHelp("t", l.Title)
	}
	if l, ok := find("rank_button", activeRank); ok && l.Title != "" {
		k.pickRank.SetHelp("1-9", l.Title)
	}
}

package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/tunemeld/internal/state"
)

var (
	darkStyles  = NewPalette("#7D56F4", "#04B575", "#FF5F5F", "#FFA500", "#626262", "#FAFAFA")
	lightStyles = NewPalette("#5A3FC0", "#027A4B", "#C00000", "#A35F00", "#8A8A8A", "#1A1A1A")
)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	text   lipgloss.Style
	active lipgloss.Style
}

func NewPalette(t, s, e, w, h, fg string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		text:   NewStyle(fg),
		active: NewBold(fg).Background(lipgloss.Color(t)).Padding(0, 1),
	}
}

// paletteFor returns the stylesheet for theme.
func paletteFor(theme state.Theme) *Palette {
	if theme == state.ThemeLight {
		return lightStyles
	}
	return darkStyles
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

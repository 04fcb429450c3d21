package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/tunemeld/internal/shared"
)

// Theme is the colour scheme of the client surface.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// PreferenceTheme is the preference key the theme is persisted under.
const PreferenceTheme = "theme"

// ParseTheme validates s as a [Theme].
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidTheme, s)
	}
}

// Toggle returns the opposite theme. Anything other than dark toggles to dark.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// IsDark reports whether t is [ThemeDark].
func (t Theme) IsDark() bool { return t == ThemeDark }

// DefaultTheme is the theme used when none is persisted: dark from 19:00 until 07:00 local time.
func DefaultTheme(now time.Time) Theme {
	if h := now.Hour(); h >= 19 || h < 7 {
		return ThemeDark
	}
	return ThemeLight
}

// Preferences is durable client-side key/value storage.
//
// Get returns [shared.ErrPreferenceNotFound] for keys that were never set.
type Preferences interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Surface is whatever renders the theme.
type Surface interface {
	ApplyTheme(Theme)
}

// SurfaceFunc adapts a function to [Surface].
type SurfaceFunc func(Theme)

func (f SurfaceFunc) ApplyTheme(t Theme) { f(t) }

// MemoryPreferences is an in-process [Preferences] for headless use.
type MemoryPreferences struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryPreferences creates an empty [MemoryPreferences].
func NewMemoryPreferences() *MemoryPreferences {
	return &MemoryPreferences{values: make(map[string]string)}
}

func (m *MemoryPreferences) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrPreferenceNotFound, key)
	}
	return v, nil
}

func (m *MemoryPreferences) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

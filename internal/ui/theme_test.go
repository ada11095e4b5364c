package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextTheme_CyclesThroughAll(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	name := ThemeNames()[0]
	for range ThemeNames() {
		seen[name] = true
		name = NextTheme(name)
	}
	assert.Len(t, seen, len(ThemeNames()))
	assert.Equal(t, ThemeNames()[0], name)
}

func TestGetTheme_FallsBackToNightfox(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Nightfox", GetTheme("does-not-exist").Name)
	assert.Equal(t, "Kanagawa", GetTheme("Kanagawa").Name)
	assert.Equal(t, ThemeNames()[0], NextTheme("unknown"))
}

func TestThemes_DefineStatusColors(t *testing.T) {
	t.Parallel()

	for _, name := range ThemeNames() {
		theme := GetTheme(name)
		for _, status := range []string{"scheduled", "in port", "departed", "new", "updated"} {
			assert.NotEmpty(t, theme.StatusColors[status], "%s missing %q", name, status)
		}
	}
}

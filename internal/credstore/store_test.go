package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "session.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "", s.Token())
	assert.Equal(t, ThemeLight, s.Theme())
	assert.False(t, s.HasTheme())
}

func TestTokenWriteDoesNotStoreTheme(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.yaml")
	s, err := Open(p)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("abc"))
	require.NoError(t, s.ClearToken())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "theme")

	again, err := Open(p)
	require.NoError(t, err)
	assert.False(t, again.HasTheme())

	require.NoError(t, again.SetTheme(ThemeLight))
	third, err := Open(p)
	require.NoError(t, err)
	assert.True(t, third.HasTheme())
	assert.Equal(t, ThemeLight, third.Theme())
}

func TestTokenSurvivesReopenAndClears(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.yaml")
	s, err := Open(p)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("abc"))

	again, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, "abc", again.Token())

	require.NoError(t, again.ClearToken())
	third, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, "", third.Token())
}

func TestThemeToggleAndValidation(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.yaml")
	s, err := Open(p)
	require.NoError(t, err)

	next, err := s.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, next)

	// theme is left in place when the token is cleared
	require.NoError(t, s.ClearToken())
	reopened, err := Open(p)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, reopened.Theme())
	assert.True(t, reopened.HasTheme())

	assert.Error(t, reopened.SetTheme("sepia"))
	assert.Equal(t, ThemeDark, reopened.Theme())
}

func TestOpenCorruptFileFallsBackToEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(p, []byte("token: [unterminated"), 0o600))
	s, err := Open(p)
	assert.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "", s.Token())
	assert.Equal(t, ThemeLight, s.Theme())
	assert.False(t, s.HasTheme())
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.SetToken("t"))
	assert.Equal(t, "t", s.Token())
}

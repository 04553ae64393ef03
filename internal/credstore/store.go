// Package credstore persists the two process-wide strings the client keeps
// between runs: the auth token and the light/dark theme preference.
package credstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/KaramelBytes/cepv-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type state struct {
	Token string `yaml:"token,omitempty"`
	Theme string `yaml:"theme,omitempty"`
}

// Store is a file-backed credential store. It is not safe for concurrent use;
// the client reads and writes it sequentially.
type Store struct {
	path  string
	state state
}

// Open reads the store at path. A missing file yields an empty token and no
// stored theme. A corrupt file also yields the empty state, and the decode
// error is returned alongside a usable Store so callers can log it.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read session: %w", err)
	}
	var st state
	if err := yaml.Unmarshal(b, &st); err != nil {
		return s, fmt.Errorf("parse session %s: %w", path, err)
	}
	if !validTheme(st.Theme) {
		st.Theme = ""
	}
	s.state = st
	return s, nil
}

// Path returns the backing file, empty for an in-memory store.
func (s *Store) Path() string { return s.path }

// Token returns the stored bearer token, or "" when logged out.
func (s *Store) Token() string { return s.state.Token }

// SetToken stores and persists tok.
func (s *Store) SetToken(tok string) error {
	s.state.Token = tok
	return s.save()
}

// ClearToken removes the token; the next outbound request carries no
// Authorization header.
func (s *Store) ClearToken() error {
	s.state.Token = ""
	return s.save()
}

// Theme returns the persisted theme, light when none was stored.
func (s *Store) Theme() string {
	if s.state.Theme == "" {
		return ThemeLight
	}
	return s.state.Theme
}

// HasTheme reports whether a theme was explicitly stored.
func (s *Store) HasTheme() bool { return s.state.Theme != "" }

// SetTheme persists theme, which must be light or dark.
func (s *Store) SetTheme(theme string) error {
	if !validTheme(theme) {
		return fmt.Errorf("invalid theme %q (use %s or %s)", theme, ThemeLight, ThemeDark)
	}
	s.state.Theme = theme
	return s.save()
}

// ToggleTheme flips between light and dark and returns the new value.
func (s *Store) ToggleTheme() (string, error) {
	next := ThemeDark
	if s.Theme() == ThemeDark {
		next = ThemeLight
	}
	if err := s.SetTheme(next); err != nil {
		return s.Theme(), err
	}
	return next, nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	b, err := yaml.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	// token is a credential
	return utils.SafeWriteFile(s.path, b, 0o600)
}

func validTheme(t string) bool { return t == ThemeLight || t == ThemeDark }

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/janhq/jan-chat/internal/domain/auth"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// storedSession is the signed-in session kept between runs.
type storedSession struct {
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	UserID       string `yaml:"user_id"`
	Email        string `yaml:"email"`
}

// clientState is the persisted client state file.
type clientState struct {
	Session *storedSession `yaml:"session,omitempty"`
	Theme   string         `yaml:"theme"`
}

func validTheme(theme string) bool {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "jan-chat", "state.yaml")
}

// loadState reads the state file. A missing file or an unknown theme
// yields the defaults.
func loadState(path string) (*clientState, error) {
	state := &clientState{Theme: ThemeSystem}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if !validTheme(state.Theme) {
		state.Theme = ThemeSystem
	}
	return state, nil
}

func (s *clientState) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *clientState) signIn(session *auth.Session) {
	s.Session = &storedSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		UserID:       session.User.ID,
		Email:        session.User.Email,
	}
}

func (s *clientState) accessToken() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.AccessToken
}

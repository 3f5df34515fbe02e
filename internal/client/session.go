package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// SessionStorage keeps the session token between client runs.
type SessionStorage interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type sessionFile struct {
	Token string `json:"token"`
}

// FileSession stores the token as JSON in a file only the user can read.
type FileSession struct {
	path string
}

// DefaultSessionPath is <user config dir>/todo-app/session.json.
func DefaultSessionPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "todo-app", "session.json"), nil
}

func NewFileSession(path string) *FileSession {
	return &FileSession{path: path}
}

// Load returns "" when no session was saved.
func (f *FileSession) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var s sessionFile
	if err := json.Unmarshal(data, &s); err != nil {
		return "", err
	}
	return s.Token, nil
}

func (f *FileSession) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sessionFile{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileSession) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type MemorySession struct {
	mu    sync.Mutex
	token string
}

func NewMemorySession(token string) *MemorySession {
	return &MemorySession{token: token}
}

func (m *MemorySession) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemorySession) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemorySession) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

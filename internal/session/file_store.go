package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the token in a JSON file, the CLI's analogue of browser
// local storage. The file is user-readable only.
type FileStore struct {
	path string
}

type sessionFile struct {
	Token string `json:"token"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("session: read %s: %w", f.path, err)
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return "", fmt.Errorf("session: parse %s: %w", f.path, err)
	}
	return sf.Token, nil
}

func (f *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir for %s: %w", f.path, err)
	}
	data, err := json.Marshal(sessionFile{Token: token})
	if err != nil {
		return fmt.Errorf("session: marshal token: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: remove %s: %w", f.path, err)
	}
	return nil
}

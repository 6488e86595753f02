package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileCredentialStore keeps slots in a JSON object on disk, readable only by the owner.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
	slot string
}

// NewFileCredentialStore creates a store for slot backed by the file at path.
func NewFileCredentialStore(path, slot string) *FileCredentialStore {
	return &FileCredentialStore{path: path, slot: slot}
}

func (s *FileCredentialStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return "", err
	}
	return slots[s.slot], nil
}

func (s *FileCredentialStore) Save(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return err
	}
	slots[s.slot] = value
	return s.write(slots)
}

func (s *FileCredentialStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := slots[s.slot]; !ok {
		return nil
	}
	delete(slots, s.slot)
	if len(slots) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove credential file: %w", err)
		}
		return nil
	}
	return s.write(slots)
}

func (s *FileCredentialStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	slots := map[string]string{}
	if len(data) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode credential file: %w", err)
	}
	return slots, nil
}

// write replaces the file atomically via rename.
func (s *FileCredentialStore) write(slots map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

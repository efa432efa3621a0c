package devnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultStorageFileName = ".swapper-state.json"
)

// ErrNoState is returned when the state file has not been created yet
var ErrNoState = errors.New("no devnet state, run 'swapper init' first")

// Storage handles persistence of the devnet world
type Storage struct {
	filePath string
	mu       sync.Mutex
}

// NewStorage creates a new storage instance
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		// Default to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	return &Storage{filePath: filePath}, nil
}

// Load reads the world from the storage file
func (s *Storage) Load() (*World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var world World
	if err := json.Unmarshal(data, &world); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := world.Validate(); err != nil {
		return nil, fmt.Errorf("invalid state file %s: %w", s.filePath, err)
	}

	return &world, nil
}

// Save writes the world to the storage file
func (s *Storage) Save(world *World) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(world, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Exists checks if the state file exists
func (s *Storage) Exists() bool {
	_, err := os.Stat(s.filePath)
	return err == nil
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store holds the current Settings and persists updates to a YAML file
type Store struct {
	mu       sync.RWMutex
	current  Settings
	path     string
	onChange []func(Settings)
}

// NewStore wraps settings that live only in memory
func NewStore(settings Settings) *Store {
	settings.applyDefaults()
	return &Store{current: settings}
}

// Load reads the YAML settings file. A missing file yields defaults.
// Non-empty OPTIMUS_USERNAME and OPTIMUS_API_KEY override the file.
func Load(path string) (*Store, error) {
	settings := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &settings); err != nil {
				return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
	}

	if v := os.Getenv("OPTIMUS_USERNAME"); v != "" {
		settings.Username = v
	}
	if v := os.Getenv("OPTIMUS_API_KEY"); v != "" {
		settings.APIKey = v
	}

	settings.applyDefaults()
	return &Store{current: settings, path: path}, nil
}

// Current returns a copy of the settings
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OnChange registers a callback run after every successful update
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Update validates and stores new settings, writing them to disk when the store is file-backed
func (s *Store) Update(settings Settings) error {
	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.path != "" {
		if err := writeFile(s.path, settings); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.current = settings
	callbacks := append([]func(Settings){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(settings)
	}
	return nil
}

// SetConnection records the result of the last credential check
func (s *Store) SetConnection(connected bool, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.IsConnected = connected
	s.current.ConnectionMessage = message
	if s.path != "" {
		return writeFile(s.path, s.current)
	}
	return nil
}

func writeFile(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

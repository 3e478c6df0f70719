package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure FlagStore implements the interface.
var _ driven.FlagStore = (*FlagStore)(nil)

// FlagStore is a file-based implementation of driven.FlagStore using TOML.
// Settings are stored in a TOML file within the assistant config directory
// and read back under dot-notation keys, so `[generation] threads = 4`
// becomes "generation.threads".
type FlagStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewFlagStore creates a new TOML-based flag store.
// If configDir is empty, defaults to ~/.assistant/config.toml.
func NewFlagStore(configDir string) (*FlagStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".assistant")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &FlagStore{
		filePath: filepath.Join(configDir, "config.toml"),
		data:     make(map[string]any),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Get retrieves a raw value by key.
func (s *FlagStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	return val, ok
}

// Bool returns the flag value, or def when unset.
func (s *FlagStore) Bool(key string, def bool) bool {
	val, ok := s.Get(key)
	if !ok {
		return def
	}

	b, ok := val.(bool)
	if !ok {
		return def
	}
	return b
}

// Int returns the flag value, or def when unset.
func (s *FlagStore) Int(key string, def int) int {
	val, ok := s.Get(key)
	if !ok {
		return def
	}

	// TOML integers are parsed as int64
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// String returns the flag value, or def when unset.
func (s *FlagStore) String(key string, def string) string {
	val, ok := s.Get(key)
	if !ok {
		return def
	}

	str, ok := val.(string)
	if !ok {
		return def
	}
	return str
}

// Set stores a value under a dot-notation key and persists immediately.
func (s *FlagStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return s.save()
}

// Keys returns all known setting keys.
func (s *FlagStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Save persists the current settings to disk.
func (s *FlagStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes settings to the TOML file (caller must hold lock).
func (s *FlagStore) save() error {
	data, err := toml.Marshal(unflattenMap(s.data))
	if err != nil {
		return err
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Load reads settings from the TOML file.
func (s *FlagStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - that's fine, start empty
			s.data = make(map[string]any)
			return nil
		}
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded == nil {
		loaded = make(map[string]any)
	}

	// Flatten nested maps into dot-notation keys for easier access
	s.data = flattenMap(loaded, "")
	return nil
}

// flattenMap converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func flattenMap(m map[string]any, prefix string) map[string]any {
	result := make(map[string]any)

	for key, value := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(nested, fullKey) {
				result[k] = v
			}
		} else {
			result[fullKey] = value
		}
	}

	return result
}

// unflattenMap converts dot-notation keys back to nested maps so the
// written TOML uses sections instead of quoted dotted keys.
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)

	for key, value := range flat {
		parts := splitKey(key)
		node := result
		for i, part := range parts {
			if i == len(parts)-1 {
				node[part] = value
				break
			}
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
	}

	return result
}

// splitKey splits a dot-notation key into its segments.
func splitKey(key string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	return append(parts, key[start:])
}

// Path returns the configuration file path.
func (s *FlagStore) Path() string {
	return s.filePath
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

// Profile is one stored server account. When UseKeyring is set the API
// key lives in the OS keyring and the TOML entry carries no secret.
type Profile struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key,omitempty"`
	UseKeyring bool   `toml:"use_keyring,omitempty"`
}

// ProfileStore is the on-disk profile collection.
type ProfileStore struct {
	Active   string             `toml:"active,omitempty"`
	Profiles map[string]Profile `toml:"profiles"`

	path string
}

// LoadProfiles reads the store at path. A missing file yields an empty
// store; a malformed file is a configuration error.
func LoadProfiles(path string) (*ProfileStore, error) {
	store := &ProfileStore{
		Profiles: make(map[string]Profile),
		path:     path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.AuthConfig, err, "failed to read profile store %s", path)
	}

	if err := toml.Unmarshal(data, store); err != nil {
		return nil, apperrors.Wrap(apperrors.AuthConfig, err, "failed to parse profile store %s", path).
			WithHint("Fix or remove the file, then re-add profiles with 'rdm profile add'.")
	}
	if store.Profiles == nil {
		store.Profiles = make(map[string]Profile)
	}
	return store, nil
}

// Save writes the store back to its path, creating the parent
// directory if needed. The file may hold API keys, so it is written
// user-only.
func (s *ProfileStore) Save() error {
	if s.path == "" {
		return apperrors.New(apperrors.AuthConfig, "profile store has no path")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode profile store: %w", err)
	}

	if err := os.WriteFile(s.path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write profile store: %w", err)
	}
	return nil
}

// Path returns the backing file path.
func (s *ProfileStore) Path() string {
	return s.path
}

// Get returns the named profile.
func (s *ProfileStore) Get(name string) (Profile, bool) {
	p, ok := s.Profiles[name]
	return p, ok
}

// Names returns the profile names in sorted order.
func (s *ProfileStore) Names() []string {
	names := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add upserts a profile. The first profile added becomes active.
func (s *ProfileStore) Add(name string, profile Profile) error {
	if err := validateProfileName(name); err != nil {
		return err
	}
	if profile.URL == "" {
		return apperrors.New(apperrors.Validation, "profile %q needs a server URL", name)
	}

	s.Profiles[name] = profile
	if s.Active == "" {
		s.Active = name
	}
	return nil
}

// Use marks the named profile active.
func (s *ProfileStore) Use(name string) error {
	if _, ok := s.Profiles[name]; !ok {
		return unknownProfileError(name, s.Names())
	}
	s.Active = name
	return nil
}

// Delete removes a profile. Deleting the active profile clears the
// active marker; the caller is told whether a keyring entry may remain.
func (s *ProfileStore) Delete(name string) (usedKeyring bool, err error) {
	profile, ok := s.Profiles[name]
	if !ok {
		return false, unknownProfileError(name, s.Names())
	}

	delete(s.Profiles, name)
	if s.Active == name {
		s.Active = ""
	}
	return profile.UseKeyring, nil
}

func validateProfileName(name string) error {
	if name == "" {
		return apperrors.New(apperrors.Validation, "profile name must not be empty")
	}
	if strings.ContainsAny(name, " \t/\\") {
		return apperrors.New(apperrors.Validation,
			"profile name %q must not contain spaces or path separators", name)
	}
	return nil
}

func unknownProfileError(name string, known []string) error {
	err := apperrors.New(apperrors.NotFound, "profile %q not found", name)
	if len(known) > 0 {
		return err.WithHint(fmt.Sprintf("Known profiles: %s.", strings.Join(known, ", ")))
	}
	return err.WithHint("Add one with 'rdm profile add <name> --url <url> --api-key <key>'.")
}

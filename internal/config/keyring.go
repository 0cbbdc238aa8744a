package config

import (
	"github.com/zalando/go-keyring"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

// keyringService is the OS keyring service under which profile keys
// are stored; the account is the profile name.
const keyringService = "rdm"

// StoreKeyringSecret saves a profile's API key in the OS keyring.
func StoreKeyringSecret(profile, apiKey string) error {
	if err := keyring.Set(keyringService, profile, apiKey); err != nil {
		return apperrors.Wrap(apperrors.AuthConfig, err,
			"failed to store API key for profile %q in the OS keyring", profile).
			WithHint("Re-run without --keyring to store the key in the profile file instead.")
	}
	return nil
}

// LookupKeyringSecret fetches a profile's API key from the OS keyring.
func LookupKeyringSecret(profile string) (string, error) {
	secret, err := keyring.Get(keyringService, profile)
	if err != nil {
		return "", apperrors.Wrap(apperrors.AuthConfig, err,
			"failed to read API key for profile %q from the OS keyring", profile).
			WithHint("Re-add the profile with 'rdm profile add' to restore the key.")
	}
	return secret, nil
}

// DeleteKeyringSecret removes a profile's API key from the OS keyring.
// A missing entry is not an error.
func DeleteKeyringSecret(profile string) error {
	err := keyring.Delete(keyringService, profile)
	if err != nil && err != keyring.ErrNotFound {
		return apperrors.Wrap(apperrors.AuthConfig, err,
			"failed to delete API key for profile %q from the OS keyring", profile)
	}
	return nil
}

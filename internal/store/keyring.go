package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the OS keychain service the API key is filed under.
const DefaultKeyringService = "steamlink"

// KeyringCredentialStore keeps credentials in the OS keychain.
type KeyringCredentialStore struct {
	service string
}

// NewKeyringCredentialStore returns a keychain-backed credential store for service.
func NewKeyringCredentialStore(service string) *KeyringCredentialStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringCredentialStore{service: service}
}

// GetCredential reads name from the keychain.
func (k *KeyringCredentialStore) GetCredential(_ context.Context, name string) (string, bool, error) {
	value, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring store: read %s: %w", name, err)
	}
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

// SetCredential writes name to the keychain, replacing any previous value.
func (k *KeyringCredentialStore) SetCredential(_ context.Context, name, value string) error {
	if err := keyring.Set(k.service, name, value); err != nil {
		return fmt.Errorf("keyring store: save %s: %w", name, err)
	}
	return nil
}

// DeleteCredential removes name from the keychain. Removing a missing entry is not an error.
func (k *KeyringCredentialStore) DeleteCredential(_ context.Context, name string) error {
	err := keyring.Delete(k.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring store: delete %s: %w", name, err)
	}
	return nil
}

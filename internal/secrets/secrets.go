// Package secrets resolves credentials kept in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the application's secrets in the OS keychain.
	KeyringService = "jobagg"

	// Prefix marks a config value that names a keychain account.
	Prefix = "keyring:"
)

// Get returns the secret stored for account.
func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		return "", fmt.Errorf("keyring %s: %w", account, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("keyring %s: empty secret", account)
	}
	return v, nil
}

// Set stores secret under account.
func Set(account, secret string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, secret)
}

// Delete removes the secret stored under account.
func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// Resolve returns v unchanged unless it has the form "keyring:<account>",
// in which case the stored secret is returned.
func Resolve(v string) (string, error) {
	account, ok := strings.CutPrefix(strings.TrimSpace(v), Prefix)
	if !ok {
		return v, nil
	}
	return Get(account)
}

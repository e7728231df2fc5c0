// Package credential stores secrets outside the config file: in the
// environment or the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "taskpilot"

const (
	// AIKeyName is the keyring entry holding the AI endpoint API key.
	AIKeyName = "ai_api_key"

	// AIKeyEnv overrides the keyring entry when set.
	AIKeyEnv = "TASKPILOT_AI_API_KEY"
)

// ErrEmptyKey is returned when storing a blank API key.
var ErrEmptyKey = errors.New("api key is empty")

// openRing opens the keyring backing the AI key. Tests swap it for an
// in-memory ring.
var openRing = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskpilot/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskpilot-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// AIKey resolves the AI endpoint API key from the environment, then the
// keyring. A key that is configured nowhere yields "" and no error.
func AIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv(AIKeyEnv)); v != "" {
		return v, nil
	}

	ring, err := openRing()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(AIKeyName)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s from keyring: %w", AIKeyName, err)
	}
	return strings.TrimSpace(string(item.Data)), nil
}

// SetAIKey stores key in the keyring, replacing any previous value.
func SetAIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	ring, err := openRing()
	if err != nil {
		return err
	}
	err = ring.Set(keyring.Item{
		Key:         AIKeyName,
		Data:        []byte(key),
		Label:       "taskpilot AI API key",
		Description: "API key for the taskpilot assistant endpoint",
	})
	if err != nil {
		return fmt.Errorf("storing %s in keyring: %w", AIKeyName, err)
	}
	return nil
}

// ClearAIKey removes the stored key. Clearing a key that was never stored
// is not an error.
func ClearAIKey() error {
	ring, err := openRing()
	if err != nil {
		return err
	}
	err = ring.Remove(AIKeyName)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing %s from keyring: %w", AIKeyName, err)
	}
	return nil
}

// Package credential keeps the kanban server account in the system
// keyring, one entry per server base URL.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "kanban"

// ErrNoAccount is returned by LoadAccount when nothing is stored for a
// server.
var ErrNoAccount = errors.New("no stored account")

// Account is a username/password pair for the kanban server.
type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Store reads and writes accounts in a keyring.
type Store struct {
	ring keyring.Keyring
}

// New wraps ring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a Store backed by the OS keyring. dir holds the encrypted
// file fallback used when no native backend is available.
func Open(dir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("kanban-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return New(ring), nil
}

// LoadAccount returns the account stored for baseURL.
func (s *Store) LoadAccount(baseURL string) (Account, error) {
	item, err := s.ring.Get(accountKey(baseURL))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Account{}, ErrNoAccount
	}
	if err != nil {
		return Account{}, fmt.Errorf("getting credential for %s: %w", baseURL, err)
	}

	var acct Account
	if err := json.Unmarshal(item.Data, &acct); err != nil {
		return Account{}, fmt.Errorf("decoding credential for %s: %w", baseURL, err)
	}
	return acct, nil
}

// SaveAccount stores acct for baseURL, replacing any previous entry.
func (s *Store) SaveAccount(baseURL string, acct Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	err = s.ring.Set(keyring.Item{
		Key:   accountKey(baseURL),
		Data:  data,
		Label: "kanban account " + acct.Username,
	})
	if err != nil {
		return fmt.Errorf("setting credential for %s: %w", baseURL, err)
	}
	return nil
}

// DeleteAccount removes the account for baseURL. Deleting a missing
// account is not an error.
func (s *Store) DeleteAccount(baseURL string) error {
	err := s.ring.Remove(accountKey(baseURL))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential for %s: %w", baseURL, err)
	}
	return nil
}

func accountKey(baseURL string) string {
	return "account:" + strings.TrimRight(baseURL, "/")
}

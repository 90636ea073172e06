package credential

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/grievance-desk/internal/model"
)

const (
	serviceName = "grievance-desk"
	sessionKey  = "session"
)

// ErrNoSession is returned by LoadSession when nobody is logged in.
var ErrNoSession = errors.New("no saved session")

// Vault stores the login session in the system keyring.
type Vault struct {
	ring keyring.Keyring
}

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
		FileDir:                  "~/.config/grievance-desk/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("grievance-desk-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Open returns a Vault backed by the system keyring.
func Open() (*Vault, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	return &Vault{ring: ring}, nil
}

// NewVault wraps an existing keyring, e.g. keyring.NewArrayKeyring in tests.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// SaveSession stores s, replacing any previous session.
func (v *Vault) SaveSession(s *model.Session) error {
	if !s.Valid() {
		return errors.New("refusing to save a session without a token")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	err = v.ring.Set(keyring.Item{
		Key:         sessionKey,
		Data:        data,
		Label:       "Grievance Desk session",
		Description: "API token for " + s.Email,
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// LoadSession returns the saved session or ErrNoSession.
func (v *Vault) LoadSession() (*model.Session, error) {
	item, err := v.ring.Get(sessionKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(item.Data, &s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if !s.Valid() {
		return nil, ErrNoSession
	}
	return &s, nil
}

// DeleteSession forgets the saved session. Deleting when nothing is
// saved is not an error.
func (v *Vault) DeleteSession() error {
	err := v.ring.Remove(sessionKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

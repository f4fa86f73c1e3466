// Package snapshots caches the last published session snapshot per account
// so a restarted client can render before the ledger answers.
package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"marketfront/core/session"
	"marketfront/storage"
)

// ErrNotFound is returned when no snapshot was saved for an account.
var ErrNotFound = errors.New("snapshots: no snapshot for account")

const keyPrefix = "snapshot/"

// Store keeps snapshots in a storage.Database.
type Store struct {
	db storage.Database
}

// New wraps db.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

// Open opens a store on the named backend.
func Open(backend, path string) (*Store, error) {
	db, err := storage.Open(backend, path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func key(account common.Address) []byte {
	return []byte(keyPrefix + account.Hex())
}

// record is the persisted form. Staged upload bytes are never written.
type record struct {
	State session.State `json:"state"`
}

// Save implements session.SnapshotStore.
func (s *Store) Save(account common.Address, state session.State) error {
	state.Upload = nil
	payload, err := json.Marshal(record{State: state})
	if err != nil {
		return fmt.Errorf("snapshots: encode: %w", err)
	}
	if err := s.db.Put(key(account), payload); err != nil {
		return fmt.Errorf("snapshots: save %s: %w", account.Hex(), err)
	}
	return nil
}

// Load returns the last snapshot saved for account.
func (s *Store) Load(account common.Address) (session.State, error) {
	payload, err := s.db.Get(key(account))
	if errors.Is(err, storage.ErrNotFound) {
		return session.State{}, ErrNotFound
	}
	if err != nil {
		return session.State{}, fmt.Errorf("snapshots: load %s: %w", account.Hex(), err)
	}
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return session.State{}, fmt.Errorf("snapshots: decode %s: %w", account.Hex(), err)
	}
	return rec.State, nil
}

// Delete forgets the snapshot of account.
func (s *Store) Delete(account common.Address) error {
	return s.db.Delete(key(account))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

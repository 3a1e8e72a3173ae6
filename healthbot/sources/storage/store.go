package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"healthbot/healthbot/types"
)

// Keys shared by every front end.
const (
	KeyToken     = "token"
	KeyUserEmail = "userEmail"
	KeyUserName  = "userName"
)

var ErrClosed = errors.New("storage: store is closed")

// Store is the persistent key-value storage holding the cached identity.
type Store struct {
	mu sync.RWMutex
	db *pebble.DB
}

type options struct {
	fs vfs.FS
}

type Option func(*options)

// InMemory keeps the database in memory; used by tests.
func InMemory() Option {
	return func(o *options) { o.fs = vfs.NewMem() }
}

func Open(dir string, opts ...Option) (*Store, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	pebbleOpts := &pebble.Options{}
	if o.fs != nil {
		pebbleOpts.FS = o.fs
	}
	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open state store %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Get returns "" when the key is absent.
func (s *Store) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", ErrClosed
	}
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()
	return string(value), nil
}

func (s *Store) Set(key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(keys ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, key := range keys {
		if err := batch.Delete([]byte(key), nil); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *Store) Identity() (types.Identity, error) {
	var id types.Identity
	var err error
	if id.Token, err = s.Get(KeyToken); err != nil {
		return id, err
	}
	if id.Email, err = s.Get(KeyUserEmail); err != nil {
		return id, err
	}
	id.Name, err = s.Get(KeyUserName)
	return id, err
}

// Token satisfies the API client's token source.
func (s *Store) Token() (string, error) {
	return s.Get(KeyToken)
}

// SaveSignIn records a successful sign-in. A cached display name survives
// only if it belongs to the same email.
func (s *Store) SaveSignIn(token, email string) error {
	prev, err := s.Get(KeyUserEmail)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(KeyToken), []byte(token), nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(KeyUserEmail), []byte(email), nil); err != nil {
		return err
	}
	if prev != email {
		if err := batch.Delete([]byte(KeyUserName), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// RememberProfile stores the display identity without signing in.
func (s *Store) RememberProfile(name, email string) error {
	if err := s.Set(KeyUserEmail, email); err != nil {
		return err
	}
	return s.Set(KeyUserName, name)
}

// Clear forgets the whole identity.
func (s *Store) Clear() error {
	return s.Remove(KeyToken, KeyUserEmail, KeyUserName)
}

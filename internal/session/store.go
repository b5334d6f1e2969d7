// Package session holds the client's auth token and its derived login
// status. The in-memory state is the single source of truth during a run;
// every mutation is written through to a persistent TokenStore so the token
// survives restarts, the way a browser keeps it in local storage.
package session

import (
	"sync"

	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

// TokenStore persists the auth token across process restarts. Load returns
// "" when no token is stored; that is not an error.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Store is the process-wide session. Login status is always derived from the
// current token, never cached separately.
type Store struct {
	mu        sync.RWMutex
	token     string
	persist   TokenStore
	observers []func(loggedIn bool)
	logger    *logging.Logger
}

// NewStore creates a session store, reading the initial token once from the
// backing store.
func NewStore(persist TokenStore, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	token, err := persist.Load()
	if err != nil {
		return nil, err
	}
	return &Store{
		token:   token,
		persist: persist,
		logger:  logger,
	}, nil
}

// Token returns the current token, or "" when logged out. Satisfies
// api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsLoggedIn is a pure function of the current token.
func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// SetToken persists the token and updates in-memory state atomically.
// Observers never see a partially applied value: the swap happens under the
// write lock, after persistence succeeded.
func (s *Store) SetToken(token string) error {
	return s.update(token)
}

// Clear logs out: removes the persisted token and clears memory.
func (s *Store) Clear() error {
	return s.update("")
}

// Subscribe registers an observer called after every token change with the
// new login status. Observers run outside the store's lock.
func (s *Store) Subscribe(fn func(loggedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) update(token string) error {
	s.mu.Lock()
	var err error
	if token == "" {
		err = s.persist.Clear()
	} else {
		err = s.persist.Save(token)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.token = token
	observers := make([]func(bool), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	loggedIn := token != ""
	s.logger.Debug("session updated", "logged_in", loggedIn)
	for _, fn := range observers {
		fn(loggedIn)
	}
	return nil
}

// MemStore is an in-memory TokenStore for tests and ephemeral sessions.
type MemStore struct {
	mu    sync.Mutex
	token string
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

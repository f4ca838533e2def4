package sge

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Storage keys for the persisted client state. Downstream screens
// read StorageKeyMode to render the demo-mode indicator; the other
// two belong to this core alone.
const (
	StorageKeyAccessToken = "sge_access_token"
	StorageKeyUser        = "sge_user"
	StorageKeyMode        = "sge_mode"
)

// Storage is the persistence contract behind the SessionStore: a flat
// string keyspace surviving process restarts, the way browser local
// storage survives page reloads.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// SessionStore owns the persisted Session. It is created once, wired
// into the Gateway and the Shell, and never reached for ambiently.
type SessionStore struct {
	mu      sync.RWMutex
	storage Storage
	current *Session
	loaded  bool
}

// NewSessionStore returns a store over the given storage backend.
// Call Init before first use.
func NewSessionStore(storage Storage) *SessionStore {
	return &SessionStore{storage: storage}
}

// Init loads any persisted session. A corrupt or partial record is
// treated as no session at all, never as an error the boot path has
// to surface.
func (s *SessionStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.current = nil

	token, ok, err := s.storage.Get(StorageKeyAccessToken)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read persisted session")
	}
	if !ok || token == "" {
		return nil
	}

	raw, ok, err := s.storage.Get(StorageKeyUser)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read persisted identity")
	}
	if !ok || raw == "" {
		return nil
	}

	identity := &Identity{}
	if err := json.Unmarshal([]byte(raw), identity); err != nil {
		return nil
	}

	mode := SessionModeOnline
	if m, ok, err := s.storage.Get(StorageKeyMode); err == nil && ok && m != "" {
		mode = m
	}

	s.current = &Session{AccessToken: token, Identity: identity, Mode: mode}
	return nil
}

// Current returns the live session, or nil when unauthenticated.
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Identity returns the authenticated identity, or nil.
func (s *SessionStore) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current.Identity
}

// Mode returns the origin of the current session, "" when logged out.
func (s *SessionStore) Mode() SessionMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Mode
}

// IsAuthenticated reports whether a session is present.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Current() != nil
}

// Save persists the session under the three well-known keys and makes
// it current.
func (s *SessionStore) Save(session *Session) error {
	if session == nil || session.Identity == nil || session.AccessToken == "" {
		return goerrors.New("session requires a token and an identity", goerrors.CategoryBadInput)
	}

	raw, err := json.Marshal(session.Identity)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize identity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(StorageKeyAccessToken, session.AccessToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist access token")
	}
	if err := s.storage.Set(StorageKeyUser, string(raw)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist identity")
	}
	if err := s.storage.Set(StorageKeyMode, session.Mode); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session mode")
	}

	s.current = session
	return nil
}

// UpdateIdentity re-persists the identity of the current session,
// used after a password change clears the rotation flags.
func (s *SessionStore) UpdateIdentity(identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return goerrors.New("no active session", goerrors.CategoryConflict)
	}

	raw, err := json.Marshal(identity)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize identity")
	}
	if err := s.storage.Set(StorageKeyUser, string(raw)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist identity")
	}

	s.current.Identity = identity
	return nil
}

// Clear drops the persisted session unconditionally. Idempotent.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	for _, key := range []string{StorageKeyAccessToken, StorageKeyUser, StorageKeyMode} {
		if err := s.storage.Delete(key); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear persisted session")
		}
	}
	return nil
}

// MemoryStorage is an in-process Storage, used in tests and as a
// stand-in when persistence is not wanted.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string]string{}}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// FileStorage persists the keyspace as a single JSON document on
// disk, the closest server-side analog to browser local storage.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	data[key] = value
	return f.write(data)
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return f.write(data)
}

func (f *FileStorage) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		// corrupt state file, start over
		return map[string]string{}, nil
	}
	return data, nil
}

func (f *FileStorage) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(f.path, raw, 0o600)
}

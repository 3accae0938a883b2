package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
)

// DataStore is the per-plugin persistence the host provides.
type DataStore interface {
	LoadData() ([]byte, error)
	SaveData(data []byte) error
}

// Store owns the live settings record. Readers take snapshots; writers go
// through Update so subscribers see every change.
type Store struct {
	mu      sync.RWMutex
	data    DataStore
	logger  *slog.Logger
	current *Settings
	extra   map[string]json.RawMessage

	// saveMu orders writes so the last Save persists the latest record.
	saveMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]func(*Settings)
	nextID int
}

// NewStore returns a store holding the defaults until Load is called.
func NewStore(data DataStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		data:    data,
		logger:  logger,
		current: Default(),
		subs:    make(map[int]func(*Settings)),
	}
}

// Load reads persisted data and merges it over the defaults. A missing
// file or malformed content still leaves the store usable with defaults;
// only read failures are returned.
func (s *Store) Load() error {
	raw, err := s.data.LoadData()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	merged, extra, mergeErr := Merge(Default(), raw)
	if mergeErr != nil {
		s.logger.Warn("settings: ignored persisted values", "err", mergeErr)
	}

	s.mu.Lock()
	s.current = merged
	s.extra = extra
	s.mu.Unlock()

	s.notify(merged)
	return nil
}

// Save writes the current record, including any unknown keys seen at load.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := Marshal(s.current, s.extra)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return s.data.SaveData(data)
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Update applies fn to a copy of the settings and publishes the result.
func (s *Store) Update(fn func(*Settings)) {
	s.mu.Lock()
	next := s.current.Clone()
	fn(next)
	s.current = next
	s.mu.Unlock()

	s.notify(next)
}

// Subscribe registers fn to be called with a snapshot after every change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(*Settings)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(next *Settings) {
	s.subMu.Lock()
	fns := make([]func(*Settings), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(next.Clone())
	}
}

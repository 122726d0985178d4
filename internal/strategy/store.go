// Package strategy owns the per-creator mutable state: the rolling interaction history
// and the StrategyProfile that insights adjust.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"engagement-engine/internal/models"
	"engagement-engine/internal/patterns"
)

// ErrStateConflict is returned when a commit was computed against a stale profile version.
var ErrStateConflict = errors.New("strategy state conflict")

type creatorState struct {
	mu      sync.Mutex
	history *patterns.History
	profile *models.StrategyProfile
}

// Store is an arena of per-creator state. Each creator has its own lock so records for
// distinct creators never wait on each other.
type Store struct {
	mu           sync.RWMutex
	creators     map[string]*creatorState
	historyLimit int
}

// Snapshot is a point-in-time copy of the whole store.
type Snapshot struct {
	Profiles map[string]models.StrategyProfile `json:"profiles"`
	History  map[string][]float64              `json:"history"`
}

// NewStore creates an empty store whose histories keep at most historyLimit points.
func NewStore(historyLimit int) *Store {
	return &Store{
		creators:     make(map[string]*creatorState),
		historyLimit: historyLimit,
	}
}

func (s *Store) lookup(creatorID string) (*creatorState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.creators[creatorID]
	return st, ok
}

func (s *Store) state(creatorID string) *creatorState {
	if st, ok := s.lookup(creatorID); ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.creators[creatorID]
	if !ok {
		st = &creatorState{history: patterns.NewHistory(s.historyLimit)}
		s.creators[creatorID] = st
	}
	return st
}

// Begin locks the creator's state until the returned Tx is closed.
func (s *Store) Begin(creatorID string) *Tx {
	st := s.state(creatorID)
	st.mu.Lock()
	return &Tx{creatorID: creatorID, st: st}
}

// Profile returns a copy of the creator's profile, or the defaults if none exists yet.
func (s *Store) Profile(creatorID string) models.StrategyProfile {
	st, ok := s.lookup(creatorID)
	if !ok {
		return models.DefaultStrategyProfile(creatorID)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return profileOrDefault(creatorID, st.profile)
}

// Known reports whether a profile has been created for the creator.
func (s *Store) Known(creatorID string) bool {
	st, ok := s.lookup(creatorID)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.profile != nil
}

// Creators returns the ids of all creators with a profile, sorted.
func (s *Store) Creators() []string {
	snap := s.Snapshot()
	ids := make([]string, 0, len(snap.Profiles))
	for id := range snap.Profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot copies every profile and history. Each creator is read under its own lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	states := make(map[string]*creatorState, len(s.creators))
	for id, st := range s.creators {
		states[id] = st
	}
	s.mu.RUnlock()

	snap := Snapshot{
		Profiles: make(map[string]models.StrategyProfile),
		History:  make(map[string][]float64),
	}
	for id, st := range states {
		st.mu.Lock()
		if st.profile != nil {
			snap.Profiles[id] = st.profile.Clone()
		}
		if st.history.Len() > 0 {
			snap.History[id] = st.history.Points()
		}
		st.mu.Unlock()
	}
	return snap
}

// Restore replaces the store contents with snap. Creator state is rewritten in place
// under each creator's lock, so it waits for open transactions to close and a
// transaction opened earlier never commits into a detached state.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	states := make(map[string]*creatorState, len(s.creators))
	for id, st := range s.creators {
		states[id] = st
	}
	add := func(id string) {
		if _, ok := states[id]; !ok {
			st := &creatorState{history: patterns.NewHistory(s.historyLimit)}
			s.creators[id] = st
			states[id] = st
		}
	}
	for id := range snap.Profiles {
		add(id)
	}
	for id := range snap.History {
		add(id)
	}
	s.mu.Unlock()

	for id, st := range states {
		st.mu.Lock()
		st.profile = nil
		if p, ok := snap.Profiles[id]; ok {
			profile := p.Clone()
			profile.CreatorID = id
			st.profile = &profile
		}
		st.history = patterns.RestoreHistory(snap.History[id], s.historyLimit)
		st.mu.Unlock()
	}
}

// Seed installs a persisted profile for a creator that has none in memory yet.
func (s *Store) Seed(profile models.StrategyProfile) {
	tx := s.Begin(profile.CreatorID)
	defer tx.Close()
	if tx.st.profile == nil {
		p := profile.Clone()
		tx.st.profile = &p
	}
}

// Tx is exclusive access to one creator's state.
type Tx struct {
	creatorID string
	st        *creatorState
	closed    bool
}

// History returns the creator's last n history points, oldest first.
func (t *Tx) History(n int) []float64 {
	return t.st.history.Window(n)
}

// Profile returns a copy of the creator's profile, or the defaults.
func (t *Tx) Profile() models.StrategyProfile {
	return profileOrDefault(t.creatorID, t.st.profile)
}

// Commit appends the record's history point and, when profile is non-nil, replaces the
// creator's profile. profile.Version must equal the stored version; the stored copy gets
// the next version, which is returned.
func (t *Tx) Commit(point float64, profile *models.StrategyProfile) (int64, error) {
	var current int64
	if t.st.profile != nil {
		current = t.st.profile.Version
	}
	if profile != nil {
		if profile.Version != current {
			return current, fmt.Errorf("%w: creator %s at version %d, update based on %d",
				ErrStateConflict, t.creatorID, current, profile.Version)
		}
		next := profile.Clone()
		next.Version = current + 1
		t.st.profile = &next
		current = next.Version
	}
	t.st.history.Append(point)
	return current, nil
}

// Close releases the creator's lock. It is safe to call more than once.
func (t *Tx) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.st.mu.Unlock()
}

func profileOrDefault(creatorID string, p *models.StrategyProfile) models.StrategyProfile {
	if p == nil {
		return models.DefaultStrategyProfile(creatorID)
	}
	return p.Clone()
}

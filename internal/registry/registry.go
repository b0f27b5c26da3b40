// Package registry caches active matches in memory, backed by the snapshot
// store. It is the single authority for reading and mutating a match: every
// state change funnels through Mutate's per-match critical section, which
// persists the new snapshot and notifies the fan-out layer before returning.
package registry

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"mafiad/internal/mafia"
	"mafiad/internal/storage"
)

// Notifier receives a private copy of the match after every applied mutation.
type Notifier interface {
	MatchChanged(m *mafia.Match)
}

// personas are opaque tags threaded into oracle prompts for AI participants.
var personas = []string{
	"logical", "quiet", "aggressive", "paranoid",
	"talkative", "deceptive", "analytical", "impulsive",
}

type entry struct {
	mu    sync.Mutex
	match *mafia.Match
}

// Registry manages all active matches.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*entry
	store    *storage.Store
	notifier Notifier
}

// New creates a registry backed by the given store.
func New(store *storage.Store) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		store:   store,
	}
}

// SetNotifier installs the fan-out hook. Must be called before matches move.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

// Create builds a new match from settings: shuffled roles, exactly one human
// seat, phase PREGAME. The match is persisted before it is cached, so the
// caller never observes a match the store does not already hold.
func (r *Registry) Create(settings mafia.Settings) (*mafia.Match, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	roles := settings.RoleList()
	rand.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	humanName := settings.PlayerName
	if humanName == "" {
		humanName = "You"
	}

	now := time.Now().UTC()
	m := &mafia.Match{
		ID:           uuid.NewString(),
		Settings:     settings,
		Phase:        mafia.PhasePregame,
		Day:          1,
		NightActions: make(map[string]mafia.NightAction),
		Votes:        make(map[string]mafia.Vote),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for i, role := range roles {
		p := &mafia.Participant{
			ID:     uuid.NewString(),
			Role:   role,
			Status: mafia.StatusAlive,
		}
		if i == 0 {
			p.Human = true
			p.Name = humanName
		} else {
			p.Name = fmt.Sprintf("Player %d", i+1)
			p.Persona = personas[rand.IntN(len(personas))]
		}
		m.Participants = append(m.Participants, p)
	}
	m.AddLog(fmt.Sprintf("Match created with %d participants.", len(m.Participants)))

	if err := r.persist(m); err != nil {
		return nil, err
	}

	e := &entry{match: m}
	r.mu.Lock()
	r.entries[m.ID] = e
	r.mu.Unlock()

	clone := m.Clone()
	r.notify(clone)
	return clone, nil
}

// Get returns a private copy of the match, loading it from the store on a
// cache miss. Returns mafia.ErrNotFound when neither cache nor store know it.
func (r *Registry) Get(id string) (*mafia.Match, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.match == nil {
		return nil, fmt.Errorf("%w: match %s", mafia.ErrNotFound, id)
	}
	return e.match.Clone(), nil
}

// Mutate applies fn to the match under its exclusive lock, persists the
// result, and hands the new state to the notifier. If fn fails nothing is
// persisted or broadcast. A persistence failure is returned wrapped in
// mafia.ErrPersistence; the in-memory copy stays ahead of the store until
// the next successful save.
func (r *Registry) Mutate(id string, fn func(*mafia.Match) error) (*mafia.Match, error) {
	e, err := r.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.match == nil {
		return nil, fmt.Errorf("%w: match %s", mafia.ErrNotFound, id)
	}
	if err := fn(e.match); err != nil {
		return nil, err
	}
	e.match.UpdatedAt = time.Now().UTC()
	if err := r.persist(e.match); err != nil {
		return nil, err
	}
	clone := e.match.Clone()
	r.notify(clone)
	return clone, nil
}

// Delete evicts the match from the cache and removes its snapshot. A match
// that only lives in the store, like a finished one after a restart, deletes
// fine too. Results of in-flight oracle calls for the match are discarded
// when they fold back in and find nothing.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if e != nil {
		e.mu.Lock()
		e.match = nil
		e.mu.Unlock()
	}
	if !ok {
		if _, err := r.store.Load(id); err != nil {
			if errors.Is(err, mafia.ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: load match %s: %v", mafia.ErrPersistence, id, err)
		}
	}
	if err := r.store.Delete(id); err != nil {
		return fmt.Errorf("%w: delete match %s: %v", mafia.ErrPersistence, id, err)
	}
	return nil
}

// List returns the ids of all stored matches.
func (r *Registry) List() ([]string, error) {
	rows, err := r.store.List()
	if err != nil {
		return nil, fmt.Errorf("%w: list matches: %v", mafia.ErrPersistence, err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Restore loads unfinished matches from the store on startup.
func (r *Registry) Restore() error {
	rows, err := r.store.List()
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	for _, row := range rows {
		if row.Phase == string(mafia.PhaseGameover) {
			continue
		}
		if _, err := r.Get(row.ID); err != nil {
			log.Printf("skipping match %s: %v", row.ID, err)
			continue
		}
		log.Printf("restored match %s (%s)", row.ID, row.Phase)
	}
	return nil
}

// CleanupLoop removes finished and stale matches periodically.
func (r *Registry) CleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		r.cleanup(maxAge)
	}
}

func (r *Registry) cleanup(maxAge time.Duration) {
	rows, err := r.store.List()
	if err != nil {
		log.Printf("cleanup: list matches: %v", err)
		return
	}
	now := time.Now()
	for _, row := range rows {
		// Finished matches go as soon as they age out; abandoned ones too.
		if now.Sub(row.UpdatedAt) > maxAge {
			log.Printf("cleaning up match %s", row.ID)
			if err := r.Delete(row.ID); err != nil && !errors.Is(err, mafia.ErrNotFound) {
				log.Printf("cleanup: delete match %s: %v", row.ID, err)
			}
		}
	}
}

// entry returns the cache entry for id, loading from the store on a miss.
func (r *Registry) entry(id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	snapshot, err := r.store.Load(id)
	if err != nil {
		if errors.Is(err, mafia.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load match %s: %v", mafia.ErrPersistence, id, err)
	}
	m, err := mafia.FromSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: decode match %s: %v", mafia.ErrPersistence, id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[id]; ok {
		return existing, nil
	}
	e = &entry{match: m}
	r.entries[id] = e
	return e, nil
}

func (r *Registry) persist(m *mafia.Match) error {
	snapshot, err := m.Snapshot()
	if err != nil {
		return fmt.Errorf("%w: %v", mafia.ErrPersistence, err)
	}
	if err := r.store.Save(m.ID, string(m.Phase), snapshot); err != nil {
		return fmt.Errorf("%w: save match %s: %v", mafia.ErrPersistence, m.ID, err)
	}
	return nil
}

func (r *Registry) notify(m *mafia.Match) {
	if r.notifier != nil {
		r.notifier.MatchChanged(m)
	}
}

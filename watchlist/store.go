package watchlist

import (
	"fmt"
	"sync"

	"hyprice/models"
	"hyprice/storage"
	"hyprice/utils"
)

// TokenRef is a read-only (symbol, address) pair captured from a
// subscriber's watchlist so fetches can run without holding the store
// lock.
type TokenRef struct {
	Symbol  string
	Address string
}

// PriceUpdate carries normalized values back into a tracked token
// after a fetch completed outside the lock.
type PriceUpdate struct {
	Symbol string
	Price  string
	Change string
}

// Store owns the set of subscribers and their tracked tokens. It is the
// single source of truth for who tracks what. Unknown subscribers are
// materialized on first access with the default watchlist and persisted.
type Store struct {
	mu      sync.RWMutex
	subs    map[int64]*models.Subscriber
	backend storage.PersistenceBackend
}

func NewStore(backend storage.PersistenceBackend) *Store {
	return &Store{
		subs:    make(map[int64]*models.Subscriber),
		backend: backend,
	}
}

// LoadFromBackend replaces in-memory state with the persisted one.
// Called once at boot, before any loops start.
func (s *Store) LoadFromBackend() error {
	subs, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("failed to load subscriber state: %w", err)
	}

	s.mu.Lock()
	s.subs = subs
	s.mu.Unlock()

	utils.Logger.Infow("Subscriber state loaded", "subscribers", len(subs))
	return nil
}

// Get returns a deep copy of the subscriber, creating and persisting it
// with the default watchlist if unknown.
func (s *Store) Get(id int64) *models.Subscriber {
	s.mu.Lock()
	sub, created := s.materialize(id)
	clone := sub.Clone()
	s.mu.Unlock()

	if created {
		s.persist()
	}
	return clone
}

// materialize must be called with the write lock held.
func (s *Store) materialize(id int64) (*models.Subscriber, bool) {
	if sub, ok := s.subs[id]; ok {
		return sub, false
	}
	sub := models.NewSubscriber(id)
	s.subs[id] = sub
	utils.Logger.Infow("New subscriber created", "subscriber", id, "seed_tokens", len(sub.Tokens))
	return sub, true
}

// AddToken tracks address under symbol for the subscriber. The address
// of an existing symbol is immutable; remove and re-add to change it.
func (s *Store) AddToken(id int64, symbol, address string) error {
	if symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if address == "" {
		return fmt.Errorf("token address must not be empty")
	}

	s.mu.Lock()
	sub, _ := s.materialize(id)
	if existing, ok := sub.Tokens[symbol]; ok {
		s.mu.Unlock()
		if existing.Address == address {
			return nil
		}
		return fmt.Errorf("symbol %s already tracks %s; remove it before changing the address", symbol, existing.Address)
	}
	sub.Tokens[symbol] = &models.TrackedToken{Address: address}
	sub.Order = append(sub.Order, symbol)
	s.mu.Unlock()

	s.persist()
	return nil
}

// RemoveToken stops tracking symbol. Returns false if the symbol was
// not tracked; that is a normal outcome, not an error.
func (s *Store) RemoveToken(id int64, symbol string) bool {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if _, ok := sub.Tokens[symbol]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(sub.Tokens, symbol)
	for i, sym := range sub.Order {
		if sym == symbol {
			sub.Order = append(sub.Order[:i], sub.Order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persist()
	return true
}

// Reset discards the subscriber entirely. Returns false if unknown.
func (s *Store) Reset(id int64) bool {
	s.mu.Lock()
	if _, ok := s.subs[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.subs, id)
	s.mu.Unlock()

	s.persist()
	return true
}

// Known reports whether the subscriber exists without materializing it.
func (s *Store) Known(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subs[id]
	return ok
}

// Subscribers returns the ids of all known subscribers.
func (s *Store) Subscribers() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids
}

// TokenRefs returns the subscriber's tracked tokens in insertion order.
// Unknown subscribers yield nil: refresh passes must never materialize
// state, or a pass in flight during a reset would resurrect the
// deleted subscriber. Creation-on-demand belongs to Get alone.
func (s *Store) TokenRefs(id int64) []TokenRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil
	}
	refs := make([]TokenRef, 0, len(sub.Order))
	for _, sym := range sub.Order {
		if t, ok := sub.Tokens[sym]; ok {
			refs = append(refs, TokenRef{Symbol: sym, Address: t.Address})
		}
	}
	return refs
}

// View returns a deep copy of the subscriber, or nil if unknown. Unlike
// Get it never materializes; the scheduler renders through this so a
// stopped and reset subscriber stays gone.
func (s *Store) View(id int64) *models.Subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil
	}
	return sub.Clone()
}

// ApplyPrices writes fetched values back under the lock and reports
// whether any tracked token actually changed. Symbols removed since the
// refs were captured are skipped.
func (s *Store) ApplyPrices(id int64, updates []PriceUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		// Subscriber was reset while its fetches were in flight; the
		// result is discarded.
		return false
	}

	changed := false
	for _, u := range updates {
		t, ok := sub.Tokens[u.Symbol]
		if !ok {
			continue
		}
		if t.LastPrice != u.Price || t.LastChange != u.Change {
			t.LastPrice = u.Price
			t.LastChange = u.Change
			changed = true
		}
	}
	return changed
}

// persist saves a point-in-time copy of the state. Failures are logged
// and the in-memory mutation stands.
func (s *Store) persist() {
	s.mu.RLock()
	snapshot := make(map[int64]*models.Subscriber, len(s.subs))
	for id, sub := range s.subs {
		snapshot[id] = sub.Clone()
	}
	s.mu.RUnlock()

	if err := s.backend.Save(snapshot); err != nil {
		utils.Error(err, "Failed to persist subscriber state", "subscribers", len(snapshot))
	}
}

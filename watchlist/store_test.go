package watchlist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hyprice/models"
)

// memBackend is an in-memory PersistenceBackend for tests.
type memBackend struct {
	mu      sync.Mutex
	saved   map[int64]*models.Subscriber
	saves   int
	failing bool
}

func (m *memBackend) Load() (map[int64]*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return map[int64]*models.Subscriber{}, nil
	}
	return m.saved, nil
}

func (m *memBackend) Save(subs map[int64]*models.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.failing {
		return errors.New("disk on fire")
	}
	m.saved = subs
	return nil
}

func (m *memBackend) Ping(ctx context.Context) error { return nil }
func (m *memBackend) Close() error                   { return nil }

func TestGetCreatesSubscriberWithDefaults(t *testing.T) {
	backend := &memBackend{}
	s := NewStore(backend)

	sub := s.Get(1001)

	if len(sub.Tokens) != 2 {
		t.Fatalf("got %d seed tokens, want 2", len(sub.Tokens))
	}
	hype := sub.Tokens["HYPE"]
	if hype == nil || hype.Address != "0x13ba5fea7078ab3798fbce53b4d0721c" {
		t.Errorf("HYPE seed wrong: %+v", hype)
	}
	hfun := sub.Tokens["HFUN"]
	if hfun == nil || hfun.Address != "0x929bdfee96c790d3ff9de6c88d6ffe2d" {
		t.Errorf("HFUN seed wrong: %+v", hfun)
	}
	if hype.LastPrice != "" || hfun.LastPrice != "" {
		t.Error("seed tokens must start without a price")
	}
	if backend.saves != 1 {
		t.Errorf("creation should persist once, saved %d times", backend.saves)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore(&memBackend{})

	first := s.Get(1)
	first.Tokens["HYPE"].LastPrice = "tampered"
	first.Order = nil

	second := s.Get(1)
	if second.Tokens["HYPE"].LastPrice != "" {
		t.Error("store state was mutated through a returned copy")
	}
	if len(second.Order) != 2 {
		t.Errorf("order corrupted through a returned copy: %v", second.Order)
	}
}

func TestAddToken(t *testing.T) {
	s := NewStore(&memBackend{})

	if err := s.AddToken(1, "FOO", "0xabc"); err != nil {
		t.Fatalf("AddToken: %v", err)
	}

	sub := s.Get(1)
	foo := sub.Tokens["FOO"]
	if foo == nil {
		t.Fatal("FOO not tracked after AddToken")
	}
	if foo.Address != "0xabc" || foo.LastPrice != "" || foo.LastChange != "" {
		t.Errorf("new token state wrong: %+v", foo)
	}
	if got := sub.Order[len(sub.Order)-1]; got != "FOO" {
		t.Errorf("FOO should be last in order, got %q", got)
	}
}

func TestAddTokenAddressImmutable(t *testing.T) {
	s := NewStore(&memBackend{})

	if err := s.AddToken(1, "FOO", "0xabc"); err != nil {
		t.Fatalf("AddToken: %v", err)
	}
	// Same address again is a no-op.
	if err := s.AddToken(1, "FOO", "0xabc"); err != nil {
		t.Errorf("re-adding identical token should succeed, got %v", err)
	}
	// Different address is rejected.
	if err := s.AddToken(1, "FOO", "0xdef"); err == nil {
		t.Error("changing a symbol's address must be rejected")
	}
	if got := s.Get(1).Tokens["FOO"].Address; got != "0xabc" {
		t.Errorf("address changed to %q", got)
	}
}

func TestRemoveTokenAbsentReturnsFalse(t *testing.T) {
	backend := &memBackend{}
	s := NewStore(backend)
	s.Get(1)
	before := backend.saves

	if s.RemoveToken(1, "NOPE") {
		t.Error("removing an untracked symbol must return false")
	}
	if backend.saves != before {
		t.Error("failed remove must not persist")
	}
	if s.RemoveToken(999, "HYPE") {
		t.Error("removing from an unknown subscriber must return false")
	}
}

func TestRemoveToken(t *testing.T) {
	s := NewStore(&memBackend{})
	s.AddToken(1, "FOO", "0xabc")

	if !s.RemoveToken(1, "FOO") {
		t.Fatal("RemoveToken returned false for a tracked symbol")
	}
	sub := s.Get(1)
	if _, ok := sub.Tokens["FOO"]; ok {
		t.Error("FOO still tracked after removal")
	}
	for _, sym := range sub.Order {
		if sym == "FOO" {
			t.Error("FOO still present in order after removal")
		}
	}
}

func TestPersistenceFailureIsNonFatal(t *testing.T) {
	backend := &memBackend{failing: true}
	s := NewStore(backend)

	if err := s.AddToken(1, "FOO", "0xabc"); err != nil {
		t.Fatalf("AddToken must not surface persistence errors, got %v", err)
	}
	if _, ok := s.Get(1).Tokens["FOO"]; !ok {
		t.Error("in-memory mutation must survive a persistence failure")
	}
}

func TestTokenRefsOrder(t *testing.T) {
	s := NewStore(&memBackend{})
	s.AddToken(1, "FOO", "0xabc")
	s.AddToken(1, "BAR", "0xdef")

	refs := s.TokenRefs(1)
	want := []string{"HYPE", "HFUN", "FOO", "BAR"}
	if len(refs) != len(want) {
		t.Fatalf("got %d refs, want %d", len(refs), len(want))
	}
	for i, sym := range want {
		if refs[i].Symbol != sym {
			t.Errorf("refs[%d] = %s, want %s", i, refs[i].Symbol, sym)
		}
	}
}

func TestTokenRefsUnknownSubscriber(t *testing.T) {
	backend := &memBackend{}
	s := NewStore(backend)

	if refs := s.TokenRefs(42); refs != nil {
		t.Errorf("refs for an unknown subscriber = %v, want nil", refs)
	}
	if s.View(42) != nil {
		t.Error("View must not materialize an unknown subscriber")
	}
	if s.Known(42) {
		t.Error("read paths must not create subscriber state")
	}
	if backend.saves != 0 {
		t.Errorf("read paths persisted %d times", backend.saves)
	}
}

func TestApplyPrices(t *testing.T) {
	s := NewStore(&memBackend{})
	s.Get(1)

	updates := []PriceUpdate{{Symbol: "HYPE", Price: "1.2346", Change: "🔻 3.20%"}}
	if !s.ApplyPrices(1, updates) {
		t.Fatal("first apply should report a change")
	}
	if s.ApplyPrices(1, updates) {
		t.Error("identical values must not report a change")
	}

	// Updates for symbols removed mid-flight are skipped.
	s.RemoveToken(1, "HFUN")
	if s.ApplyPrices(1, []PriceUpdate{{Symbol: "HFUN", Price: "9.9999"}}) {
		t.Error("removed symbol must be skipped")
	}

	// A reset subscriber discards the whole result.
	s.Reset(1)
	if s.ApplyPrices(1, updates) {
		t.Error("apply after reset must be discarded")
	}
}

func TestLoadFromBackend(t *testing.T) {
	backend := &memBackend{}
	seeded := NewStore(backend)
	seeded.AddToken(7, "FOO", "0xabc")

	s := NewStore(backend)
	if err := s.LoadFromBackend(); err != nil {
		t.Fatalf("LoadFromBackend: %v", err)
	}
	if !s.Known(7) {
		t.Fatal("subscriber 7 missing after load")
	}
	if _, ok := s.Get(7).Tokens["FOO"]; !ok {
		t.Error("FOO missing after load")
	}
}

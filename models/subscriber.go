package models

// TrackedToken is one symbol's tracking record within a subscriber's
// watchlist. LastPrice and LastChange stay empty until the first
// successful refresh.
type TrackedToken struct {
	Address    string `json:"address"`
	LastPrice  string `json:"last_price,omitempty"`
	LastChange string `json:"last_change,omitempty"`
}

// Subscriber is one independent tracking context, keyed by chat/session id.
// Tokens is keyed by symbol; Order preserves insertion order for rendering.
type Subscriber struct {
	ID     int64                    `json:"id"`
	Tokens map[string]*TrackedToken `json:"tokens"`
	Order  []string                 `json:"order"`
}

// SeedToken is one entry of the default watchlist given to newly
// observed subscribers.
type SeedToken struct {
	Symbol  string
	Address string
}

var DefaultWatchlist = []SeedToken{
	{Symbol: "HYPE", Address: "0x13ba5fea7078ab3798fbce53b4d0721c"},
	{Symbol: "HFUN", Address: "0x929bdfee96c790d3ff9de6c88d6ffe2d"},
}

// NewSubscriber creates a subscriber seeded with the default watchlist.
func NewSubscriber(id int64) *Subscriber {
	s := &Subscriber{
		ID:     id,
		Tokens: make(map[string]*TrackedToken, len(DefaultWatchlist)),
		Order:  make([]string, 0, len(DefaultWatchlist)),
	}
	for _, seed := range DefaultWatchlist {
		s.Tokens[seed.Symbol] = &TrackedToken{Address: seed.Address}
		s.Order = append(s.Order, seed.Symbol)
	}
	return s
}

// Clone returns a deep copy so readers never share mutable state with
// the store.
func (s *Subscriber) Clone() *Subscriber {
	c := &Subscriber{
		ID:     s.ID,
		Tokens: make(map[string]*TrackedToken, len(s.Tokens)),
		Order:  append([]string(nil), s.Order...),
	}
	for sym, t := range s.Tokens {
		tc := *t
		c.Tokens[sym] = &tc
	}
	return c
}

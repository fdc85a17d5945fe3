package refresh

import (
	"context"

	"hyprice/cache"
	"hyprice/metrics"
	"hyprice/models"
	"hyprice/source"
	"hyprice/utils"
	"hyprice/watchlist"
)

// Mode selects the retry behavior of a refresh pass. Direct passes come
// from an explicit user action and keep retrying a failed fetch with a
// fixed delay; scheduled passes accept a single failed attempt and
// defer to the next tick.
type Mode int

const (
	Scheduled Mode = iota
	Direct
)

// Result reports the outcome of one refresh pass.
type Result struct {
	AnyUpdated bool
	Failed     int
}

// Engine resolves each of a subscriber's tracked tokens against the
// price cache, falling through to the price source on miss, and writes
// normalized values back into the watchlist.
type Engine struct {
	store  *watchlist.Store
	cache  *cache.PriceCache
	src    source.PriceSource
	direct source.PriceSource
}

func NewEngine(store *watchlist.Store, pc *cache.PriceCache, src, direct source.PriceSource) *Engine {
	return &Engine{store: store, cache: pc, src: src, direct: direct}
}

// Refresh runs one pass for the subscriber. Fetches happen outside any
// store or cache lock; results are written back under lock at the end.
// A fetch failure for one token never aborts the rest of the pass.
func (e *Engine) Refresh(ctx context.Context, subscriberID int64, mode Mode) (Result, error) {
	refs := e.store.TokenRefs(subscriberID)
	if refs == nil {
		// Unknown subscriber: reset while this pass was queued, or never
		// created. A refresh pass must not bring it back.
		return Result{}, nil
	}

	src := e.src
	if mode == Direct {
		src = e.direct
	}

	var (
		updates []watchlist.PriceUpdate
		failed  int
	)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		snap, ok := e.cache.Get(ref.Address)
		if !ok {
			fetched, err := src.Fetch(ctx, ref.Address)
			if err != nil {
				failed++
				utils.Logger.Warnw("Price fetch failed, keeping previous values",
					"subscriber", subscriberID,
					"symbol", ref.Symbol,
					"token", ref.Address,
					"error", err)
				continue
			}

			snap, err = normalizeSnapshot(fetched)
			if err != nil {
				failed++
				utils.Error(err, "Unusable price snapshot",
					"subscriber", subscriberID,
					"symbol", ref.Symbol,
					"token", ref.Address)
				continue
			}
			e.cache.Put(ref.Address, snap)
		}

		updates = append(updates, watchlist.PriceUpdate{
			Symbol: ref.Symbol,
			Price:  snap.PriceUSD,
			Change: snap.PriceChange24h,
		})
	}

	changed := e.store.ApplyPrices(subscriberID, updates)
	if changed {
		metrics.IncrementTokensUpdated()
	}
	metrics.IncrementRefreshPasses()

	return Result{AnyUpdated: changed, Failed: failed}, nil
}

// normalizeSnapshot converts a raw upstream snapshot into the display
// form stored in the cache and the tracked tokens.
func normalizeSnapshot(raw models.Snapshot) (models.Snapshot, error) {
	price, err := normalizePrice(raw.PriceUSD)
	if err != nil {
		return models.Snapshot{}, err
	}
	change, err := normalizeChange(raw.PriceChange24h)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{PriceUSD: price, PriceChange24h: change}, nil
}

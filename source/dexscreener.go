package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hyprice/metrics"
	"hyprice/middleware"
	"hyprice/models"
)

// DexScreenerClient fetches token prices from the DexScreener pairs
// API. Calls go through the shared upstream circuit breaker.
type DexScreenerClient struct {
	baseURL string
	client  *http.Client
}

func NewDexScreenerClient(baseURL string, timeout time.Duration) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type dexScreenerResponse struct {
	Pairs []struct {
		PriceUSD    string `json:"priceUsd"`
		PriceChange struct {
			H24 json.Number `json:"h24"`
		} `json:"priceChange"`
	} `json:"pairs"`
}

func (c *DexScreenerClient) Fetch(ctx context.Context, address string) (models.Snapshot, error) {
	var snap models.Snapshot

	err := middleware.WithCircuitBreaker(func() error {
		start := time.Now()
		defer func() { metrics.RecordFetchDuration(time.Since(start)) }()

		url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, address)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("price request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("price request returned status %d", resp.StatusCode)
		}

		var body dexScreenerResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode price response: %w", err)
		}
		if len(body.Pairs) == 0 {
			return fmt.Errorf("no pairs found for token %s", address)
		}

		pair := body.Pairs[0]
		if pair.PriceUSD == "" {
			return fmt.Errorf("pair for token %s has no USD price", address)
		}
		snap = models.Snapshot{
			PriceUSD:       pair.PriceUSD,
			PriceChange24h: pair.PriceChange.H24.String(),
		}
		return nil
	})
	if err != nil {
		metrics.IncrementFetchErrors()
		return models.Snapshot{}, err
	}
	return snap, nil
}

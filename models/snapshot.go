package models

// Snapshot is a single point-in-time price reading for a token.
// Values are kept as strings to avoid float rounding between the
// upstream response and the rendered view.
type Snapshot struct {
	PriceUSD       string `json:"price_usd"`
	PriceChange24h string `json:"price_change_24h"`
}

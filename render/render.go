package render

import (
	"fmt"
	"strings"

	"hyprice/models"
)

const chartBaseURL = "https://dexscreener.com/hyperliquid/"

// Render produces the display form of a subscriber's watchlist. It is
// pure: no I/O, no mutation, and byte-identical output for identical
// state.
func Render(sub *models.Subscriber) models.RenderedView {
	var b strings.Builder
	b.WriteString("📊 HyPrice Watchlist\n")

	if len(sub.Order) == 0 {
		b.WriteString("\nNo tokens tracked yet. Add one to get started.")
		return models.RenderedView{Text: b.String(), Actions: []models.Action{}}
	}

	actions := make([]models.Action, 0, len(sub.Order)*2)
	for _, sym := range sub.Order {
		t, ok := sub.Tokens[sym]
		if !ok {
			continue
		}

		b.WriteString("\n$")
		b.WriteString(sym)
		b.WriteString("\n")
		b.WriteString(t.Address)
		b.WriteString("\n")
		if t.LastPrice == "" {
			b.WriteString("💰 N/A")
		} else {
			fmt.Fprintf(&b, "💰 $%s", t.LastPrice)
		}
		if t.LastChange != "" {
			b.WriteString(" | ")
			b.WriteString(t.LastChange)
		}
		b.WriteString("\n")

		actions = append(actions,
			models.Action{Label: "🔗 $" + sym, URL: ChartURL(t.Address)},
			models.Action{Label: "❌ $" + sym, CallbackData: "remove:" + sym},
		)
	}

	return models.RenderedView{Text: b.String(), Actions: actions}
}

// ChartURL derives the external view link for a token address.
func ChartURL(address string) string {
	return chartBaseURL + address
}

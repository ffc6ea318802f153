package quote

import "fmt"

// Tier is a localized complexity tier as it appears on the wire.
type Tier string

const (
	TierLow      Tier = "niedrig"
	TierMedium   Tier = "mittel"
	TierHigh     Tier = "hoch"
	TierVeryHigh Tier = "sehr hoch"
)

// Item is a validated quote position. Created once by the normalizer and
// immutable afterwards; the price is always derived locally, never taken from
// the upstream payload.
type Item struct {
	ID          string `json:"id"`
	Service     string `json:"service"`
	Description string `json:"description,omitempty"`

	// nil when the model gave no estimate; the item is then priced on request
	EstimatedHours *float64 `json:"estimatedHours,omitempty"`

	// empty when absent or unrecognized
	Complexity Tier `json:"complexity,omitempty"`

	Price int `json:"price"`
}

func (i Item) PriceOnRequest() bool {
	return i.EstimatedHours == nil
}

func (i Item) PriceLabel() string {
	if i.PriceOnRequest() {
		return "Preis auf Anfrage"
	}

	return fmt.Sprintf("%d €", i.Price)
}

package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidRecommendation marks payloads that must be dropped silently:
// a bad recommendation never fails the surrounding conversation.
var ErrInvalidRecommendation = errors.New("invalid quote recommendation")

type rawRecommendation struct {
	Service        string   `json:"service" validate:"required"`
	Description    string   `json:"description"`
	EstimatedHours *float64 `json:"estimatedHours" validate:"omitempty,gte=0"`
	Complexity     string   `json:"complexity"`
}

type Normalizer struct {
	validate   *validator.Validate
	hourlyRate int
}

// NewNormalizer creates a normalizer pricing at the given hourly rate, or at
// BaseHourlyRate when zero.
func NewNormalizer(hourlyRate int) *Normalizer {
	if hourlyRate <= 0 {
		hourlyRate = BaseHourlyRate
	}

	return &Normalizer{
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		hourlyRate: hourlyRate,
	}
}

// Normalize parses a raw markup payload into a validated Item. The price is
// computed here regardless of anything the payload claims.
func (n *Normalizer) Normalize(payload string) (Item, error) {
	var raw rawRecommendation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalidRecommendation, err)
	}

	raw.Service = strings.TrimSpace(raw.Service)
	raw.Description = strings.TrimSpace(raw.Description)

	if err := n.validate.Struct(raw); err != nil {
		return Item{}, fmt.Errorf("%w: %w", ErrInvalidRecommendation, err)
	}

	tier := Tier(strings.ToLower(strings.TrimSpace(raw.Complexity)))
	if _, known := tierMultipliers[tier]; !known {
		tier = ""
	}

	return Item{
		ID:             uuid.NewString(),
		Service:        raw.Service,
		Description:    raw.Description,
		EstimatedHours: raw.EstimatedHours,
		Complexity:     tier,
		Price:          PriceAt(n.hourlyRate, raw.EstimatedHours, tier),
	}, nil
}

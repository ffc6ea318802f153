package quote

import (
	"sync"

	"github.com/elliotchance/pie/v2"
)

// Accumulator is the insertion-ordered collection of accepted quote items.
// Items arrive from the normalizer and leave only by explicit removal or a
// wholesale clear after a successful save. Mutations are serialized so the
// total always equals the sum of item prices.
type Accumulator struct {
	mu    sync.Mutex
	items []Item
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add appends an item, ignoring duplicate ids.
func (a *Accumulator) Add(item Item) {
	a.mu.Lock()
	defer a.mu.Unlock()

	exists := pie.FindFirstUsing(a.items, func(it Item) bool {
		return it.ID == item.ID
	})
	if exists >= 0 {
		return
	}

	a.items = append(a.items, item)
}

// Remove deletes the item with the given id. Unknown ids are a no-op.
func (a *Accumulator) Remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = pie.FilterNot(a.items, func(it Item) bool {
		return it.ID == id
	})
}

func (a *Accumulator) Items() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]Item, len(a.items))
	copy(result, a.items)

	return result
}

func (a *Accumulator) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return pie.Sum(pie.Map(a.items, func(it Item) int {
		return it.Price
	}))
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.items)
}

func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = nil
}

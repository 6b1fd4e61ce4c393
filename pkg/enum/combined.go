package enum

import (
	"context"
	"sync"

	"github.com/praetorian-inc/yaraexec/pkg/types"
)

// CombinedEnumerator runs multiple enumerators sequentially and yields each
// distinct item (by ItemID) at most once.
type CombinedEnumerator struct {
	enumerators []Enumerator
}

// NewCombinedEnumerator wraps the provided enumerators. They run in order.
func NewCombinedEnumerator(enumerators ...Enumerator) *CombinedEnumerator {
	return &CombinedEnumerator{enumerators: enumerators}
}

// Enumerate runs each child enumerator in sequence, passing unseen items to fn.
func (c *CombinedEnumerator) Enumerate(ctx context.Context, fn ItemFunc) error {
	var mu sync.Mutex
	seen := make(map[types.ItemID]bool)

	for _, e := range c.enumerators {
		err := e.Enumerate(ctx, func(content []byte, id types.ItemID, prov types.Provenance) error {
			mu.Lock()
			if seen[id] {
				mu.Unlock()
				return nil
			}
			seen[id] = true
			mu.Unlock()

			return fn(content, id, prov)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

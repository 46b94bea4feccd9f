package wizard

import (
	"reflect"
	"sort"

	"github.com/ad/go-scholar-wizard/internal/models"
)

// DraftCache holds the last known values per step. One entry per step, last
// write wins, no history. It is not safe for concurrent use; the owning
// Wizard serialises access.
type DraftCache struct {
	entries map[models.StepKey]models.StepPayload
}

func NewDraftCache() *DraftCache {
	return &DraftCache{entries: make(map[models.StepKey]models.StepPayload)}
}

func (c *DraftCache) Get(key models.StepKey) (models.StepPayload, bool) {
	p, ok := c.entries[key]
	return p, ok
}

// Set overwrites the entry and reports whether the stored value changed.
func (c *DraftCache) Set(key models.StepKey, p models.StepPayload) bool {
	if old, ok := c.entries[key]; ok && reflect.DeepEqual(old, p) {
		return false
	}
	c.entries[key] = p
	return true
}

// Reset drops every entry; used when the wizard switches to another entity.
func (c *DraftCache) Reset() {
	clear(c.entries)
}

func (c *DraftCache) Len() int {
	return len(c.entries)
}

func (c *DraftCache) Keys() []models.StepKey {
	keys := make([]models.StepKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

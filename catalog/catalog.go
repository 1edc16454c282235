package catalog

import (
	"sync"
	"time"

	"github.com/elecbridge/dlt645"
	"go.uber.org/zap"
)

// Catalog is a concurrency-safe map of DataIdentifier to DataItem
// metadata and current value. Readers get a snapshot of an entry;
// mutating the returned DataItem never affects the catalog.
type Catalog struct {
	mu     sync.RWMutex
	items  map[uint32]dlt645.DataItem
	logger *zap.Logger
}

// NewEmpty returns a Catalog with no entries. logger may be nil, in
// which case a no-op logger is used.
func NewEmpty(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{items: make(map[uint32]dlt645.DataItem), logger: logger}
}

// Get returns a clone of the entry for di, and whether it exists.
func (c *Catalog) Get(di uint32) (dlt645.DataItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[di]
	if !ok {
		return dlt645.DataItem{}, false
	}
	return item.Clone(), true
}

// Add inserts or replaces the entry for item.DI.
func (c *Catalog) Add(item dlt645.DataItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.DI] = item
}

// Update replaces the value and timestamp of an existing entry,
// leaving its name/format/unit untouched. It reports false if di has
// no entry.
func (c *Catalog) Update(di uint32, value dlt645.Value) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[di]
	if !ok {
		c.logger.Warn("update of unknown DI", zap.Uint32("di", di))
		return false
	}
	item.Value = value
	item.Timestamp = time.Now()
	c.items[di] = item
	return true
}

// Remove deletes the entry for di, reporting whether it was present.
func (c *Catalog) Remove(di uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[di]; !ok {
		return false
	}
	delete(c.items, di)
	return true
}

// Len returns the number of entries currently in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Range calls fn for every entry, in no particular order. fn receives
// a clone; it must not mutate the catalog from within the callback.
func (c *Catalog) Range(fn func(dlt645.DataItem) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if !fn(item.Clone()) {
			return
		}
	}
}

package cart

import (
	"encoding/json"
	"log"
	"sync"

	"storefront/models"
)

// SnapshotStore persists the serialized cart under a namespaced key.
// Implementations: MemorySnapshotStore below, database.CartSnapshots
// for the MySQL-backed storefront.
type SnapshotStore interface {
	Load(key string) ([]byte, bool)
	Save(key string, data []byte) error
	Delete(key string) error
}

type MemorySnapshotStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{m: make(map[string][]byte)}
}

func (s *MemorySnapshotStore) Load(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.m[key]
	return data, ok
}

func (s *MemorySnapshotStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.m[key] = cp
	return nil
}

func (s *MemorySnapshotStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Cart is an ordered list of lines keyed by product id, persisted in
// full after every mutation. Mutations are serialized by the caller's
// request flow; the mutex only guards against overlapping requests
// for the same key.
type Cart struct {
	mu    sync.Mutex
	store SnapshotStore
	key   string
	lines []models.CartLine
}

// New loads the snapshot stored under key. A missing snapshot is an
// empty cart; a corrupt one is purged and treated as empty.
func New(store SnapshotStore, key string) *Cart {
	c := &Cart{store: store, key: key}
	data, ok := store.Load(key)
	if !ok {
		return c
	}
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("discarding corrupt cart snapshot for %s: %v", key, err)
		_ = store.Delete(key)
		return c
	}
	c.lines = lines
	return c
}

// Add merges into an existing line with the same product id,
// incrementing its quantity and leaving all other fields untouched.
// A new line gets quantity 1 unless the incoming line says otherwise.
func (c *Cart) Add(line models.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	qty := line.Quantity
	if qty <= 0 {
		qty = 1
	}
	for i := range c.lines {
		if c.lines[i].ID == line.ID {
			c.lines[i].Quantity += qty
			c.persist()
			return
		}
	}
	line.Quantity = qty
	c.lines = append(c.lines, line)
	c.persist()
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(id string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if qty <= 0 {
		c.removeLocked(id)
		return
	}
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Quantity = qty
			c.persist()
			return
		}
	}
}

// Remove deletes the line if present; removing an unknown id is a
// no-op.
func (c *Cart) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

func (c *Cart) removeLocked(id string) {
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.persist()
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.persist()
}

// Lines returns a copy of the current line list.
func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the sum of price times quantity across lines.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, l := range c.lines {
		total += l.Price * float64(l.Quantity)
	}
	return total
}

// persist writes the full line list. An empty cart deletes the key
// rather than storing an empty array.
func (c *Cart) persist() {
	if len(c.lines) == 0 {
		if err := c.store.Delete(c.key); err != nil {
			log.Printf("failed to delete cart snapshot %s: %v", c.key, err)
		}
		return
	}
	data, err := json.Marshal(c.lines)
	if err != nil {
		log.Printf("failed to serialize cart %s: %v", c.key, err)
		return
	}
	if err := c.store.Save(c.key, data); err != nil {
		log.Printf("failed to persist cart snapshot %s: %v", c.key, err)
	}
}

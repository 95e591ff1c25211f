package tracker

import "sync"

// MemoryBackend keeps the record in process memory. Used for tests and
// for `storage.type: memory`, where nothing survives a restart.
type MemoryBackend struct {
	mu    sync.Mutex
	cfg   *Configuration
	saves int
}

// NewMemoryBackend returns a backend seeded with cfg (nil means empty).
func NewMemoryBackend(cfg *Configuration) *MemoryBackend {
	b := &MemoryBackend{}
	if cfg != nil {
		b.cfg = cfg.Clone()
	}
	return b
}

// Load returns a copy of the stored record.
func (b *MemoryBackend) Load() (*Configuration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg == nil {
		return NewConfiguration(), nil
	}
	return b.cfg.Clone(), nil
}

// Save stores a copy of cfg.
func (b *MemoryBackend) Save(cfg *Configuration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg.Clone()
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }

package memory

import (
	"context"
	"sync"

	"github.com/aretw0/procmeta/pkg/domain"
)

// Preferences implements ports.PreferenceStore in memory.
// Safe for concurrent use.
type Preferences struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewPreferences creates an empty preference store.
func NewPreferences() *Preferences {
	return &Preferences{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value.
func (p *Preferences) Get(ctx context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	v, ok := p.data[key]
	if !ok {
		return nil, domain.ErrPreferenceNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (p *Preferences) Set(ctx context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the value.
func (p *Preferences) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

package ports

import "context"

// PreferenceStore persists small client-side values such as the last selection
// and the theme. Values are opaque bytes.
type PreferenceStore interface {
	// Get returns domain.ErrPreferenceNotFound when key was never set.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error

	// Delete is a no-op for unknown keys.
	Delete(ctx context.Context, key string) error
}

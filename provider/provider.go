package provider

import "context"

// Provider is the base interface all backends must implement.
type Provider interface {
	// Name returns the backend's unique name.
	Name() string
	// IsAvailable reports whether the backend is ready to handle requests.
	// Capability checks in the attribution engine go through this method
	// rather than probing for installed libraries.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a backend instance from a generic config map.
type Factory[T Provider] func(cfg map[string]any) (T, error)

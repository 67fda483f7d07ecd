package config

import (
	"context"
	"sync"

	"shiftgate/internal/geofence"
)

// MemoryProvider is an in-process provider for tests and single-node
// deployments without Redis.
type MemoryProvider struct {
	mu  sync.RWMutex
	cfg geofence.Config
}

func NewMemoryProvider(cfg geofence.Config) *MemoryProvider {
	return &MemoryProvider{cfg: cfg}
}

func (p *MemoryProvider) Load(_ context.Context) (geofence.Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, nil
}

// Set replaces the stored configuration. Live sessions keep the config they
// loaded; a change takes effect on the next session.
func (p *MemoryProvider) Set(cfg geofence.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

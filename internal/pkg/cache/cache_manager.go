package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-nightout/internal/app/models"
)

// Manager owns the provider response caches shared by the services.
type Manager struct {
	Directions *UnifiedCache[models.Directions]
}

// NewManager creates the caches with their default TTLs.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		Directions: NewUnifiedCache[models.Directions](30*time.Minute, "directions", logger),
	}
}

// Stats reports every cache's counters keyed by cache name.
func (m *Manager) Stats() map[string]Stats {
	return map[string]Stats{
		"directions": m.Directions.Stats(),
	}
}

// Close stops all cache janitors.
func (m *Manager) Close() {
	m.Directions.Close()
}

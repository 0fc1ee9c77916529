package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/partident/internal/models"
)

// Repository is the persistence the catalog reads from and writes to.
type Repository interface {
	ListCatalog(ctx context.Context) ([]models.CatalogItem, error)
	UpsertCatalogRows(ctx context.Context, rows []models.CatalogItem) error
}

// Store caches the persisted catalog for the process.
// It is only ever replaced wholesale by Refresh.
type Store struct {
	repo  Repository
	items []models.CatalogItem
	mu    sync.RWMutex
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// Snapshot returns a copy of the cached catalog.
func (s *Store) Snapshot() []models.CatalogItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.CatalogItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Refresh reloads the catalog from persistence. On failure the previous snapshot is kept.
func (s *Store) Refresh(ctx context.Context) error {
	items, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	slog.Debug("Catalog refreshed", "items", len(items))
	return nil
}

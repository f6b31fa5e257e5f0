package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/safetyfirst/backend/internal/models"
)

type LocationStore interface {
	ListActiveLocations(ctx context.Context) ([]models.PlantLocation, error)
	UpsertLocation(ctx context.Context, loc *models.PlantLocation) error
}

type LocationService struct {
	store LocationStore
}

func NewLocationService(store LocationStore) *LocationService {
	return &LocationService{store: store}
}

// ListActive returns active locations sorted by Hebrew name.
func (s *LocationService) ListActive(ctx context.Context) ([]models.PlantLocation, error) {
	return s.store.ListActiveLocations(ctx)
}

// Ensure creates or reactivates each named location.
func (s *LocationService) Ensure(ctx context.Context, names []string) (int, error) {
	n := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		loc := models.PlantLocation{NameHe: name, IsActive: true}
		if err := s.store.UpsertLocation(ctx, &loc); err != nil {
			return n, fmt.Errorf("ensure location %q: %w", name, err)
		}
		n++
	}
	return n, nil
}

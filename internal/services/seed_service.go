package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"intranet/internal/models"
	"intranet/internal/store"
)

// SeedService loads initial records from portal settings into empty collections
type SeedService struct {
	store       store.Store
	collections *CollectionService
}

// NewSeedService creates a new seed service
func NewSeedService(s store.Store, collections *CollectionService) *SeedService {
	return &SeedService{store: s, collections: collections}
}

// Apply inserts the seed records of every collection that is still empty and
// returns the number of records written. Records carrying an "id" keep it.
func (s *SeedService) Apply(ctx context.Context, seed map[string][]map[string]interface{}) (int, error) {
	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	written := 0
	for _, name := range names {
		def, generic := models.LookupCollection(name)
		if !generic && name != models.CollectionConfig {
			log.Printf("⚠️  [SEED] Collection %s cannot be seeded, skipping", name)
			continue
		}

		existing, err := s.store.List(ctx, name)
		if err != nil {
			return written, fmt.Errorf("failed to inspect %s: %w", name, err)
		}
		if len(existing) > 0 {
			continue
		}

		for i, raw := range seed[name] {
			record := store.Record(raw)
			id, _ := record["id"].(string)

			if generic {
				canonical, err := s.collections.canonicalize(def, record)
				if err != nil {
					return written, fmt.Errorf("invalid seed record %s[%d]: %w", name, i, err)
				}
				record = canonical
				if def.KeyField != "" {
					id, _ = record[def.KeyField].(string)
				}
			}

			if id != "" {
				_, err = s.store.Set(ctx, name, id, record)
			} else {
				_, err = s.store.Add(ctx, name, record)
			}
			if err != nil {
				return written, fmt.Errorf("failed to seed %s: %w", name, err)
			}
			written++
		}
		log.Printf("🌱 [SEED] Seeded %s with %d records", name, len(seed[name]))
	}
	return written, nil
}

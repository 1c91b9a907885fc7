package store

import (
	"context"
	"fmt"
	"log"

	"intranet/internal/config"
	"intranet/internal/database"
	"intranet/internal/models"
)

// Pinger is implemented by backends that can report connection health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open builds the backend selected by STORE_BACKEND
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "local", "":
		s, err := NewLocalStore(cfg.LocalStoreDir)
		if err != nil {
			return nil, err
		}
		if err := s.Watch(); err != nil {
			log.Printf("⚠️  [STORE] External edits will not be picked up: %v", err)
		}
		log.Printf("✅ [STORE] Using local JSON store at %s", cfg.LocalStoreDir)
		return s, nil

	case "mongo", "mongodb":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is required for the mongo backend")
		}
		db, err := database.NewMongoDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureIndexes(ctx, mongoIndexes()); err != nil {
			log.Printf("⚠️  [STORE] Failed to create indexes: %v", err)
		}
		s := NewMongoStore(db)
		s.owned = true
		log.Printf("✅ [STORE] Using MongoDB store (%s)", db.Name())
		return s, nil

	case "sql":
		db, err := database.OpenSQL(cfg.SQLDSN)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Printf("✅ [STORE] Using %s store", db.Dialect)
		return s, nil
	}

	return nil, fmt.Errorf("unknown STORE_BACKEND %q (expected local, mongo or sql)", cfg.StoreBackend)
}

func mongoIndexes() []database.IndexSpec {
	specs := []database.IndexSpec{
		{Collection: models.CollectionAuditLogs, Field: "timestamp", Descending: true},
		{Collection: models.CollectionAuditLogs, Field: "eventType"},
		{Collection: models.CollectionUsers, Field: "email", Unique: true},
	}
	for _, name := range models.CollectionNames() {
		def, _ := models.LookupCollection(name)
		if def.SortField != "" {
			specs = append(specs, database.IndexSpec{Collection: name, Field: def.SortField, Descending: def.SortDesc})
		}
	}
	return specs
}

package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoDBName = "intranet"

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// IndexSpec declares a single-field index on a portal collection
type IndexSpec struct {
	Collection string
	Field      string
	Unique     bool
	Descending bool
}

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(ctx context.Context, uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("✅ Connected to MongoDB database: %s", dbName)
	return db, nil
}

// extractDBName returns the path component of a mongodb:// or mongodb+srv:// URI
func extractDBName(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDBName
	}
	if name := strings.Trim(parsed.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDBName
}

// EnsureIndexes creates the given indexes, grouped by collection
func (m *MongoDB) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	log.Println("📦 Initializing MongoDB indexes...")

	grouped := make(map[string][]mongo.IndexModel)
	for _, spec := range specs {
		order := 1
		if spec.Descending {
			order = -1
		}
		model := mongo.IndexModel{Keys: bson.D{{Key: spec.Field, Value: order}}}
		if spec.Unique {
			model.Options = options.Index().SetUnique(true)
		}
		grouped[spec.Collection] = append(grouped[spec.Collection], model)
	}

	for name, models := range grouped {
		if _, err := m.database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}

	log.Println("✅ MongoDB indexes initialized successfully")
	return nil
}

// Collection returns a collection handle
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Name returns the database name
func (m *MongoDB) Name() string {
	return m.dbName
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	log.Println("🔌 Closing MongoDB connection...")
	return m.client.Disconnect(ctx)
}

// Ping checks if the database connection is alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"intranet/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps each portal collection in a MongoDB collection, using
// the record id as _id.
type MongoStore struct {
	db    *database.MongoDB
	hub   *Hub
	owned bool
}

// NewMongoStore creates a store over an open MongoDB connection
func NewMongoStore(db *database.MongoDB) *MongoStore {
	s := &MongoStore{db: db}
	s.hub = NewHub(s.List)
	return s
}

// Backend implements Store
func (s *MongoStore) Backend() string { return "mongo" }

// Hub implements Store
func (s *MongoStore) Hub() *Hub { return s.hub }

// List implements Store
func (s *MongoStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collection, err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		record, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Get implements Store
func (s *MongoStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return fromDocument(doc)
}

// Add implements Store
func (s *MongoStore) Add(ctx context.Context, collection string, data Record) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	clean, err := normalize(data)
	if err != nil {
		return nil, err
	}

	id := NewID()
	if _, err := s.db.Collection(collection).InsertOne(ctx, toDocument(clean, id)); err != nil {
		return nil, fmt.Errorf("failed to add to %s: %w", collection, err)
	}

	s.hub.Notify(ctx, collection, OpAdd, id)
	return withID(clean, id), nil
}

// Set implements Store
func (s *MongoStore) Set(ctx context.Context, collection, id string, data Record) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.New("record id is required")
	}

	clean, err := normalize(data)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, toDocument(clean, id), options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}

	s.hub.Notify(ctx, collection, OpSet, id)
	return withID(clean, id), nil
}

// Update implements Store
func (s *MongoStore) Update(ctx context.Context, collection, id string, patch Record) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	clean, err := normalize(patch)
	if err != nil {
		return err
	}

	coll := s.db.Collection(collection)
	if len(clean) == 0 {
		// $set rejects an empty document; only check existence
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	result, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(clean)})
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}

	s.hub.Notify(ctx, collection, OpUpdate, id)
	return nil
}

// Delete implements Store
func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	s.hub.Notify(ctx, collection, OpDelete, id)
	return nil
}

// Subscribe implements Store
func (s *MongoStore) Subscribe(collection string, onChange func(Snapshot)) func() {
	return s.hub.Subscribe(collection, onChange)
}

// Ping checks the MongoDB connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close implements Store. The connection is closed only when the store was
// opened through Open.
func (s *MongoStore) Close(ctx context.Context) error {
	s.hub.Close()
	if s.owned {
		return s.db.Close(ctx)
	}
	return nil
}

func toDocument(clean Record, id string) bson.M {
	doc := make(bson.M, len(clean)+1)
	for k, v := range clean {
		doc[k] = v
	}
	doc["_id"] = id
	return doc
}

// fromDocument converts a decoded BSON document into a JSON-shaped record
func fromDocument(doc bson.M) (Record, error) {
	id := fmt.Sprint(doc["_id"])
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	delete(doc, "_id")

	raw, err := json.Marshal(plainValue(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert document %s: %w", id, err)
	}

	record := Record{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to convert document %s: %w", id, err)
	}
	record["id"] = id
	return record, nil
}

// plainValue unwraps BSON container and scalar types into plain Go values
func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return plainValue(map[string]interface{}(val))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = plainValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case bson.A:
		return plainValue([]interface{}(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	}
	return v
}

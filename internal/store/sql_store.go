package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intranet/internal/database"
)

const recordsTable = "portal_records"

// SQLStore keeps every collection in one table of JSON documents
type SQLStore struct {
	db  *database.SQLDB
	hub *Hub
}

// NewSQLStore creates the records table if needed and returns the store
func NewSQLStore(ctx context.Context, db *database.SQLDB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	s.hub = NewHub(s.List)

	if _, err := db.ExecContext(ctx, createTableSQL(db.Dialect)); err != nil {
		return nil, fmt.Errorf("failed to create %s table: %w", recordsTable, err)
	}
	return s, nil
}

func createTableSQL(dialect string) string {
	switch dialect {
	case database.DialectMySQL:
		return `CREATE TABLE IF NOT EXISTS portal_records (
			collection VARCHAR(64) NOT NULL,
			id VARCHAR(64) NOT NULL,
			data LONGTEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (collection, id)
		)`
	case database.DialectPostgres:
		return `CREATE TABLE IF NOT EXISTS portal_records (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			PRIMARY KEY (collection, id)
		)`
	default:
		return `CREATE TABLE IF NOT EXISTS portal_records (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (collection, id)
		)`
	}
}

// Backend implements Store
func (s *SQLStore) Backend() string { return "sql" }

// Hub implements Store
func (s *SQLStore) Hub() *Hub { return s.hub }

// List implements Store
func (s *SQLStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(
		"SELECT id, data FROM portal_records WHERE collection = ? ORDER BY created_at, id"), collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		record, err := decodeRow(id, data)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return records, nil
}

// Get implements Store
func (s *SQLStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	data, err := s.getData(ctx, s.db.DB, collection, id)
	if err != nil {
		return nil, err
	}
	return decodeRow(id, data)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) getData(ctx context.Context, q queryer, collection, id string) (string, error) {
	var data string
	err := q.QueryRowContext(ctx, s.db.Rebind(
		"SELECT data FROM portal_records WHERE collection = ? AND id = ?"), collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return data, nil
}

// Add implements Store
func (s *SQLStore) Add(ctx context.Context, collection string, data Record) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	clean, err := normalize(data)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	id := NewID()
	now := time.Now().UnixNano()
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO portal_records (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"),
		collection, id, string(raw), now, now); err != nil {
		return nil, fmt.Errorf("failed to add to %s: %w", collection, err)
	}

	s.hub.Notify(ctx, collection, OpAdd, id)
	return withID(clean, id), nil
}

// Set implements Store
func (s *SQLStore) Set(ctx context.Context, collection, id string, data Record) (Record, error) {
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
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	now := time.Now().UnixNano()
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE portal_records SET data = ?, updated_at = ? WHERE collection = ? AND id = ?"),
		string(raw), now, collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(
			"INSERT INTO portal_records (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"),
			collection, id, string(raw), now, now); err != nil {
			return nil, fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
		}
	}

	s.hub.Notify(ctx, collection, OpSet, id)
	return withID(clean, id), nil
}

// Update implements Store
func (s *SQLStore) Update(ctx context.Context, collection, id string, patch Record) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	clean, err := normalize(patch)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	data, err := s.getData(ctx, tx, collection, id)
	if err != nil {
		return err
	}

	current := Record{}
	if err := json.Unmarshal([]byte(data), &current); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}

	raw, err := json.Marshal(merge(current, clean))
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(
		"UPDATE portal_records SET data = ?, updated_at = ? WHERE collection = ? AND id = ?"),
		string(raw), time.Now().UnixNano(), collection, id); err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}

	s.hub.Notify(ctx, collection, OpUpdate, id)
	return nil
}

// Delete implements Store
func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		"DELETE FROM portal_records WHERE collection = ? AND id = ?"), collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	s.hub.Notify(ctx, collection, OpDelete, id)
	return nil
}

// Subscribe implements Store
func (s *SQLStore) Subscribe(collection string, onChange func(Snapshot)) func() {
	return s.hub.Subscribe(collection, onChange)
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store and closes the database handle
func (s *SQLStore) Close(ctx context.Context) error {
	s.hub.Close()
	return s.db.Close()
}

func decodeRow(id, data string) (Record, error) {
	record := Record{}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	record["id"] = id
	return record, nil
}

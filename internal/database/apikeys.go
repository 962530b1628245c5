package database

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// APIKey is a named, bcrypt-hashed client credential.
type APIKey struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	KeyHash   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// InsertAPIKey stores a new key under name, hashing the plaintext with bcrypt.
func (db *DB) InsertAPIKey(name, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash API key: %w", err)
	}

	start := time.Now()
	_, err = db.conn.Exec(
		`INSERT INTO api_keys (name, key_hash) VALUES (?, ?)`,
		name, string(hash),
	)
	recordQuery("insert_api_key", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert API key %q: %w", name, err)
	}
	return nil
}

// ListAPIKeys returns all stored keys (hashes included, for verification).
func (db *DB) ListAPIKeys() ([]*APIKey, error) {
	start := time.Now()

	rows, err := db.conn.Query(`SELECT id, name, key_hash, created_at FROM api_keys ORDER BY name`)
	recordQuery("list_api_keys", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan API key row: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// DeleteAPIKey removes the key with the given name. Deleting a missing
// name is not an error.
func (db *DB) DeleteAPIKey(name string) error {
	start := time.Now()
	_, err := db.conn.Exec(`DELETE FROM api_keys WHERE name = ?`, name)
	recordQuery("delete_api_key", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete API key %q: %w", name, err)
	}
	return nil
}

// VerifyAPIKey reports whether plaintext matches any stored key hash.
func (db *DB) VerifyAPIKey(plaintext string) (bool, error) {
	keys, err := db.ListAPIKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(plaintext)) == nil {
			return true, nil
		}
	}
	return false, nil
}

// HasAPIKeys reports whether any keys are configured. When none are,
// authentication is open.
func (db *DB) HasAPIKeys() (bool, error) {
	keys, err := db.ListAPIKeys()
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

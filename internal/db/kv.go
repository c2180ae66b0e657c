package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when a key has never been set.
var ErrNotFound = errors.New("key not found")

// KV is the storage contract the engine depends on. There are no
// transactions; callers serialize their own read-modify-write sequences.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Swapper is a KV that can replace a value only if nobody changed it since
// it was read. An empty old value means the key must not exist yet.
type Swapper interface {
	Swap(key, old, new string) (bool, error)
}

var (
	_ KV      = (*DB)(nil)
	_ Swapper = (*DB)(nil)
)

func (d *DB) Get(key string) (string, error) {
	var value string
	err := d.sql.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (d *DB) Set(key, value string) error {
	_, err := d.sql.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (d *DB) Delete(key string) error {
	if _, err := d.sql.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Swap writes new at key if the stored value is still old. Each statement is
// atomic in sqlite, so this holds across processes sharing the file.
func (d *DB) Swap(key, old, new string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	var (
		res sql.Result
		err error
	)
	if old == "" {
		res, err = d.sql.Exec(
			`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING`,
			key, new, now,
		)
	} else {
		res, err = d.sql.Exec(
			`UPDATE kv SET value = ?, updated_at = ? WHERE key = ? AND value = ?`,
			new, now, key, old,
		)
	}
	if err != nil {
		return false, fmt.Errorf("swap %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap %q: %w", key, err)
	}
	return n == 1, nil
}

// Keys lists every key starting with prefix, in ascending order.
func (d *DB) Keys(prefix string) ([]string, error) {
	rows, err := d.sql.Query(
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetJSON decodes the value stored at key into v.
func GetJSON(kv KV, key string, v any) error {
	raw, err := kv.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %q: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return kv.Set(key, string(b))
}

package database

import (
	"database/sql"
	"time"
)

// CartSnapshotStore persists cart snapshots in MySQL, one row per
// namespaced key. It satisfies cart.SnapshotStore.
type CartSnapshotStore struct {
	db *sql.DB
}

func NewCartSnapshotStore(db *sql.DB) *CartSnapshotStore {
	return &CartSnapshotStore{db: db}
}

func (s *CartSnapshotStore) Load(key string) ([]byte, bool) {
	var data string
	err := s.db.QueryRow("SELECT data FROM cart_snapshots WHERE snapshot_key = ?", key).Scan(&data)
	if err != nil {
		return nil, false
	}
	return []byte(data), true
}

func (s *CartSnapshotStore) Save(key string, data []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO cart_snapshots (snapshot_key, data, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)",
		key, string(data), time.Now().UTC(),
	)
	return err
}

func (s *CartSnapshotStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM cart_snapshots WHERE snapshot_key = ?", key)
	return err
}

// SeenFlagStore persists one-shot flags. It satisfies
// session.FlagStore.
type SeenFlagStore struct {
	db *sql.DB
}

func NewSeenFlagStore(db *sql.DB) *SeenFlagStore {
	return &SeenFlagStore{db: db}
}

func (s *SeenFlagStore) Seen(key string) bool {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM seen_flags WHERE flag_key = ?", key).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

func (s *SeenFlagStore) MarkSeen(key string) {
	_, _ = s.db.Exec(
		"INSERT IGNORE INTO seen_flags (flag_key, created_at) VALUES (?, ?)",
		key, time.Now().UTC(),
	)
}

// Package store persists the two pieces of client state that must survive a
// process restart: the auth token and a pending-join club id. Everything
// else is memory-resident and rebuilt from the server.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketAuth    = []byte("auth")
	bucketIntents = []byte("intents")
)

const (
	keyToken       = "access_token"
	keyPendingJoin = "pending_join_club"
)

// StateStore implements durable local state using BoltDB, with an in-memory
// overlay so reads after the first do not touch disk.
type StateStore struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// Open creates a StateStore rooted at dir. An empty dir selects memory-only
// mode (no persistence), which tests rely on.
func Open(dir string) (*StateStore, error) {
	if dir == "" {
		return &StateStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "reelclub.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAuth, bucketIntents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &StateStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *StateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *StateStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *StateStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *StateStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Auth token ===

// Token returns the persisted token, if any.
func (s *StateStore) Token() (string, bool) {
	var token string
	if !s.get(bucketAuth, keyToken, &token) || token == "" {
		return "", false
	}
	return token, true
}

// SaveToken persists the token under the fixed storage key.
func (s *StateStore) SaveToken(token string) error {
	return s.set(bucketAuth, keyToken, token)
}

// ClearToken removes the persisted token.
func (s *StateStore) ClearToken() {
	s.delete(bucketAuth, keyToken)
}

// === Pending join intent ===

// SetPendingJoin records that the user attempted to join clubID before
// authenticating. Survives restart; consumed at most once.
func (s *StateStore) SetPendingJoin(clubID int) error {
	return s.set(bucketIntents, keyPendingJoin, clubID)
}

// TakePendingJoin returns and deletes the pending-join intent. Deletion
// happens before the caller acts on it, so the replay runs at most once.
func (s *StateStore) TakePendingJoin() (int, bool) {
	var clubID int
	if !s.get(bucketIntents, keyPendingJoin, &clubID) || clubID == 0 {
		return 0, false
	}
	s.delete(bucketIntents, keyPendingJoin)
	return clubID, true
}

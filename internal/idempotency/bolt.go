package idempotency

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "idempotency_keys"

// BoltStore keeps records in an embedded BoltDB file. It suits single-instance
// deployments that run without Redis. Expired records are ignored on read and
// removed by Purge.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltStore opens (or creates) the database at path and ensures the bucket
// exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Reserve runs in a single read-write transaction; bolt allows one writer at
// a time, so the check and the claim cannot interleave.
func (s *BoltStore) Reserve(ctx context.Context, key string, ttl time.Duration) (*Record, error) {
	var existing *Record

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if v := b.Get([]byte(key)); v != nil {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if s.now().Before(rec.ExpiresAt) {
				existing = &rec
				return nil
			}
		}

		data, err := json.Marshal(Record{Pending: true, ExpiresAt: s.now().Add(ttl)})
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *BoltStore) Save(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	rec.Pending = false
	rec.ExpiresAt = s.now().Add(ttl)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

func (s *BoltStore) Release(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Purge deletes expired records and reports how many were removed.
func (s *BoltStore) Purge(ctx context.Context) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil || !s.now().Before(rec.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

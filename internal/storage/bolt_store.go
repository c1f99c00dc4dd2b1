package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

const couponBucket = "coupons"

// boltStore implements Store backed by BoltDB, with JSON record values
// keyed by external id.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(couponBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get returns the record for the given external id.
func (b *boltStore) Get(externalID string) (domain.Record, bool, error) {
	var rec domain.Record
	var found bool

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(couponBucket))
		if bucket == nil {
			return fmt.Errorf("coupon bucket missing")
		}
		value := bucket.Get([]byte(externalID))
		if value == nil {
			return nil
		}
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode record %s: %w", externalID, err)
		}
		found = true
		return nil
	})
	return rec, found, err
}

// Create inserts a new record, refusing to overwrite an existing one.
func (b *boltStore) Create(rec domain.Record) error {
	if rec.ExternalID == "" {
		return fmt.Errorf("record external_id is empty")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(couponBucket))
		if bucket == nil {
			return fmt.Errorf("coupon bucket missing")
		}
		key := []byte(rec.ExternalID)
		if bucket.Get(key) != nil {
			return fmt.Errorf("create %s: %w", rec.ExternalID, ErrExists)
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ExternalID, err)
		}
		return bucket.Put(key, value)
	})
}

// Update overwrites an existing record.
func (b *boltStore) Update(rec domain.Record) error {
	if rec.ExternalID == "" {
		return fmt.Errorf("record external_id is empty")
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(couponBucket))
		if bucket == nil {
			return fmt.Errorf("coupon bucket missing")
		}
		key := []byte(rec.ExternalID)
		if bucket.Get(key) == nil {
			return fmt.Errorf("update %s: %w", rec.ExternalID, ErrNotFound)
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ExternalID, err)
		}
		return bucket.Put(key, value)
	})
}

// Delete removes a record by external id.
func (b *boltStore) Delete(externalID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(couponBucket))
		if bucket == nil {
			return fmt.Errorf("coupon bucket missing")
		}
		return bucket.Delete([]byte(externalID))
	})
}

// ListByStatus returns up to limit records in the given status,
// oldest-imported-first.
func (b *boltStore) ListByStatus(status domain.Status, limit int) ([]domain.Record, error) {
	records, err := b.scan(func(rec domain.Record) bool { return rec.Status == status })
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// All returns every stored record, oldest-imported-first.
func (b *boltStore) All() ([]domain.Record, error) {
	return b.scan(func(domain.Record) bool { return true })
}

func (b *boltStore) scan(keep func(domain.Record) bool) ([]domain.Record, error) {
	var records []domain.Record

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(couponBucket))
		if bucket == nil {
			return fmt.Errorf("coupon bucket missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec domain.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", string(k), err)
			}
			if keep(rec) {
				records = append(records, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ImportedAt.Before(records[j].ImportedAt)
	})
	return records, nil
}

package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

// Package storage provides the local coupon record store.

// ErrNotFound is returned when a record does not exist for an external id.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned when creating a record whose external id is taken.
var ErrExists = errors.New("record already exists")

// Store persists coupon records keyed by external id. Records are created
// once on first import and destroyed only by explicit cleanup; callers
// serialize writers per external id space (single active import run).
type Store interface {
	Close() error

	// Get returns the record for the external id when present.
	Get(externalID string) (domain.Record, bool, error)

	// Create inserts a new record; ErrExists when the id is taken.
	Create(rec domain.Record) error

	// Update overwrites an existing record; ErrNotFound when absent.
	Update(rec domain.Record) error

	// Delete removes a record; deleting an absent id is a no-op.
	Delete(externalID string) error

	// ListByStatus returns up to limit records in the given status, ordered
	// oldest-imported-first. limit <= 0 means no limit.
	ListByStatus(status domain.Status, limit int) ([]domain.Record, error)

	// All returns every stored record, ordered oldest-imported-first.
	All() ([]domain.Record, error)
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                                 { return nil }
func (noopStore) Get(string) (domain.Record, bool, error)      { return domain.Record{}, false, nil }
func (noopStore) Create(domain.Record) error                   { return nil }
func (noopStore) Update(domain.Record) error                   { return nil }
func (noopStore) Delete(string) error                          { return nil }
func (noopStore) ListByStatus(domain.Status, int) ([]domain.Record, error) { return nil, nil }
func (noopStore) All() ([]domain.Record, error)                { return nil, nil }

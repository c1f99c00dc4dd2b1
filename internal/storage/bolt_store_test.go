package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

func testRecord(id string, status domain.Status, importedAt time.Time) domain.Record {
	return domain.Record{
		Coupon: domain.Coupon{
			ExternalID: id,
			Title:      "10% Off Shoes",
			Link:       "https://example.com/offer",
		},
		Provider:   "awin",
		Status:     status,
		ImportedAt: importedAt,
	}
}

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := openBolt(t.TempDir() + "/coupons.db")
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreCreateAndGet(t *testing.T) {
	store := openTestStore(t)

	rec := testRecord("awin_1", domain.StatusPending, time.Now().UTC())
	if err := store.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, found, err := store.Get("awin_1")
	if err != nil || !found {
		t.Fatalf("Get found=%v err=%v", found, err)
	}
	if got.Title != rec.Title || got.Status != domain.StatusPending {
		t.Fatalf("unexpected record: %+v", got)
	}

	_, found, err = store.Get("awin_missing")
	if err != nil || found {
		t.Fatalf("expected missing record, found=%v err=%v", found, err)
	}
}

func TestBoltStoreCreateRefusesOverwrite(t *testing.T) {
	store := openTestStore(t)

	rec := testRecord("awin_1", domain.StatusPending, time.Now().UTC())
	if err := store.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec.Title = "changed"
	err := store.Create(rec)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, _, err := store.Get("awin_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "10% Off Shoes" {
		t.Fatalf("existing record content was mutated: %q", got.Title)
	}
}

func TestBoltStoreUpdateRequiresExisting(t *testing.T) {
	store := openTestStore(t)

	rec := testRecord("rakuten_9", domain.StatusPending, time.Now().UTC())
	if err := store.Update(rec); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec.Status = domain.StatusApproved
	if err := store.Update(rec); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _, _ := store.Get("rakuten_9")
	if got.Status != domain.StatusApproved {
		t.Fatalf("status not updated: %s", got.Status)
	}
}

func TestBoltStoreListByStatusOrdersOldestFirst(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []domain.Record{
		testRecord("awin_b", domain.StatusApproved, base.Add(2*time.Hour)),
		testRecord("awin_a", domain.StatusApproved, base),
		testRecord("awin_c", domain.StatusApproved, base.Add(time.Hour)),
		testRecord("awin_d", domain.StatusPending, base),
	}
	for _, rec := range records {
		if err := store.Create(rec); err != nil {
			t.Fatalf("Create %s: %v", rec.ExternalID, err)
		}
	}

	approved, err := store.ListByStatus(domain.StatusApproved, 2)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(approved) != 2 {
		t.Fatalf("expected 2 records, got %d", len(approved))
	}
	if approved[0].ExternalID != "awin_a" || approved[1].ExternalID != "awin_c" {
		t.Fatalf("wrong ordering: %s, %s", approved[0].ExternalID, approved[1].ExternalID)
	}
}

func TestBoltStoreDelete(t *testing.T) {
	store := openTestStore(t)

	rec := testRecord("awin_1", domain.StatusRejected, time.Now().UTC())
	if err := store.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete("awin_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := store.Get("awin_1"); found {
		t.Fatalf("record still present after delete")
	}
	// Deleting an absent id is a no-op.
	if err := store.Delete("awin_1"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "")
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Create(domain.Record{}); err != nil {
		t.Fatalf("noop store Create: %v", err)
	}
}

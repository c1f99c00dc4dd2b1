package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PurgeExpired deletes records whose expiration date lies strictly before
// today. Records without an expiration date are kept. Returns the number of
// deleted records.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	records, err := s.store.All()
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	today := s.now().UTC().Format("2006-01-02")
	deleted := 0
	for _, rec := range records {
		if rec.Expiration == "" || rec.Expiration >= today {
			continue
		}
		if err := s.store.Delete(rec.ExternalID); err != nil {
			return deleted, fmt.Errorf("delete expired %s: %w", rec.ExternalID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.log.InfoObj("expired coupons purged", "cleanup", map[string]any{
			"deleted": deleted,
			"cutoff":  today,
		})
	}
	return deleted, nil
}

// PurgeDuplicates deletes records sharing the same title, advertiser and code
// as an earlier import, keeping the oldest of each group. Returns the number
// of deleted records.
func (s *Service) PurgeDuplicates(ctx context.Context) (int, error) {
	records, err := s.store.All()
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	type dupKey struct{ title, advertiser, code string }
	oldest := make(map[dupKey]time.Time, len(records))
	keyFor := func(title, advertiser, code string) dupKey {
		return dupKey{
			title:      strings.ToLower(strings.TrimSpace(title)),
			advertiser: strings.ToLower(strings.TrimSpace(advertiser)),
			code:       strings.ToLower(strings.TrimSpace(code)),
		}
	}

	for _, rec := range records {
		k := keyFor(rec.Title, rec.Advertiser, rec.Code)
		if at, ok := oldest[k]; !ok || rec.ImportedAt.Before(at) {
			oldest[k] = rec.ImportedAt
		}
	}

	deleted := 0
	for _, rec := range records {
		k := keyFor(rec.Title, rec.Advertiser, rec.Code)
		if rec.ImportedAt.Equal(oldest[k]) {
			continue
		}
		if err := s.store.Delete(rec.ExternalID); err != nil {
			return deleted, fmt.Errorf("delete duplicate %s: %w", rec.ExternalID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.log.InfoObj("duplicate coupons purged", "cleanup", map[string]any{
			"deleted": deleted,
		})
	}
	return deleted, nil
}

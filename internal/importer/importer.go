package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/internal/storage"
	"github.com/setek-hq/coupon-harvester/pkg/providers"
)

// Service coordinates coupon imports across the configured providers.
type Service struct {
	fetchers providers.FetcherSet
	store    storage.Store
	log      logger.Logger
	now      func() time.Time
}

// NewService wires the importer with the provider adapters and record store.
func NewService(fetchers providers.FetcherSet, store storage.Store, log logger.Logger) *Service {
	return &Service{
		fetchers: fetchers,
		store:    store,
		log:      logger.Ensure(log),
		now:      time.Now,
	}
}

// Import persists one canonical coupon. When a record with the same external
// id already exists the call is an idempotent no-op returning the existing
// identity with created=false; stored content is never overwritten on
// re-import.
func (s *Service) Import(ctx context.Context, coupon domain.Coupon, provider string) (id string, created bool, err error) {
	if coupon.ExternalID == "" {
		return "", false, fmt.Errorf("coupon has no external_id, skipping import")
	}

	existing, found, err := s.store.Get(coupon.ExternalID)
	if err != nil {
		return "", false, fmt.Errorf("lookup %s: %w", coupon.ExternalID, err)
	}
	if found {
		s.log.InfoObj("coupon already imported", "existing_coupon", map[string]any{
			"external_id": existing.ExternalID,
			"title":       existing.Title,
		})
		return existing.ExternalID, false, nil
	}

	rec := domain.Record{
		Coupon:     coupon,
		Provider:   provider,
		Status:     domain.StatusPending,
		ImportedAt: s.now().UTC(),
	}
	if err := s.store.Create(rec); err != nil {
		return "", false, fmt.Errorf("create %s: %w", coupon.ExternalID, err)
	}

	s.log.InfoObj("coupon imported", "imported_coupon", map[string]any{
		"external_id": rec.ExternalID,
		"provider":    provider,
		"title":       rec.Title,
	})
	return rec.ExternalID, true, nil
}

// RunOnce executes an import pass for every cron-enabled provider. A single
// provider's failure is logged and never blocks the others.
func (s *Service) RunOnce(ctx context.Context, settings []providers.Settings) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("importer service is not initialized")
	}
	if len(settings) == 0 {
		return fmt.Errorf("no providers configured for import")
	}

	var errs []error
	for _, st := range settings {
		if !st.EnableCron {
			s.log.DebugObj("provider cron disabled, skipping", "provider", st.Provider)
			continue
		}
		if err := s.runProvider(ctx, st); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("provider import failed", "provider_error", map[string]any{
				"provider": st.Provider,
				"error":    err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runProvider(ctx context.Context, st providers.Settings) error {
	fetcher, err := s.fetchers.For(st.Provider)
	if err != nil {
		return fmt.Errorf("resolve fetcher for provider %s: %w", st.Provider, err)
	}
	if err := fetcher.ValidateSettings(st); err != nil {
		return fmt.Errorf("invalid settings for provider %s: %w", st.Provider, err)
	}

	coupons, err := fetcher.Coupons(ctx, st, st.Limit())
	if err != nil {
		return fmt.Errorf("fetch provider %s: %w", st.Provider, err)
	}

	created, existing := 0, 0
	for _, coupon := range coupons {
		_, wasNew, err := s.Import(ctx, coupon, st.Provider)
		if err != nil {
			s.log.WarnObj("coupon import failed", "import_error", map[string]any{
				"provider":    st.Provider,
				"external_id": coupon.ExternalID,
				"error":       err.Error(),
			})
			continue
		}
		if wasNew {
			created++
		} else {
			existing++
		}
	}

	s.log.InfoObj("provider import completed", "provider_result", map[string]any{
		"provider": st.Provider,
		"fetched":  len(coupons),
		"created":  created,
		"existing": existing,
	})
	return nil
}

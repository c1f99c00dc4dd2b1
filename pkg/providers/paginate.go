package providers

import (
	"context"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
)

const maxPageSize = 100

// pageFunc fetches and parses one vendor page.
type pageFunc func(ctx context.Context, page, pageSize int) ([]domain.Coupon, error)

// paginator drives the shared sequential pagination loop. A first-page
// failure fails the whole call; a later page failure is logged and treated
// as end-of-data, returning what was accumulated. Requests are throttled by
// a fixed inter-page delay to respect upstream rate limits; pagination
// against the same provider is never concurrent.
type paginator struct {
	provider string
	pageCap  int // 0 means no cap
	delay    time.Duration
	log      logger.Logger
}

func (p paginator) run(ctx context.Context, limit int, fetch pageFunc) ([]domain.Coupon, error) {
	if limit <= 0 {
		return nil, nil
	}

	log := logger.Ensure(p.log)
	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var all []domain.Coupon
	for page := 1; ; page++ {
		coupons, err := fetch(ctx, page, pageSize)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.WarnObj("pagination aborted, keeping partial results", "page_error", map[string]any{
				"provider": p.provider,
				"page":     page,
				"error":    err.Error(),
			})
			break
		}
		if len(coupons) == 0 {
			break
		}

		all = append(all, coupons...)
		log.DebugObj("page fetched", "page_result", map[string]any{
			"provider": p.provider,
			"page":     page,
			"coupons":  len(coupons),
			"total":    len(all),
		})

		if len(all) >= limit {
			break
		}
		if len(coupons) < pageSize {
			break
		}
		if p.pageCap > 0 && page >= p.pageCap {
			log.WarnObj("provider page cap reached", "page_cap", map[string]any{
				"provider": p.provider,
				"cap":      p.pageCap,
			})
			break
		}

		if p.delay > 0 {
			timer := time.NewTimer(p.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				if len(all) > limit {
					all = all[:limit]
				}
				return all, nil
			case <-timer.C:
			}
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

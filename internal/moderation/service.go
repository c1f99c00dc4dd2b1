package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/internal/rewrite"
	"github.com/setek-hq/coupon-harvester/internal/storage"
	"github.com/setek-hq/coupon-harvester/pkg/publishers"
)

// Policy controls the automated part of the moderation flow.
type Policy struct {
	AutoPublish      bool
	AutoPublishLimit int
	RequireApproval  bool
	DeleteOnPublish  bool
}

// Service applies moderation decisions to stored coupon records and pushes
// published coupons downstream.
type Service struct {
	store  storage.Store
	gate   *rewrite.Gate
	fanout *publishers.Fanout
	policy Policy
	log    logger.Logger
	now    func() time.Time
}

// NewService wires the moderation flow over the record store.
func NewService(store storage.Store, gate *rewrite.Gate, fanout *publishers.Fanout, policy Policy, log logger.Logger) *Service {
	return &Service{
		store:  store,
		gate:   gate,
		fanout: fanout,
		policy: policy,
		log:    logger.Ensure(log),
		now:    time.Now,
	}
}

// Approve marks a pending coupon as approved.
func (s *Service) Approve(ctx context.Context, externalID string) error {
	return s.setStatus(ctx, externalID, domain.StatusApproved)
}

// Reject marks a pending coupon as rejected.
func (s *Service) Reject(ctx context.Context, externalID string) error {
	return s.setStatus(ctx, externalID, domain.StatusRejected)
}

// Ignore marks a pending coupon as ignored.
func (s *Service) Ignore(ctx context.Context, externalID string) error {
	return s.setStatus(ctx, externalID, domain.StatusIgnored)
}

func (s *Service) setStatus(ctx context.Context, externalID string, to domain.Status) error {
	rec, found, err := s.store.Get(externalID)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", externalID, err)
	}
	if !found {
		return fmt.Errorf("coupon %s: %w", externalID, storage.ErrNotFound)
	}
	if err := Transition(rec.Status, to); err != nil {
		return err
	}

	rec.Status = to
	if err := s.store.Update(rec); err != nil {
		return fmt.Errorf("update %s: %w", externalID, err)
	}
	s.log.InfoObj("coupon status changed", "moderation", map[string]any{
		"external_id": externalID,
		"status":      string(to),
	})
	return nil
}

// Publish moves an approved coupon to published, running the rewrite gate on
// its title and description and fanning the result out to the configured
// publishers. The record is deleted afterwards when the policy says so.
func (s *Service) Publish(ctx context.Context, externalID string) error {
	rec, found, err := s.store.Get(externalID)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", externalID, err)
	}
	if !found {
		return fmt.Errorf("coupon %s: %w", externalID, storage.ErrNotFound)
	}
	return s.publishRecord(ctx, rec)
}

func (s *Service) publishRecord(ctx context.Context, rec domain.Record) error {
	if err := Transition(rec.Status, domain.StatusPublished); err != nil {
		return err
	}

	if s.gate != nil {
		pctx := rewrite.Context{
			Advertiser: rec.Advertiser,
			Discount:   rec.Discount,
			Code:       rec.Code,
		}
		rec.Title = s.gate.Rewrite(ctx, rec.Title, rewrite.FieldTitle, pctx)
		rec.Description = s.gate.Rewrite(ctx, rec.Description, rewrite.FieldDescription, pctx)
	}

	rec.Status = domain.StatusPublished
	if err := s.store.Update(rec); err != nil {
		return fmt.Errorf("update %s: %w", rec.ExternalID, err)
	}

	if s.fanout != nil && s.fanout.Size() > 0 {
		delivered, err := s.fanout.Publish(ctx, publishers.NewEvent(rec))
		if err != nil {
			s.log.ErrorObj("publisher fanout reported failures", "fanout_error", map[string]any{
				"external_id": rec.ExternalID,
				"delivered":   delivered,
				"error":       err.Error(),
			})
		}
	}

	if s.policy.DeleteOnPublish {
		if err := s.store.Delete(rec.ExternalID); err != nil {
			return fmt.Errorf("delete %s after publish: %w", rec.ExternalID, err)
		}
	}

	s.log.InfoObj("coupon published", "published_coupon", map[string]any{
		"external_id": rec.ExternalID,
		"provider":    rec.Provider,
		"title":       rec.Title,
	})
	return nil
}

// AutoPublishCycle runs one pass of the scheduled publication flow. When the
// policy does not require manual approval it first promotes pending coupons,
// then publishes up to AutoPublishLimit approved coupons oldest first.
func (s *Service) AutoPublishCycle(ctx context.Context) error {
	if !s.policy.AutoPublish {
		return nil
	}

	limit := s.policy.AutoPublishLimit
	if limit <= 0 {
		limit = 10
	}

	if !s.policy.RequireApproval {
		pending, err := s.store.ListByStatus(domain.StatusPending, limit)
		if err != nil {
			return fmt.Errorf("list pending coupons: %w", err)
		}
		for _, rec := range pending {
			if err := s.setStatus(ctx, rec.ExternalID, domain.StatusApproved); err != nil {
				s.log.WarnObj("auto approve failed", "moderation_error", map[string]any{
					"external_id": rec.ExternalID,
					"error":       err.Error(),
				})
			}
		}
	}

	approved, err := s.store.ListByStatus(domain.StatusApproved, limit)
	if err != nil {
		return fmt.Errorf("list approved coupons: %w", err)
	}
	if len(approved) == 0 {
		s.log.DebugObj("no approved coupons to publish", "auto_publish", limit)
		return nil
	}

	var errs []error
	published := 0
	for _, rec := range approved {
		if err := s.publishRecord(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", rec.ExternalID, err))
			continue
		}
		published++
	}

	s.log.InfoObj("auto publish cycle completed", "auto_publish_result", map[string]any{
		"candidates": len(approved),
		"published":  published,
	})
	return errors.Join(errs...)
}

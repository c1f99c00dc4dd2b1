package publishers

import (
	"time"

	"github.com/setek-hq/coupon-harvester/internal/domain"
)

// Event represents the payload published downstream when a coupon goes live.
type Event struct {
	Provider    string        `json:"provider"`
	ExternalID  string        `json:"external_id"`
	Coupon      domain.Coupon `json:"coupon"`
	Status      string        `json:"status"`
	PublishedAt time.Time     `json:"published_at"`
}

// NewEvent constructs an Event from a stored coupon record.
func NewEvent(rec domain.Record) Event {
	return Event{
		Provider:    rec.Provider,
		ExternalID:  rec.ExternalID,
		Coupon:      rec.Coupon,
		Status:      string(rec.Status),
		PublishedAt: time.Now().UTC(),
	}
}

package domain

import "time"

// Domain contains the canonical coupon model shared by all provider adapters.

// CouponType distinguishes redeemable codes from plain offers.
type CouponType int

const (
	// TypeCouponCode marks promotions that carry a redeemable code.
	TypeCouponCode CouponType = 1
	// TypeGenericOffer marks promotions without a code.
	TypeGenericOffer CouponType = 3
)

// Coupon is the normalized record every provider adapter emits, independent
// of the vendor wire format. It is immutable once emitted by an adapter.
type Coupon struct {
	ExternalID   string     `json:"external_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Code         string     `json:"code"`
	Link         string     `json:"link"`
	Deeplink     string     `json:"deeplink"`
	Advertiser   string     `json:"advertiser"`
	AdvertiserID string     `json:"advertiser_id"`
	StartDate    string     `json:"start_date"`
	Expiration   string     `json:"expiration"`
	Discount     string     `json:"discount"`
	Category     []string   `json:"category"`
	Tags         []string   `json:"tags"`
	CouponType   CouponType `json:"coupon_type"`
	IsExclusive  bool       `json:"is_exclusive"`
}

// Valid reports whether the coupon carries the required canonical fields.
// Adapters discard invalid coupons before they reach the importer.
func (c Coupon) Valid() bool {
	return c.Title != "" && c.Link != ""
}

// HasCode reports whether the coupon carries a redeemable code.
func (c Coupon) HasCode() bool {
	return c.Code != ""
}

// Status is the moderation lifecycle state of a stored coupon record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
	StatusIgnored   Status = "ignored"
)

// Known reports whether s is one of the recognized lifecycle states.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusPublished, StatusIgnored:
		return true
	}
	return false
}

// Record is the persisted form of a coupon, keyed by ExternalID. Content
// fields are copied verbatim on first import and only ever mutated by the
// rewrite path; Status is only mutated by the moderation state machine.
type Record struct {
	Coupon
	Provider   string    `json:"provider"`
	Status     Status    `json:"status"`
	ImportedAt time.Time `json:"imported_at"`
}

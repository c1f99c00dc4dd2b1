package providers

import (
	"context"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/pkg/httpclient"
)

// Fetcher is the capability set every affiliate network adapter implements.
// Concrete implementations live in provider-specific files (e.g., awin.go).
type Fetcher interface {
	ID() string

	// Coupons fetches up to limit canonical coupons for the given settings.
	// Pagination is sequential with a fixed inter-page delay; a first-page
	// failure fails the whole call, later page failures end pagination with
	// partial results.
	Coupons(ctx context.Context, st Settings, limit int) ([]domain.Coupon, error)

	// TestConnection probes the vendor API with the given credentials.
	TestConnection(ctx context.Context, st Settings) error

	// SettingsFields describes the provider's settings schema for external
	// configuration surfaces.
	SettingsFields() []SettingsField

	// ValidateSettings checks that required credentials are present.
	ValidateSettings(st Settings) error
}

// SettingsField describes one provider setting for configuration UIs.
type SettingsField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Type        string `json:"type"` // text, checkbox, number
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Advertiser is a vendor programme the publisher account is joined to.
type Advertiser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AdvertiserLister is implemented by fetchers that can enumerate joined
// advertisers.
type AdvertiserLister interface {
	Advertisers(ctx context.Context, st Settings) ([]Advertiser, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client

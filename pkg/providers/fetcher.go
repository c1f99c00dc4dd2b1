package providers

import (
	"fmt"
	"time"

	"github.com/setek-hq/coupon-harvester/internal/logger"
	"github.com/setek-hq/coupon-harvester/pkg/httpclient"
)

// FetcherSet is the closed set of known provider adapters. Adding a provider
// means adding a field here and a case in For, not registering a string.
type FetcherSet struct {
	rakuten Fetcher
	awin    Fetcher
}

// NewFetcherSet wires the known provider adapters with a shared HTTP client.
func NewFetcherSet(client HTTPClient, log logger.Logger) FetcherSet {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return FetcherSet{
		rakuten: NewRakutenFetcher(client, log),
		awin:    NewAwinFetcher(client, log),
	}
}

// For resolves the adapter for a provider name.
func (s FetcherSet) For(provider string) (Fetcher, error) {
	switch provider {
	case ProviderRakuten:
		return s.rakuten, nil
	case ProviderAwin:
		return s.awin, nil
	default:
		return nil, fmt.Errorf("no fetcher for provider %q", provider)
	}
}

// All returns the known adapters in a stable order.
func (s FetcherSet) All() []Fetcher {
	return []Fetcher{s.rakuten, s.awin}
}

// DefaultHTTPClient returns a tuned http client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(30 * time.Second) }

package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Package providers contains the per-provider settings registry (YAML/JSON)
// and the affiliate network adapters.

const (
	ProviderRakuten = "rakuten"
	ProviderAwin    = "awin"

	defaultImportLimit    = 50
	defaultRequestDelayMs = 200
)

// Settings is the per-provider configuration. Every recognized option is an
// explicit field; adapters read it, they never mutate it.
type Settings struct {
	Provider    string `json:"provider" yaml:"provider"`
	EnableCron  bool   `json:"enable_cron" yaml:"enable_cron"`
	ImportLimit int    `json:"import_limit" yaml:"import_limit"`

	// Awin credentials.
	APIToken    string `json:"api_token" yaml:"api_token"`
	PublisherID string `json:"publisher_id" yaml:"publisher_id"`

	// Rakuten credentials and coupon feed filters (IDs separated by |).
	BearerToken      string `json:"bearer_token" yaml:"bearer_token"`
	CategoryFilter   string `json:"category_filter" yaml:"category_filter"`
	PromotionFilter  string `json:"promotion_filter" yaml:"promotion_filter"`
	NetworkFilter    string `json:"network_filter" yaml:"network_filter"`
	AdvertiserFilter string `json:"advertiser_filter" yaml:"advertiser_filter"`

	BaseURL        string `json:"base_url" yaml:"base_url"`
	RequestDelayMs int    `json:"request_delay_ms" yaml:"request_delay_ms"`
}

// RequestDelay returns the inter-page throttle duration for the provider.
func (s Settings) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return defaultRequestDelayMs * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// Limit returns the effective import limit.
func (s Settings) Limit() int {
	if s.ImportLimit <= 0 {
		return defaultImportLimit
	}
	return s.ImportLimit
}

type settingsFile struct {
	Providers []Settings `json:"providers" yaml:"providers"`
}

// Registry materializes provider settings loaded from config files.
type Registry struct {
	providers []Settings
	idx       map[string]Settings
}

// LoadRegistry loads provider settings from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("providers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open providers file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}

	parsed, err := parseSettingsFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Providers) == 0 {
		return nil, errors.New("providers file contains no providers entries")
	}

	reg := &Registry{
		providers: make([]Settings, len(parsed.Providers)),
		idx:       make(map[string]Settings, len(parsed.Providers)),
	}

	for i := range parsed.Providers {
		st := sanitizeSettings(parsed.Providers[i])
		if err := validateSettingsEntry(st); err != nil {
			return nil, fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, exists := reg.idx[st.Provider]; exists {
			return nil, fmt.Errorf("duplicate provider %q", st.Provider)
		}
		reg.providers[i] = st
		reg.idx[st.Provider] = st
	}

	return reg, nil
}

func parseSettingsFile(data []byte, ext string) (settingsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed settingsFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return settingsFile{}, errors.New("providers file format not recognized (expected YAML or JSON)")
}

func sanitizeSettings(st Settings) Settings {
	st.Provider = strings.ToLower(strings.TrimSpace(st.Provider))
	st.APIToken = strings.TrimSpace(st.APIToken)
	st.PublisherID = strings.TrimSpace(st.PublisherID)
	st.BearerToken = strings.TrimSpace(st.BearerToken)
	st.CategoryFilter = strings.TrimSpace(st.CategoryFilter)
	st.PromotionFilter = strings.TrimSpace(st.PromotionFilter)
	st.NetworkFilter = strings.TrimSpace(st.NetworkFilter)
	st.AdvertiserFilter = strings.TrimSpace(st.AdvertiserFilter)
	st.BaseURL = strings.TrimRight(strings.TrimSpace(st.BaseURL), "/")

	if st.ImportLimit <= 0 {
		st.ImportLimit = defaultImportLimit
	}
	if st.RequestDelayMs <= 0 {
		st.RequestDelayMs = defaultRequestDelayMs
	}

	return st
}

func validateSettingsEntry(st Settings) error {
	switch st.Provider {
	case ProviderRakuten, ProviderAwin:
		return nil
	case "":
		return errors.New("provider is required")
	default:
		return fmt.Errorf("unknown provider %q", st.Provider)
	}
}

// All returns a copy of the loaded provider settings.
func (r *Registry) All() []Settings {
	if r == nil || len(r.providers) == 0 {
		return nil
	}
	out := make([]Settings, len(r.providers))
	copy(out, r.providers)
	return out
}

// ByProvider returns the settings entry for the given provider, if loaded.
func (r *Registry) ByProvider(provider string) (Settings, bool) {
	if r == nil {
		return Settings{}, false
	}
	st, ok := r.idx[strings.ToLower(strings.TrimSpace(provider))]
	return st, ok
}

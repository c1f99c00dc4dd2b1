package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/setek-hq/coupon-harvester/pkg/httpclient"
)

type fakeResponse struct {
	body   []byte
	status int
}

func (r fakeResponse) Body() []byte    { return r.body }
func (r fakeResponse) StatusCode() int { return r.status }

// fakeHTTPClient routes every request through respond and records the URLs.
type fakeHTTPClient struct {
	respond func(url string) (int, string, error)
	urls    []string
	headers []map[string]string
}

func (c *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	c.urls = append(c.urls, url)
	c.headers = append(c.headers, headers)
	status, body, err := c.respond(url)
	if err != nil {
		return nil, err
	}
	return fakeResponse{body: []byte(body), status: status}, nil
}

func (c *fakeHTTPClient) Post(_ context.Context, url string, headers map[string]string, _ any) (httpclient.Response, error) {
	c.urls = append(c.urls, url)
	c.headers = append(c.headers, headers)
	status, body, err := c.respond(url)
	if err != nil {
		return nil, err
	}
	return fakeResponse{body: []byte(body), status: status}, nil
}

func writeRegistryFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoadRegistryYAML(t *testing.T) {
	path := writeRegistryFile(t, "providers.yaml", `
providers:
  - provider: rakuten
    enable_cron: true
    import_limit: 25
    bearer_token: tok
  - provider: awin
    enable_cron: false
    api_token: key
    publisher_id: "42"
`)

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(reg.All()))
	}

	rakuten, ok := reg.ByProvider("rakuten")
	if !ok {
		t.Fatalf("rakuten settings missing")
	}
	if !rakuten.EnableCron || rakuten.Limit() != 25 || rakuten.BearerToken != "tok" {
		t.Fatalf("unexpected rakuten settings %#v", rakuten)
	}

	awin, ok := reg.ByProvider("awin")
	if !ok {
		t.Fatalf("awin settings missing")
	}
	if awin.EnableCron {
		t.Fatalf("awin cron should be disabled")
	}
	if awin.Limit() != defaultImportLimit {
		t.Fatalf("expected default limit, got %d", awin.Limit())
	}
}

func TestLoadRegistryRejectsUnknownProvider(t *testing.T) {
	path := writeRegistryFile(t, "providers.yaml", `
providers:
  - provider: shareasale
    api_token: key
`)
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected unknown provider to be rejected")
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := writeRegistryFile(t, "providers.yaml", `
providers:
  - provider: awin
    api_token: a
    publisher_id: "1"
  - provider: awin
    api_token: b
    publisher_id: "2"
`)
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate provider to be rejected")
	}
}

func TestFetcherSetKnowsBothProviders(t *testing.T) {
	set := NewFetcherSet(&fakeHTTPClient{}, nil)

	for _, name := range []string{ProviderRakuten, ProviderAwin} {
		fetcher, err := set.For(name)
		if err != nil {
			t.Fatalf("For(%s): %v", name, err)
		}
		if fetcher.ID() != name {
			t.Fatalf("fetcher id = %s, want %s", fetcher.ID(), name)
		}
		if len(fetcher.SettingsFields()) == 0 {
			t.Fatalf("%s settings schema is empty", name)
		}
	}

	if _, err := set.For("shareasale"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if got := len(set.All()); got != 2 {
		t.Fatalf("All() = %d fetchers, want 2", got)
	}
}

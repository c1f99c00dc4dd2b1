package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/setek-hq/coupon-harvester/internal/domain"
)

func awinTestSettings() Settings {
	return Settings{
		Provider:       ProviderAwin,
		APIToken:       "token-1",
		PublisherID:    "42",
		RequestDelayMs: 1,
	}
}

func awinPage(promos ...awinPromotion) string {
	// encoding/json refuses to marshal an empty json.Number literal.
	for i := range promos {
		if promos[i].DiscountAmount == "" {
			promos[i].DiscountAmount = "0"
		}
		if promos[i].DiscountPercentage == "" {
			promos[i].DiscountPercentage = "0"
		}
	}
	page := map[string]any{"promotions": promos}
	raw, _ := json.Marshal(page)
	return string(raw)
}

func TestAwinCouponMapping(t *testing.T) {
	promo := awinPromotion{
		ID:          991,
		Title:       "<b>10% OFF</b> em toda a loja",
		Description: "Desconto em todos os produtos.",
		Terms:       "Válido até durar o estoque.",
		URL:         "https://www.awin1.com/cread.php?promo=991",
		Code:        "SAVE10",
		Discount:    "10% OFF",
		StartDate:   "2026-01-01 00:00:00",
		EndDate:     "2026-12-31 23:59:59",
		Advertiser:  awinAdvRef{ID: 7, Name: "Loja X"},
		Categories:  []awinCatRef{{ID: 1, Name: "Moda"}},
	}

	client := &fakeHTTPClient{respond: func(string) (int, string, error) {
		return 200, awinPage(promo), nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	coupons, err := fetcher.Coupons(context.Background(), awinTestSettings(), 10)
	if err != nil {
		t.Fatalf("Coupons: %v", err)
	}
	if len(coupons) != 1 {
		t.Fatalf("expected 1 coupon, got %d", len(coupons))
	}

	want := domain.Coupon{
		ExternalID:   "awin_991",
		Title:        "10% OFF em toda a loja",
		Description:  "Desconto em todos os produtos.\n\nTermos: Válido até durar o estoque.",
		Code:         "SAVE10",
		Link:         "https://www.awin1.com/cread.php?promo=991",
		Deeplink:     "https://www.awin1.com/cread.php?promo=991",
		Advertiser:   "Loja X",
		AdvertiserID: "7",
		StartDate:    "2026-01-01",
		Expiration:   "2026-12-31",
		Discount:     "10% OFF",
		Category:     []string{"Moda"},
		Tags:         []string{"Moda", "cupom"},
		CouponType:   domain.TypeCouponCode,
	}
	if diff := cmp.Diff(want, coupons[0]); diff != "" {
		t.Fatalf("coupon mismatch (-want +got):\n%s", diff)
	}
}

func TestAwinRequestShape(t *testing.T) {
	client := &fakeHTTPClient{respond: func(string) (int, string, error) {
		return 200, awinPage(), nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	if _, err := fetcher.Coupons(context.Background(), awinTestSettings(), 30); err != nil {
		t.Fatalf("Coupons: %v", err)
	}
	if len(client.urls) != 1 {
		t.Fatalf("expected 1 request, got %d", len(client.urls))
	}

	u, err := url.Parse(client.urls[0])
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Path != "/publishers/42/promotions" {
		t.Fatalf("path = %s", u.Path)
	}
	q := u.Query()
	if q.Get("type") != "voucher" || q.Get("pageSize") != "30" || q.Get("page") != "1" {
		t.Fatalf("unexpected query %v", q)
	}
	if got := client.headers[0]["Authorization"]; got != "Bearer token-1" {
		t.Fatalf("Authorization = %s", got)
	}
}

func TestAwinPaginationTruncatesToLimit(t *testing.T) {
	// 150 wanted: page 1 returns a full 100, page 2 returns 60 of which
	// only 50 are kept.
	makePromos := func(start, n int) []awinPromotion {
		out := make([]awinPromotion, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, awinPromotion{
				ID:    int64(start + i),
				Title: fmt.Sprintf("Oferta %d", start+i),
				URL:   fmt.Sprintf("https://example.com/%d", start+i),
			})
		}
		return out
	}

	client := &fakeHTTPClient{respond: func(rawURL string) (int, string, error) {
		u, _ := url.Parse(rawURL)
		switch u.Query().Get("page") {
		case "1":
			return 200, awinPage(makePromos(0, 100)...), nil
		case "2":
			return 200, awinPage(makePromos(100, 60)...), nil
		default:
			return 200, awinPage(), nil
		}
	}}
	fetcher := NewAwinFetcher(client, nil)

	coupons, err := fetcher.Coupons(context.Background(), awinTestSettings(), 150)
	if err != nil {
		t.Fatalf("Coupons: %v", err)
	}
	if len(coupons) != 150 {
		t.Fatalf("expected exactly 150 coupons, got %d", len(coupons))
	}
	if len(client.urls) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(client.urls))
	}
}

func TestAwinZeroLimitFetchesNothing(t *testing.T) {
	client := &fakeHTTPClient{respond: func(string) (int, string, error) {
		return 200, awinPage(awinPromotion{ID: 1, Title: "x", URL: "https://e.com/x"}), nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	coupons, err := fetcher.Coupons(context.Background(), awinTestSettings(), 0)
	if err != nil {
		t.Fatalf("Coupons: %v", err)
	}
	if len(coupons) != 0 {
		t.Fatalf("expected no coupons for zero limit, got %d", len(coupons))
	}
	if len(client.urls) != 0 {
		t.Fatalf("expected no requests for zero limit, made %d", len(client.urls))
	}
}

func TestAwinFirstPageFailureFailsTheCall(t *testing.T) {
	client := &fakeHTTPClient{respond: func(string) (int, string, error) {
		return 503, "upstream down", nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	_, err := fetcher.Coupons(context.Background(), awinTestSettings(), 10)
	var statusErr *UpstreamStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UpstreamStatusError, got %v", err)
	}
	if statusErr.StatusCode != 503 || statusErr.Provider != ProviderAwin {
		t.Fatalf("unexpected error %#v", statusErr)
	}
}

func TestAwinLaterPageFailureKeepsPartialResults(t *testing.T) {
	makePromos := func(n int) []awinPromotion {
		out := make([]awinPromotion, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, awinPromotion{
				ID:    int64(i + 1),
				Title: "Oferta " + strconv.Itoa(i+1),
				URL:   "https://example.com/" + strconv.Itoa(i+1),
			})
		}
		return out
	}

	client := &fakeHTTPClient{respond: func(rawURL string) (int, string, error) {
		u, _ := url.Parse(rawURL)
		if u.Query().Get("page") == "1" {
			return 200, awinPage(makePromos(100)...), nil
		}
		return 500, "boom", nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	coupons, err := fetcher.Coupons(context.Background(), awinTestSettings(), 150)
	if err != nil {
		t.Fatalf("expected partial results without error, got %v", err)
	}
	if len(coupons) != 100 {
		t.Fatalf("expected 100 partial coupons, got %d", len(coupons))
	}
}

func TestAwinDropsPromotionsWithoutTitleOrLink(t *testing.T) {
	client := &fakeHTTPClient{respond: func(string) (int, string, error) {
		return 200, awinPage(
			awinPromotion{ID: 1, Title: "Oferta boa", URL: "https://example.com/1"},
			awinPromotion{ID: 2, Title: "", URL: "https://example.com/2"},
			awinPromotion{ID: 3, Title: "Sem link", URL: ""},
		), nil
	}}
	fetcher := NewAwinFetcher(client, nil)

	coupons, err := fetcher.Coupons(context.Background(), awinTestSettings(), 10)
	if err != nil {
		t.Fatalf("Coupons: %v", err)
	}
	if len(coupons) != 1 || coupons[0].ExternalID != "awin_1" {
		t.Fatalf("expected only the complete promotion, got %#v", coupons)
	}
}

func TestAwinDiscountTieBreak(t *testing.T) {
	cases := []struct {
		name  string
		promo awinPromotion
		want  string
	}{
		{
			name: "explicit discount beats text",
			promo: awinPromotion{
				Discount: "20% OFF",
				Title:    "10% off em tudo",
			},
			want: "20% OFF",
		},
		{
			name: "amount beats percentage",
			promo: awinPromotion{
				DiscountAmount:     json.Number("15.50"),
				DiscountPercentage: json.Number("20"),
			},
			want: "15.50",
		},
		{
			name: "percentage formatted",
			promo: awinPromotion{
				DiscountPercentage: json.Number("25"),
			},
			want: "25% OFF",
		},
		{
			name: "text fallback",
			promo: awinPromotion{
				Title: "Aproveite 30% off hoje",
			},
			want: "30% OFF",
		},
		{
			name:  "no discount",
			promo: awinPromotion{Title: "Frete grátis"},
			want:  "",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.promo.URL = "https://example.com/x"
			if c.promo.Title == "" {
				c.promo.Title = "Oferta"
			}
			coupon := parseAwinPromotion(c.promo)
			if coupon.Discount != c.want {
				t.Fatalf("discount = %q, want %q", coupon.Discount, c.want)
			}
		})
	}
}

func TestAwinExclusiveDetection(t *testing.T) {
	flagged := parseAwinPromotion(awinPromotion{
		ID:    1,
		Title: "Cupom exclusivo para assinantes",
		URL:   "https://example.com/1",
	})
	if !flagged.IsExclusive {
		t.Fatalf("expected keyword to flag exclusivity")
	}
	hasTag := false
	for _, tag := range flagged.Tags {
		if tag == "exclusive" {
			hasTag = true
		}
	}
	if !hasTag {
		t.Fatalf("expected exclusive tag, got %v", flagged.Tags)
	}

	vendor := parseAwinPromotion(awinPromotion{
		ID:        2,
		Title:     "Oferta comum",
		URL:       "https://example.com/2",
		Exclusive: true,
	})
	if !vendor.IsExclusive {
		t.Fatalf("expected vendor flag to mark exclusivity")
	}

	plain := parseAwinPromotion(awinPromotion{
		ID:    3,
		Title: "Oferta comum",
		URL:   "https://example.com/3",
	})
	if plain.IsExclusive {
		t.Fatalf("plain promotion should not be exclusive")
	}
}

func TestAwinExternalIDFallbacks(t *testing.T) {
	withID := parseAwinPromotion(awinPromotion{ID: 55, Title: "A", URL: "https://e.com/a"})
	if withID.ExternalID != "awin_55" {
		t.Fatalf("ExternalID = %s", withID.ExternalID)
	}

	noID := awinPromotion{
		Title:      "Oferta sem id",
		URL:        "https://e.com/b",
		Advertiser: awinAdvRef{ID: 9, Name: "Loja"},
	}
	first := parseAwinPromotion(noID)
	second := parseAwinPromotion(noID)
	if first.ExternalID != second.ExternalID {
		t.Fatalf("fallback id must be deterministic: %s vs %s", first.ExternalID, second.ExternalID)
	}
	if !strings.HasPrefix(first.ExternalID, "awin_9_") {
		t.Fatalf("expected advertiser-scoped fallback, got %s", first.ExternalID)
	}

	bare := awinPromotion{Title: "Oferta sem nada", URL: "https://e.com/c"}
	a := parseAwinPromotion(bare)
	b := parseAwinPromotion(bare)
	if a.ExternalID != b.ExternalID || !strings.HasPrefix(a.ExternalID, "awin_") {
		t.Fatalf("content-hash fallback broken: %s vs %s", a.ExternalID, b.ExternalID)
	}
}

func TestAwinAdvertisersParsesBothShapes(t *testing.T) {
	bare := `[{"advertiserId":1,"advertiserName":"Loja A"},{"advertiserId":2,"advertiserName":"Loja B"}]`
	wrapped := `{"programmes":[{"advertiserId":3,"advertiserName":"Loja C"}]}`

	for _, body := range []string{bare, wrapped} {
		client := &fakeHTTPClient{respond: func(string) (int, string, error) {
			return 200, body, nil
		}}
		fetcher := NewAwinFetcher(client, nil).(AdvertiserLister)

		advertisers, err := fetcher.Advertisers(context.Background(), awinTestSettings())
		if err != nil {
			t.Fatalf("Advertisers: %v", err)
		}
		if len(advertisers) == 0 {
			t.Fatalf("expected advertisers for body %s", body)
		}
	}
}

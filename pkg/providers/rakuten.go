package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
)

const (
	rakutenProviderID     = "rakuten"
	rakutenDefaultBaseURL = "https://api.linksynergy.com"
	rakutenPageCap        = 10
)

var rakutenExclusiveIndicators = []string{"exclusive", "exclusivo", "especial", "vip"}

// rakutenFetcher fetches the Rakuten Advertising coupon feed (Coupon API
// v1.0, XML over HTTPS).
type rakutenFetcher struct {
	client HTTPClient
	log    logger.Logger
}

// NewRakutenFetcher builds the Rakuten adapter.
func NewRakutenFetcher(client HTTPClient, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &rakutenFetcher{client: client, log: logger.Ensure(log)}
}

func (f *rakutenFetcher) ID() string {
	return rakutenProviderID
}

// SettingsFields describes the Rakuten settings schema.
func (f *rakutenFetcher) SettingsFields() []SettingsField {
	return []SettingsField{
		{Key: "bearer_token", Label: "Bearer Token", Type: "text", Required: true,
			Description: "Rakuten Advertising bearer token"},
		{Key: "enable_cron", Label: "Automatic Import", Type: "checkbox",
			Description: "Enable scheduled imports for this provider"},
		{Key: "import_limit", Label: "Import Limit", Type: "number", Default: defaultImportLimit,
			Description: "Maximum coupons per import run"},
		{Key: "category_filter", Label: "Categories", Type: "text",
			Description: "Category ids separated by | (OR condition)"},
		{Key: "promotion_filter", Label: "Promotion Types", Type: "text",
			Description: "Promotion type ids separated by | (OR condition)"},
		{Key: "network_filter", Label: "Networks", Type: "text",
			Description: "Network ids separated by | (OR condition)"},
		{Key: "advertiser_filter", Label: "Advertisers (MID)", Type: "text",
			Description: "Advertiser ids separated by | (OR condition)"},
	}
}

// ValidateSettings checks the Rakuten credentials are present.
func (f *rakutenFetcher) ValidateSettings(st Settings) error {
	if st.BearerToken == "" {
		return fmt.Errorf("rakuten bearer_token is required")
	}
	return nil
}

// TestConnection requests a single-result page from the coupon feed.
func (f *rakutenFetcher) TestConnection(ctx context.Context, st Settings) error {
	if err := f.ValidateSettings(st); err != nil {
		return err
	}
	_, err := f.fetchFeed(ctx, st, 1, 1)
	return err
}

// Coupons fetches the coupon feed page by page up to limit.
func (f *rakutenFetcher) Coupons(ctx context.Context, st Settings, limit int) ([]domain.Coupon, error) {
	if err := f.ValidateSettings(st); err != nil {
		return nil, err
	}

	pager := paginator{
		provider: rakutenProviderID,
		pageCap:  rakutenPageCap,
		delay:    st.RequestDelay(),
		log:      f.log,
	}
	return pager.run(ctx, limit, func(ctx context.Context, page, pageSize int) ([]domain.Coupon, error) {
		feed, err := f.fetchFeed(ctx, st, page, pageSize)
		if err != nil {
			return nil, err
		}
		return f.parseFeed(feed), nil
	})
}

// fetchFeed requests one page of the coupon feed and decodes the XML into
// its typed shape. Decoding validates the expected root element up front.
func (f *rakutenFetcher) fetchFeed(ctx context.Context, st Settings, page, pageSize int) (rakutenFeed, error) {
	q := url.Values{}
	q.Set("resultsperpage", strconv.Itoa(pageSize))
	q.Set("pagenumber", strconv.Itoa(page))
	if st.CategoryFilter != "" {
		q.Set("category", st.CategoryFilter)
	}
	if st.PromotionFilter != "" {
		q.Set("promotiontype", st.PromotionFilter)
	}
	if st.NetworkFilter != "" {
		q.Set("network", st.NetworkFilter)
	}
	if st.AdvertiserFilter != "" {
		q.Set("mid", st.AdvertiserFilter)
	}

	endpoint := rakutenBaseURL(st) + "/coupon/1.0?" + q.Encode()
	headers := map[string]string{
		"Authorization": "Bearer " + st.BearerToken,
		"Accept":        "application/xml",
		"User-Agent":    "coupon-harvester",
	}

	raw, err := fetchBody(ctx, f.client, rakutenProviderID, endpoint, headers)
	if err != nil {
		return rakutenFeed{}, err
	}

	var feed rakutenFeed
	if err := xml.Unmarshal(raw, &feed); err != nil {
		return rakutenFeed{}, &DecodeError{Provider: rakutenProviderID, Err: err}
	}
	return feed, nil
}

func rakutenBaseURL(st Settings) string {
	if st.BaseURL != "" {
		return st.BaseURL
	}
	return rakutenDefaultBaseURL
}

func (f *rakutenFetcher) parseFeed(feed rakutenFeed) []domain.Coupon {
	coupons := make([]domain.Coupon, 0, len(feed.Links))
	dropped := 0
	for _, link := range feed.Links {
		coupon := parseRakutenLink(link)
		if !coupon.Valid() {
			dropped++
			continue
		}
		coupons = append(coupons, coupon)
	}
	if dropped > 0 {
		f.log.DebugObj("rakuten records dropped for missing title or link", "dropped", dropped)
	}
	return coupons
}

// Advertisers derives the advertiser list from a feed sample, since the
// coupon API exposes no programme listing.
func (f *rakutenFetcher) Advertisers(ctx context.Context, st Settings) ([]Advertiser, error) {
	coupons, err := f.Coupons(ctx, st, maxPageSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(coupons))
	advertisers := make([]Advertiser, 0, len(coupons))
	for _, c := range coupons {
		if c.Advertiser == "" || seen[c.Advertiser] {
			continue
		}
		seen[c.Advertiser] = true
		advertisers = append(advertisers, Advertiser{ID: c.AdvertiserID, Name: c.Advertiser})
	}
	sort.Slice(advertisers, func(i, j int) bool { return advertisers[i].Name < advertisers[j].Name })
	return advertisers, nil
}

// Rakuten wire structures. The vendor wraps each offer in a <link> element;
// a single-result response (one <link> object instead of a list) decodes as
// a one-element slice.
type rakutenFeed struct {
	XMLName      xml.Name      `xml:"couponfeed"`
	TotalMatches int           `xml:"TotalMatches"`
	TotalPages   int           `xml:"TotalPages"`
	PageNumber   int           `xml:"PageNumberRequested"`
	Links        []rakutenLink `xml:"link"`
}

type rakutenLink struct {
	LinkID         string   `xml:"linkid"`
	OfferID        string   `xml:"offerid"`
	AdvertiserID   string   `xml:"advertiserid"`
	AdvertiserName string   `xml:"advertisername"`
	ClickURL       string   `xml:"clickurl"`
	CouponCode     string   `xml:"couponcode"`
	Restriction    string   `xml:"couponrestriction"`
	Description    string   `xml:"offerdescription"`
	StartDate      string   `xml:"offerstartdate"`
	EndDate        string   `xml:"offerenddate"`
	SaleDiscount   string   `xml:"salediscount"`
	Terms          string   `xml:"terms"`
	Network        string   `xml:"network"`
	PromotionTypes []string `xml:"promotiontypes>promotiontype"`
	Categories     []string `xml:"categories>category"`
}

// parseRakutenLink maps one feed entry onto the canonical shape.
func parseRakutenLink(link rakutenLink) domain.Coupon {
	coupon := domain.Coupon{
		Title:        sanitizeText(link.Description),
		Description:  buildRakutenDescription(link),
		Link:         strings.TrimSpace(link.ClickURL),
		Code:         strings.TrimSpace(link.CouponCode),
		Advertiser:   sanitizeText(link.AdvertiserName),
		AdvertiserID: strings.TrimSpace(link.AdvertiserID),
		StartDate:    normalizeDate(link.StartDate),
		Expiration:   normalizeDate(link.EndDate),
	}
	coupon.Deeplink = coupon.Link

	coupon.Discount = extractRakutenDiscount(link, coupon)

	for _, cat := range link.Categories {
		name := sanitizeText(cat)
		if name == "" {
			continue
		}
		coupon.Category = append(coupon.Category, name)
		coupon.Tags = appendUnique(coupon.Tags, name)
	}
	for _, pt := range link.PromotionTypes {
		coupon.Tags = appendUnique(coupon.Tags, sanitizeText(pt))
	}
	coupon.Tags = appendUnique(coupon.Tags, sanitizeText(link.Network))

	if coupon.HasCode() {
		coupon.CouponType = domain.TypeCouponCode
	} else {
		coupon.CouponType = domain.TypeGenericOffer
	}

	exclusiveText := coupon.Title + " " + sanitizeText(link.Restriction) + " " + strings.Join(link.PromotionTypes, " ")
	coupon.IsExclusive = matchesExclusive(exclusiveText, rakutenExclusiveIndicators)
	if coupon.IsExclusive {
		coupon.Tags = appendUnique(coupon.Tags, "exclusive")
	}
	if coupon.HasCode() {
		coupon.Tags = appendUnique(coupon.Tags, "cupom")
	} else {
		coupon.Tags = appendUnique(coupon.Tags, "oferta")
	}

	coupon.ExternalID = rakutenExternalID(link, coupon)

	return coupon
}

// rakutenExternalID prefers the vendor link id, then the offer id, then a
// hash of the coupon content tuple, so that repeated imports of the same
// feed entry always produce the same id.
func rakutenExternalID(link rakutenLink, coupon domain.Coupon) string {
	if id := strings.TrimSpace(link.LinkID); id != "" {
		return "rakuten_" + id
	}
	if id := strings.TrimSpace(link.OfferID); id != "" {
		return "rakuten_" + id
	}
	content := strings.Join([]string{coupon.Title, coupon.Advertiser, coupon.Code, coupon.Link}, "|")
	return "rakuten_" + contentHash(content)
}

func buildRakutenDescription(link rakutenLink) string {
	sections := []string{
		sanitizeText(link.Description),
	}
	if restriction := sanitizeText(link.Restriction); restriction != "" {
		sections = append(sections, "Restrições: "+restriction)
	}
	if terms := sanitizeText(link.Terms); terms != "" {
		sections = append(sections, "Termos: "+terms)
	}
	if discount := sanitizeText(link.SaleDiscount); discount != "" {
		sections = append(sections, "Desconto: "+discount)
	}
	if joined := joinSections(sections); joined != "" {
		return joined
	}
	return "Oferta disponível"
}

// extractRakutenDiscount applies the tie-break order: the explicit sale
// discount field wins over a free-text scan.
func extractRakutenDiscount(link rakutenLink, coupon domain.Coupon) string {
	if d := sanitizeText(link.SaleDiscount); d != "" {
		return d
	}
	return extractDiscountFromText(coupon.Title + " " + coupon.Description)
}

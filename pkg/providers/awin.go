package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/setek-hq/coupon-harvester/internal/domain"
	"github.com/setek-hq/coupon-harvester/internal/logger"
)

const (
	awinProviderID     = "awin"
	awinDefaultBaseURL = "https://api.awin.com"
)

var awinExclusiveIndicators = []string{"exclusive", "exclusivo", "especial", "vip", "limited"}

// awinFetcher fetches voucher promotions from the Awin publisher API.
type awinFetcher struct {
	client HTTPClient
	log    logger.Logger
}

// NewAwinFetcher builds the Awin adapter.
func NewAwinFetcher(client HTTPClient, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &awinFetcher{client: client, log: logger.Ensure(log)}
}

func (f *awinFetcher) ID() string {
	return awinProviderID
}

// SettingsFields describes the Awin settings schema.
func (f *awinFetcher) SettingsFields() []SettingsField {
	return []SettingsField{
		{Key: "api_token", Label: "API Token", Type: "text", Required: true,
			Description: "Awin API token (Account > API Credentials)"},
		{Key: "publisher_id", Label: "Publisher ID", Type: "text", Required: true,
			Description: "Awin publisher account id"},
		{Key: "enable_cron", Label: "Automatic Import", Type: "checkbox",
			Description: "Enable scheduled imports for this provider"},
		{Key: "import_limit", Label: "Import Limit", Type: "number", Default: defaultImportLimit,
			Description: "Maximum coupons per import run"},
	}
}

// ValidateSettings checks the Awin credentials are present.
func (f *awinFetcher) ValidateSettings(st Settings) error {
	if st.APIToken == "" {
		return fmt.Errorf("awin api_token is required")
	}
	if st.PublisherID == "" {
		return fmt.Errorf("awin publisher_id is required")
	}
	return nil
}

// TestConnection probes the joined programmes endpoint.
func (f *awinFetcher) TestConnection(ctx context.Context, st Settings) error {
	if err := f.ValidateSettings(st); err != nil {
		return err
	}
	_, err := fetchBody(ctx, f.client, awinProviderID, f.programmesURL(st), awinHeaders(st))
	return err
}

// Coupons fetches voucher promotions page by page up to limit.
func (f *awinFetcher) Coupons(ctx context.Context, st Settings, limit int) ([]domain.Coupon, error) {
	if err := f.ValidateSettings(st); err != nil {
		return nil, err
	}

	pager := paginator{
		provider: awinProviderID,
		delay:    st.RequestDelay(),
		log:      f.log,
	}
	return pager.run(ctx, limit, func(ctx context.Context, page, pageSize int) ([]domain.Coupon, error) {
		return f.fetchPage(ctx, st, page, pageSize)
	})
}

func (f *awinFetcher) fetchPage(ctx context.Context, st Settings, page, pageSize int) ([]domain.Coupon, error) {
	endpoint := fmt.Sprintf("%s/publishers/%s/promotions", awinBaseURL(st), url.PathEscape(st.PublisherID))

	q := url.Values{}
	q.Set("type", "voucher")
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))

	raw, err := fetchBody(ctx, f.client, awinProviderID, endpoint+"?"+q.Encode(), awinHeaders(st))
	if err != nil {
		return nil, err
	}

	var parsed awinPromotionsPage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &DecodeError{Provider: awinProviderID, Err: err}
	}

	coupons := make([]domain.Coupon, 0, len(parsed.Promotions))
	dropped := 0
	for _, promo := range parsed.Promotions {
		coupon := parseAwinPromotion(promo)
		if !coupon.Valid() {
			dropped++
			continue
		}
		coupons = append(coupons, coupon)
	}
	if dropped > 0 {
		f.log.DebugObj("awin records dropped for missing title or link", "dropped", dropped)
	}
	return coupons, nil
}

func awinBaseURL(st Settings) string {
	if st.BaseURL != "" {
		return st.BaseURL
	}
	return awinDefaultBaseURL
}

func awinHeaders(st Settings) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + strings.TrimSpace(st.APIToken),
		"Accept":        "application/json",
		"User-Agent":    "coupon-harvester",
	}
}

func (f *awinFetcher) programmesURL(st Settings) string {
	return fmt.Sprintf("%s/publishers/%s/programmes?relationship=joined",
		awinBaseURL(st), url.PathEscape(st.PublisherID))
}

// Advertisers enumerates joined programmes as id/name pairs.
func (f *awinFetcher) Advertisers(ctx context.Context, st Settings) ([]Advertiser, error) {
	if err := f.ValidateSettings(st); err != nil {
		return nil, err
	}

	raw, err := fetchBody(ctx, f.client, awinProviderID, f.programmesURL(st), awinHeaders(st))
	if err != nil {
		return nil, err
	}

	var programmes []awinProgramme
	if err := json.Unmarshal(raw, &programmes); err != nil {
		var wrapped struct {
			Programmes []awinProgramme `json:"programmes"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, &DecodeError{Provider: awinProviderID, Err: err}
		}
		programmes = wrapped.Programmes
	}

	advertisers := make([]Advertiser, 0, len(programmes))
	for _, p := range programmes {
		if p.AdvertiserID == 0 || p.AdvertiserName == "" {
			continue
		}
		advertisers = append(advertisers, Advertiser{
			ID:   strconv.FormatInt(p.AdvertiserID, 10),
			Name: p.AdvertiserName,
		})
	}
	return advertisers, nil
}

// Awin wire structures.

type awinPromotionsPage struct {
	Promotions []awinPromotion `json:"promotions"`
	Pagination struct {
		Page     int `json:"page"`
		PageSize int `json:"pageSize"`
		Total    int `json:"total"`
	} `json:"pagination"`
}

type awinPromotion struct {
	ID                 int64         `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Terms              string        `json:"terms"`
	Restrictions       string        `json:"restrictions"`
	Type               string        `json:"type"`
	URL                string        `json:"url"`
	Code               string        `json:"code"`
	Exclusive          bool          `json:"exclusive"`
	Discount           string        `json:"discount"`
	DiscountAmount     json.Number   `json:"discountAmount"`
	DiscountPercentage json.Number   `json:"discountPercentage"`
	StartDate          string        `json:"startDate"`
	EndDate            string        `json:"endDate"`
	Advertiser         awinAdvRef    `json:"advertiser"`
	Categories         []awinCatRef  `json:"categories"`
}

type awinAdvRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type awinCatRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type awinProgramme struct {
	AdvertiserID   int64  `json:"advertiserId"`
	AdvertiserName string `json:"advertiserName"`
}

// parseAwinPromotion maps one vendor promotion onto the canonical shape.
func parseAwinPromotion(promo awinPromotion) domain.Coupon {
	coupon := domain.Coupon{
		Title:       sanitizeText(promo.Title),
		Description: buildAwinDescription(promo),
		Link:        strings.TrimSpace(promo.URL),
		Code:        strings.TrimSpace(promo.Code),
		StartDate:   normalizeDate(promo.StartDate),
		Expiration:  normalizeDate(promo.EndDate),
	}
	coupon.Deeplink = coupon.Link

	if promo.Advertiser.Name != "" {
		coupon.Advertiser = sanitizeText(promo.Advertiser.Name)
	}
	if promo.Advertiser.ID != 0 {
		coupon.AdvertiserID = strconv.FormatInt(promo.Advertiser.ID, 10)
	}

	coupon.Discount = extractAwinDiscount(promo, coupon)

	for _, cat := range promo.Categories {
		name := sanitizeText(cat.Name)
		if name == "" {
			continue
		}
		coupon.Category = append(coupon.Category, name)
		coupon.Tags = appendUnique(coupon.Tags, name)
	}

	if coupon.HasCode() {
		coupon.CouponType = domain.TypeCouponCode
	} else {
		coupon.CouponType = domain.TypeGenericOffer
	}

	exclusiveText := coupon.Title + " " + coupon.Description + " " + promo.Type
	coupon.IsExclusive = promo.Exclusive || matchesExclusive(exclusiveText, awinExclusiveIndicators)
	if coupon.IsExclusive {
		coupon.Tags = appendUnique(coupon.Tags, "exclusive")
	}
	if coupon.HasCode() {
		coupon.Tags = appendUnique(coupon.Tags, "cupom")
	} else {
		coupon.Tags = appendUnique(coupon.Tags, "oferta")
	}

	coupon.ExternalID = awinExternalID(promo, coupon)

	return coupon
}

// awinExternalID prefers the vendor id, then advertiser id plus a short
// title hash, then a hash of the coupon content tuple. The same vendor
// record always yields the same id across repeated imports.
func awinExternalID(promo awinPromotion, coupon domain.Coupon) string {
	if promo.ID != 0 {
		return fmt.Sprintf("awin_%d", promo.ID)
	}
	if coupon.AdvertiserID != "" && coupon.Title != "" {
		return fmt.Sprintf("awin_%s_%s", coupon.AdvertiserID, shortHash(coupon.Title))
	}
	content := strings.Join([]string{coupon.Title, coupon.Advertiser, coupon.Code, coupon.Link}, "|")
	return "awin_" + contentHash(content)
}

func buildAwinDescription(promo awinPromotion) string {
	sections := []string{
		sanitizeText(promo.Description),
	}
	if terms := sanitizeText(promo.Terms); terms != "" {
		sections = append(sections, "Termos: "+terms)
	}
	if restrictions := sanitizeText(promo.Restrictions); restrictions != "" {
		sections = append(sections, "Restrições: "+restrictions)
	}
	return joinSections(sections)
}

// extractAwinDiscount applies the tie-break order: explicit discount, then
// amount, then percentage, then a free-text scan.
func extractAwinDiscount(promo awinPromotion, coupon domain.Coupon) string {
	if d := strings.TrimSpace(promo.Discount); d != "" {
		return d
	}
	if amount := promo.DiscountAmount.String(); amount != "" && amount != "0" {
		return amount
	}
	if pct := promo.DiscountPercentage.String(); pct != "" && pct != "0" {
		return pct + "% OFF"
	}
	return extractDiscountFromText(coupon.Title + " " + coupon.Description)
}

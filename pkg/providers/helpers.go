package providers

import (
	"context"
	"crypto/md5" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/setek-hq/coupon-harvester/pkg/httpclient"
)

const dateLayout = "2006-01-02"

// contentHash returns the hex md5 of s, used for fallback external ids.
func contentHash(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// shortHash returns the first 8 hex chars of the content hash.
func shortHash(s string) string {
	return contentHash(s)[:8]
}

// normalizeDate parses a vendor-formatted date string into YYYY-MM-DD.
// Unparseable or empty input yields an empty string.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return ""
	}
	return t.Format(dateLayout)
}

// sanitizeText strips HTML markup from vendor text and collapses runs of
// whitespace. Paragraph separators are preserved by the callers, which join
// sanitized sections with blank lines.
func sanitizeText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.ContainsAny(raw, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			raw = doc.Text()
		}
	}
	return strings.Join(strings.Fields(raw), " ")
}

// joinSections joins non-empty description sections with blank lines.
func joinSections(sections []string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// responseSnippet trims the response body for log/error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// fetchBody performs a GET against a vendor API and maps failures onto the
// provider error taxonomy.
func fetchBody(ctx context.Context, client httpclient.Client, provider, url string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: err}
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, &UpstreamStatusError{
			Provider:   provider,
			StatusCode: resp.StatusCode(),
			Body:       responseSnippet(body),
		}
	}

	return body, nil
}

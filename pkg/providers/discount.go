package providers

import (
	"regexp"
	"strings"
)

// Discount extraction order: explicit vendor fields always win; free-text
// patterns are scanned percentage first, then currency amounts.
var (
	rePercentOff = regexp.MustCompile(`(?i)(\d+)%\s*(?:off|desconto|discount)`)
	rePoundOff   = regexp.MustCompile(`(?i)£(\d+(?:\.\d{2})?)\s*(?:off|desconto|discount)`)
	reDollarOff  = regexp.MustCompile(`(?i)(?:^|[^R£])\$(\d+(?:\.\d{2})?)\s*(?:off|desconto|discount)`)
	reRealOff    = regexp.MustCompile(`(?i)R\$\s*(\d+(?:,\d{2})?)\s*(?:off|desconto|discount)`)
)

// extractDiscountFromText scans free text for a discount mention.
func extractDiscountFromText(text string) string {
	if m := rePercentOff.FindStringSubmatch(text); m != nil {
		return m[1] + "% OFF"
	}
	if m := rePoundOff.FindStringSubmatch(text); m != nil {
		return "£" + m[1] + " OFF"
	}
	if m := reDollarOff.FindStringSubmatch(text); m != nil {
		return "$" + m[1] + " OFF"
	}
	if m := reRealOff.FindStringSubmatch(text); m != nil {
		return "R$ " + m[1] + " OFF"
	}
	return ""
}

// matchesExclusive reports whether the combined promotion text contains one
// of the provider's exclusivity keywords.
func matchesExclusive(text string, indicators []string) bool {
	text = strings.ToLower(text)
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}

// appendUnique appends values to tags, skipping empties and duplicates.
func appendUnique(tags []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		seen := false
		for _, t := range tags {
			if t == v {
				seen = true
				break
			}
		}
		if !seen {
			tags = append(tags, v)
		}
	}
	return tags
}

package intel

import "strings"

// The monitored organization set is fixed per deployment. Slugs are canonical;
// variants cover tickers, legal names, and common shorthand seen in source text.
var organizationVariants = map[string][]string{
	"Capital_One": {
		"Capital One", "Capital One Financial", "Capital One Financial Corporation", "COF",
	},
	"Fannie_Mae": {
		"Fannie Mae", "Federal National Mortgage Association", "FNMA",
	},
	"Freddie_Mac": {
		"Freddie Mac", "Federal Home Loan Mortgage Corporation", "FMCC",
	},
	"Navy_Federal": {
		"Navy Federal", "Navy Federal Credit Union",
	},
	"PenFed": {
		"PenFed", "PenFed Credit Union", "Pentagon Federal Credit Union",
	},
	"EagleBank": {
		"EagleBank", "Eagle Bank", "EGBN",
	},
	"Capital_Bank": {
		"Capital Bank", "Capital Bank N.A.", "CBNK",
	},
}

var organizationDisplayNames = map[string]string{
	"Capital_One":  "Capital One Financial Corporation",
	"Fannie_Mae":   "Federal National Mortgage Association",
	"Freddie_Mac":  "Federal Home Loan Mortgage Corporation",
	"Navy_Federal": "Navy Federal Credit Union",
	"PenFed":       "PenFed Credit Union",
	"EagleBank":    "EagleBank",
	"Capital_Bank": "Capital Bank N.A.",
}

// CanonicalOrganization resolves a free-form organization mention to its slug.
// The empty string is returned for unmonitored organizations.
func CanonicalOrganization(name string) string {
	needle := normalizeOrgName(name)
	if needle == "" {
		return ""
	}
	for slug, variants := range organizationVariants {
		if normalizeOrgName(slug) == needle {
			return slug
		}
		for _, variant := range variants {
			if normalizeOrgName(variant) == needle {
				return slug
			}
		}
	}
	return ""
}

// OrganizationVariants returns all known name variants for a slug, including
// the display name. Unknown slugs return just the slug with underscores spaced.
func OrganizationVariants(slug string) []string {
	variants, ok := organizationVariants[slug]
	if !ok {
		return []string{strings.ReplaceAll(slug, "_", " ")}
	}
	out := make([]string, 0, len(variants)+1)
	out = append(out, variants...)
	if display, ok := organizationDisplayNames[slug]; ok && !containsFold(out, display) {
		out = append(out, display)
	}
	return out
}

// DisplayName returns the presentation name for a slug.
func DisplayName(slug string) string {
	if display, ok := organizationDisplayNames[slug]; ok {
		return display
	}
	return strings.ReplaceAll(slug, "_", " ")
}

// MonitoredOrganizations lists all canonical slugs.
func MonitoredOrganizations() []string {
	slugs := make([]string, 0, len(organizationVariants))
	for slug := range organizationVariants {
		slugs = append(slugs, slug)
	}
	return slugs
}

// MentionsOrganization reports whether text contains any name variant of slug.
func MentionsOrganization(text, slug string) bool {
	lower := strings.ToLower(text)
	for _, variant := range OrganizationVariants(slug) {
		if strings.Contains(lower, strings.ToLower(variant)) {
			return true
		}
	}
	return false
}

func normalizeOrgName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, "_", " ")
	return strings.Join(strings.Fields(lowered), " ")
}

func containsFold(values []string, needle string) bool {
	for _, v := range values {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

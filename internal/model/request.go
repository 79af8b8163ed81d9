package model

import (
	"github.com/rotisserie/eris"
)

// maxRadiusMeters is the largest search radius the Places API accepts.
const maxRadiusMeters = 50000

// InclusionMode selects which places a crawl keeps based on website presence.
type InclusionMode string

const (
	// IncludeWithWebsite keeps only places that list a website.
	IncludeWithWebsite InclusionMode = "yes"
	// IncludeWithoutWebsite keeps only places without a website.
	IncludeWithoutWebsite InclusionMode = "no"
	// IncludeAny keeps every place.
	IncludeAny InclusionMode = "both"
)

// ParseInclusionMode validates a has_website query value. The empty string
// defaults to IncludeAny.
func ParseInclusionMode(s string) (InclusionMode, error) {
	switch InclusionMode(s) {
	case IncludeWithWebsite, IncludeWithoutWebsite, IncludeAny:
		return InclusionMode(s), nil
	case "":
		return IncludeAny, nil
	default:
		return "", eris.Errorf("model: invalid has_website value %q", s)
	}
}

// Includes reports whether a place with the given website passes the mode.
func (m InclusionMode) Includes(website string) bool {
	switch m {
	case IncludeWithWebsite:
		return website != ""
	case IncludeWithoutWebsite:
		return website == ""
	default:
		return true
	}
}

// CrawlRequest holds the parameters for one crawl run. It is never
// persisted; it lives only for the duration of the background job.
type CrawlRequest struct {
	Location string        // "lat,lng" center coordinate
	RadiusKM float64       // search radius in kilometers
	Keyword  string        // optional free-text override for the category keyword
	Types    []string      // category keywords, crawled in order
	Mode     InclusionMode // website inclusion policy
}

// RadiusMeters converts the requested radius to meters, capped at the
// upstream maximum. The cap is applied before the integer conversion so an
// oversized float can never overflow into a bogus radius.
func (r CrawlRequest) RadiusMeters() int {
	m := r.RadiusKM * 1000
	if m > maxRadiusMeters {
		return maxRadiusMeters
	}
	return int(m)
}

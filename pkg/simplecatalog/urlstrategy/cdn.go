package urlstrategy

import (
	"strings"
)

// CDNStrategy generates URLs that point directly at a CDN fronting the asset bucket
type CDNStrategy struct {
	CDNBaseURL string // e.g., "https://cdn.example.com"
}

// NewCDNStrategy creates a new CDN URL strategy
func NewCDNStrategy(cdnBaseURL string) *CDNStrategy {
	return &CDNStrategy{
		CDNBaseURL: strings.TrimSuffix(cdnBaseURL, "/"),
	}
}

// AssetURL appends the key verbatim; keys are already path-escaped per segment
func (s *CDNStrategy) AssetURL(objectKey string) string {
	return s.CDNBaseURL + "/" + objectKey
}

package urlstrategy

import (
	"net/url"
	"strings"
)

// ProxyStrategy routes every asset through the application's /asset endpoint
type ProxyStrategy struct {
	APIBaseURL string // e.g., "" for same-origin or "https://api.example.com"
}

// NewProxyStrategy creates a new proxy URL strategy
func NewProxyStrategy(apiBaseURL string) *ProxyStrategy {
	return &ProxyStrategy{
		APIBaseURL: strings.TrimSuffix(apiBaseURL, "/"),
	}
}

func (s *ProxyStrategy) AssetURL(objectKey string) string {
	return s.APIBaseURL + "/asset?key=" + url.QueryEscape(objectKey)
}

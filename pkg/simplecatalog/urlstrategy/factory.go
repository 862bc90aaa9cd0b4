package urlstrategy

import (
	"fmt"
)

// URLStrategyType represents the type of URL strategy
type URLStrategyType string

const (
	// CDN strategy for direct links into the asset bucket
	StrategyTypeCDN URLStrategyType = "cdn"

	// Proxy strategy for application-routed asset URLs
	StrategyTypeProxy URLStrategyType = "proxy"
)

// Config holds configuration for URL strategy creation
type Config struct {
	Type       URLStrategyType
	CDNBaseURL string // For CDN strategy
	APIBaseURL string // For proxy strategy, may be empty
}

// NewURLStrategy creates a URL strategy based on the configuration
func NewURLStrategy(config Config) (URLStrategy, error) {
	switch config.Type {
	case StrategyTypeCDN:
		if config.CDNBaseURL == "" {
			return nil, fmt.Errorf("CDN base URL is required for CDN strategy")
		}
		return NewCDNStrategy(config.CDNBaseURL), nil

	case StrategyTypeProxy, "":
		return NewProxyStrategy(config.APIBaseURL), nil

	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// NewRecommendedStrategy uses the CDN in production when one is configured
// and the proxy endpoint everywhere else.
func NewRecommendedStrategy(environment string, cdnURL string, apiURL string) URLStrategy {
	if environment == "production" && cdnURL != "" {
		return NewCDNStrategy(cdnURL)
	}
	return NewProxyStrategy(apiURL)
}

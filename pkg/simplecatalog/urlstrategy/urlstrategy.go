package urlstrategy

// URLStrategy defines the interface for asset URL generation strategies
type URLStrategy interface {
	// AssetURL returns the client-facing URL of an asset store key
	AssetURL(objectKey string) string
}

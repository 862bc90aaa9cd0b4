// Package objectkey builds the asset store keys owned by a catalog entry.
package objectkey

import (
	"net/url"
	"path"
	"strings"
)

// Prefix is the public asset key prefix. Only keys under it may be served.
const Prefix = "assets/"

const (
	ImageExt   = ".jpg"
	PackageExt = ".zip"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// ImageKey returns the key of the preview image for category/slug
	ImageKey(category, slug string) string

	// PackageKey returns the key of the downloadable package for category/slug
	PackageKey(category, slug string) string
}

// AssetGenerator lays keys out as assets/<category>/<slug>.<ext>, escaping
// each path segment so categories like "Animals/Wildlife" stay one segment.
type AssetGenerator struct{}

func NewAssetGenerator() *AssetGenerator {
	return &AssetGenerator{}
}

func (g *AssetGenerator) ImageKey(category, slug string) string {
	return key(category, slug, ImageExt)
}

func (g *AssetGenerator) PackageKey(category, slug string) string {
	return key(category, slug, PackageExt)
}

func key(category, slug, ext string) string {
	return Prefix + url.PathEscape(category) + "/" + url.PathEscape(slug) + ext
}

// IsAssetKey reports whether key lies under Prefix without escaping it
func IsAssetKey(key string) bool {
	if !strings.HasPrefix(key, Prefix) || len(key) == len(Prefix) {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return false
		}
	}
	return path.Clean(key) == key
}

// Ext returns the lowercased extension of key
func Ext(key string) string {
	return strings.ToLower(path.Ext(key))
}

// Package kvdoc holds the key layout and record encoding shared by the
// key-value repositories.
//
// Each entry is stored as a JSON record under <prefix>:entry:<slug> with its
// counter kept separately under <prefix>:downloads:<slug> so increments never
// rewrite the record. The ordered index lives under <prefix>:index.
package kvdoc

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// DefaultPrefix namespaces catalog keys in a shared store
const DefaultPrefix = "catalog"

// Keys builds store keys under a prefix
type Keys struct {
	Prefix string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{Prefix: prefix}
}

func (k Keys) Index() string {
	return k.Prefix + ":index"
}

func (k Keys) Entry(slug string) string {
	return k.Prefix + ":entry:" + slug
}

func (k Keys) Downloads(slug string) string {
	return k.Prefix + ":downloads:" + slug
}

// EncodeEntry serializes the persisted fields of an entry. The download
// counter is stored on its own and left out.
func EncodeEntry(e *simplecatalog.Entry) ([]byte, error) {
	rec := e.Record()
	rec.Downloads = 0
	return json.Marshal(rec)
}

// DecodeEntry parses a record and applies the separately stored counter
func DecodeEntry(data []byte, downloads int64) (*simplecatalog.Entry, error) {
	var e simplecatalog.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	e.Downloads = downloads
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	return &e, nil
}

// EncodeIndex serializes the ordered slug list
func EncodeIndex(slugs []string) ([]byte, error) {
	if slugs == nil {
		slugs = []string{}
	}
	return json.Marshal(slugs)
}

// DecodeIndex parses the ordered slug list. Empty input is an empty index.
func DecodeIndex(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var slugs []string
	if err := json.Unmarshal(data, &slugs); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return slugs, nil
}

// Prepend returns index with slug at the head
func Prepend(index []string, slug string) []string {
	out := make([]string, 0, len(index)+1)
	out = append(out, slug)
	return append(out, Remove(index, slug)...)
}

// Remove returns index without slug
func Remove(index []string, slug string) []string {
	out := make([]string, 0, len(index))
	for _, s := range index {
		if s != slug {
			out = append(out, s)
		}
	}
	return out
}

// FormatCounter and ParseCounter store counters as decimal strings, the
// representation Redis INCR operates on.
func FormatCounter(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

func ParseCounter(data []byte) (int64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode counter: %w", err)
	}
	return n, nil
}

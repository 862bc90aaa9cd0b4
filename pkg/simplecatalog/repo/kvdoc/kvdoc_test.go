package kvdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

func TestKeys(t *testing.T) {
	k := NewKeys("")
	assert.Equal(t, "catalog:index", k.Index())
	assert.Equal(t, "catalog:entry:red-car", k.Entry("red-car"))
	assert.Equal(t, "catalog:downloads:red-car", k.Downloads("red-car"))

	assert.Equal(t, "test:index", NewKeys("test").Index())
}

func TestEntryEncodingDropsDerivedFields(t *testing.T) {
	e := &simplecatalog.Entry{
		Slug:      "red-car",
		Category:  "Transportation",
		Title:     "Red Car",
		Keywords:  []string{"car", "red"},
		Date:      "2024-06-01",
		Downloads: 7,
		FileSize:  "2.1 MB",
		Thumbnail: "/asset?key=x",
		ZipURL:    "/asset?key=y",
	}

	data, err := EncodeEntry(e)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "thumbnail")
	assert.NotContains(t, string(data), "zipUrl")

	decoded, err := DecodeEntry(data, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), decoded.Downloads)
	assert.Equal(t, e.Keywords, decoded.Keywords)
	assert.Empty(t, decoded.Thumbnail)

	_, err = DecodeEntry([]byte("{"), 0)
	assert.Error(t, err)
}

func TestIndexHelpers(t *testing.T) {
	index := []string{"b", "a"}
	assert.Equal(t, []string{"c", "b", "a"}, Prepend(index, "c"))
	assert.Equal(t, []string{"a", "b"}, Prepend(index, "a"), "prepending an existing slug moves it")
	assert.Equal(t, []string{"b"}, Remove(index, "a"))
	assert.Equal(t, []string{"b", "a"}, index, "inputs are not modified")

	data, err := EncodeIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	slugs, err := DecodeIndex(nil)
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestCounter(t *testing.T) {
	n, err := ParseCounter(FormatCounter(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = ParseCounter(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ParseCounter([]byte("x"))
	assert.Error(t, err)
}

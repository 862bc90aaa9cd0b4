package simplecatalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the descriptive document uploaded alongside an asset
type Metadata struct {
	Category    string   `json:"category" yaml:"category"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Keywords    Keywords `json:"keywords" yaml:"keywords"`
}

// Keywords accepts either a list of strings or a single comma-separated string
type Keywords []string

func (k *Keywords) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = cleanKeywords(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("keywords must be a list or a string: %w", err)
	}
	*k = cleanKeywords(strings.Split(s, ","))
	return nil
}

func (k *Keywords) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*k = cleanKeywords(list)
	case yaml.ScalarNode:
		*k = cleanKeywords(strings.Split(value.Value, ","))
	default:
		return fmt.Errorf("keywords must be a list or a string")
	}
	return nil
}

func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

type metadataFormat int

const (
	formatJSON metadataFormat = iota
	formatYAML
)

var metadataExtensions = map[string]metadataFormat{
	".json": formatJSON,
	".yaml": formatYAML,
	".yml":  formatYAML,
}

// SlugFromFileName derives the slug from a metadata file name by taking its
// base name and stripping the metadata extension.
func SlugFromFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	if _, ok := metadataExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: unsupported metadata file %q", ErrInvalidMetadata, name)
	}
	slug := strings.TrimSpace(strings.TrimSuffix(base, base[len(base)-len(ext):]))
	if slug == "" || slug == "." || slug == ".." {
		return "", fmt.Errorf("%w: empty slug in %q", ErrInvalidMetadata, name)
	}
	return slug, nil
}

// ParseMetadata decodes a JSON or YAML metadata document, chosen by the
// file name's extension, and returns the slug along with it.
func ParseMetadata(name string, r io.Reader) (string, *Metadata, error) {
	slug, err := SlugFromFileName(name)
	if err != nil {
		return "", nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %v", ErrInvalidMetadata, name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil, fmt.Errorf("%w: %s is empty", ErrInvalidMetadata, name)
	}

	var md Metadata
	switch metadataExtensions[strings.ToLower(path.Ext(name))] {
	case formatYAML:
		err = yaml.Unmarshal(data, &md)
	default:
		err = json.Unmarshal(data, &md)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, name, err)
	}

	md.Category = strings.TrimSpace(md.Category)
	md.Title = strings.TrimSpace(md.Title)
	return slug, &md, nil
}

// NewEntry builds a fresh entry from parsed metadata
func NewEntry(slug string, md *Metadata, date, fileSize string) *Entry {
	e := &Entry{
		Slug:        slug,
		Category:    md.Category,
		Title:       md.Title,
		Description: md.Description,
		Keywords:    []string(md.Keywords),
		Date:        date,
		FileSize:    fileSize,
	}
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	if e.Title == "" {
		e.Title = slug
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
	return e
}

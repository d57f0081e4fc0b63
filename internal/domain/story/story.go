// Package story holds the curated career-story record and its load-time normalization.
package story

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Filterable field keys accepted by Field.
const (
	FieldIndustry    = "industry"
	FieldCategory    = "category"
	FieldSubCategory = "sub_category"
	FieldClient      = "client"
	FieldRole        = "role"
	FieldTheme       = "theme"
)

// FilterKeys lists every key Field understands.
var FilterKeys = []string{
	FieldIndustry, FieldCategory, FieldSubCategory,
	FieldClient, FieldRole, FieldTheme,
}

// Story is one curated portfolio record. Immutable after load.
type Story struct {
	ID          string
	Title       string
	Client      string
	Role        string
	Industry    string
	Category    string
	SubCategory string
	Theme       string
	Summary     string
	Tags        []string

	Situation []string
	Task      []string
	Action    []string
	Result    []string
}

// Citable reports whether the story can be shown as a source.
func (s *Story) Citable() bool {
	return strings.TrimSpace(s.ID) != ""
}

// Field returns a descriptive field by filter key. Unknown keys return "" and false.
func (s *Story) Field(name string) (string, bool) {
	switch strings.ToLower(name) {
	case FieldIndustry:
		return s.Industry, true
	case FieldCategory:
		return s.Category, true
	case FieldSubCategory:
		return s.SubCategory, true
	case FieldClient:
		return s.Client, true
	case FieldRole:
		return s.Role, true
	case FieldTheme:
		return s.Theme, true
	default:
		return "", false
	}
}

// HasTag reports whether the story carries tag, ignoring case.
func (s *Story) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// EmbeddingText is the text indexed for a story: title, summary and narrative.
func (s *Story) EmbeddingText() string {
	parts := make([]string, 0, 4+len(s.Situation)+len(s.Task)+len(s.Action)+len(s.Result))
	for _, p := range []string{s.Title, s.Client, s.SubCategory, s.Summary} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for _, section := range [][]string{s.Situation, s.Task, s.Action, s.Result} {
		parts = append(parts, section...)
	}
	return strings.Join(parts, "\n")
}

// record mirrors the curated JSON layout.
type record struct {
	ID          string          `json:"id"`
	Title       string          `json:"Title"`
	Client      string          `json:"Client"`
	Role        string          `json:"Role"`
	Industry    string          `json:"Industry"`
	Category    string          `json:"Category"`
	SubCategory string          `json:"Sub-category"`
	Theme       string          `json:"Theme"`
	Summary     string          `json:"5PSummary"`
	Tags        json.RawMessage `json:"public_tags"`
	Situation   json.RawMessage `json:"Situation"`
	Task        json.RawMessage `json:"Task"`
	Action      json.RawMessage `json:"Action"`
	Result      json.RawMessage `json:"Result"`
}

// Parse decodes one JSON record and canonicalizes narrative fields and tags.
func Parse(data []byte) (Story, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return Story{}, fmt.Errorf("decode story: %w", err)
	}

	s := Story{
		ID:          strings.TrimSpace(r.ID),
		Title:       strings.TrimSpace(r.Title),
		Client:      strings.TrimSpace(r.Client),
		Role:        strings.TrimSpace(r.Role),
		Industry:    strings.TrimSpace(r.Industry),
		Category:    strings.TrimSpace(r.Category),
		SubCategory: strings.TrimSpace(r.SubCategory),
		Theme:       strings.TrimSpace(r.Theme),
		Summary:     strings.TrimSpace(r.Summary),
	}

	var err error
	if s.Tags, err = normalizeTags(r.Tags); err != nil {
		return Story{}, fmt.Errorf("story %q public_tags: %w", s.ID, err)
	}
	for _, f := range []struct {
		name string
		raw  json.RawMessage
		dst  *[]string
	}{
		{"Situation", r.Situation, &s.Situation},
		{"Task", r.Task, &s.Task},
		{"Action", r.Action, &s.Action},
		{"Result", r.Result, &s.Result},
	} {
		if *f.dst, err = normalizeList(f.raw); err != nil {
			return Story{}, fmt.Errorf("story %q %s: %w", s.ID, f.name, err)
		}
	}
	return s, nil
}

// normalizeList accepts a JSON string, list of strings, or null.
func normalizeList(raw json.RawMessage) ([]string, error) {
	items, err := decodeStrings(raw)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out, nil
}

// normalizeTags accepts a list or a comma-separated string and de-duplicates case-insensitively.
func normalizeTags(raw json.RawMessage) ([]string, error) {
	items, err := decodeStrings(raw)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		for _, tag := range strings.Split(it, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	return out, nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case '[':
		var list []any
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(list))
		for _, v := range list {
			switch x := v.(type) {
			case nil:
			case string:
				out = append(out, x)
			default:
				out = append(out, fmt.Sprint(x))
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value %s", trimmed)
	}
}

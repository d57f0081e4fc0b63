// Package filter holds structured metadata filters over story fields.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/storydex/internal/domain/story"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// KeyTag matches against a story's tag list instead of a single field.
const KeyTag = "tag"

// Expression is a structured filter with must/must_not semantics.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// FromMap builds a must-only expression from key/value pairs, skipping blank values.
// Keys are applied in sorted order so Active output is stable.
func FromMap(m map[string]string) (Expression, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	must := make([]Condition, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(m[k]) == "" {
			continue
		}
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		must = append(must, c)
	}
	return NewExpression(must, nil)
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Matches reports whether s satisfies every must and no must_not condition.
func (e Expression) Matches(s *story.Story) bool {
	for _, c := range e.must {
		if !c.Matches(s) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.Matches(s) {
			return false
		}
	}
	return true
}

// Active is one applied condition as a (field, value) pair.
type Active struct {
	Field   string
	Value   string
	Negated bool
}

// String renders the pair as "field=value", prefixed with "!" when negated.
func (a Active) String() string {
	s := a.Field + "=" + a.Value
	if a.Negated {
		return "!" + s
	}
	return s
}

// Active lists the must conditions followed by the must-not conditions.
func (e Expression) Active() []Active {
	if e.IsEmpty() {
		return nil
	}
	out := make([]Active, 0, len(e.must)+len(e.mustNot))
	for _, c := range e.must {
		out = append(out, Active{Field: c.key, Value: c.match})
	}
	for _, c := range e.mustNot {
		out = append(out, Active{Field: c.key, Value: c.match, Negated: true})
	}
	return out
}

// Condition is a single case-insensitive equality clause.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact match condition on a story field or tag.
func NewMatch(key, match string) (Condition, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	match = strings.TrimSpace(match)
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	if key != KeyTag && !slices.Contains(story.FilterKeys, key) {
		return Condition{}, fmt.Errorf("unsupported filter key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Matches evaluates the condition against one story.
func (c Condition) Matches(s *story.Story) bool {
	if c.key == KeyTag {
		return s.HasTag(c.match)
	}
	v, ok := s.Field(c.key)
	return ok && strings.EqualFold(v, c.match)
}

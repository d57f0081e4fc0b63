// Package offdomain screens queries that fall outside the portfolio's subject matter.
package offdomain

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Rule is one compiled rejection pattern. Read-only after load.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
}

// ruleLine is the on-disk JSON-lines shape.
type ruleLine struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
}

// NewRule compiles pattern case-insensitively.
func NewRule(pattern, category string) (Rule, error) {
	if strings.TrimSpace(pattern) == "" {
		return Rule{}, fmt.Errorf("empty pattern")
	}
	if strings.TrimSpace(category) == "" {
		return Rule{}, fmt.Errorf("empty category for pattern %q", pattern)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Category: strings.TrimSpace(category)}, nil
}

// MustRule is NewRule that panics on error. For tests and static tables.
func MustRule(pattern, category string) Rule {
	r, err := NewRule(pattern, category)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRules reads JSON-lines rules from r in order.
// Blank lines and lines starting with '#' are ignored; invalid lines are skipped with a warning.
func ParseRules(r io.Reader, log *zap.Logger) ([]Rule, error) {
	var rules []Rule
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rl ruleLine
		if err := json.Unmarshal([]byte(line), &rl); err != nil {
			log.Warn("skipping invalid off-domain rule line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		rule, err := NewRule(rl.Pattern, rl.Category)
		if err != nil {
			log.Warn("skipping invalid off-domain rule", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return rules, fmt.Errorf("read rules: %w", err)
	}
	return rules, nil
}

// LoadRules reads rules from path. A missing file yields zero rules and no error.
func LoadRules(path string, log *zap.Logger) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("off-domain rule file not found, filter is open", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseRules(f, log)
}

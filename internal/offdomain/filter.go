package offdomain

import (
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Filter classifies queries against an ordered rule list. Rules load once on first use.
// Safe for concurrent use.
type Filter struct {
	path  string
	log   *zap.Logger
	audit *AuditLog

	mu     sync.Mutex
	loaded bool
	rules  []Rule
}

// NewFilter creates a filter that lazily loads rules from path.
// audit may be nil to disable rejection logging.
func NewFilter(path string, audit *AuditLog, log *zap.Logger) *Filter {
	return &Filter{path: path, audit: audit, log: log}
}

// NewFilterWithRules creates an already-loaded filter with an injected rule list.
func NewFilterWithRules(rules []Rule, audit *AuditLog, log *zap.Logger) *Filter {
	snapshot := make([]Rule, len(rules))
	copy(snapshot, rules)
	return &Filter{audit: audit, log: log, loaded: true, rules: snapshot}
}

// EnsureLoaded loads the rule file once. Read errors leave the filter open with zero rules.
func (f *Filter) EnsureLoaded() []Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return f.rules
	}

	rules, err := LoadRules(f.path, f.log)
	if err != nil {
		f.log.Error("off-domain rules failed to load, filter is open", zap.Error(err))
	}
	f.rules = rules
	f.loaded = true
	f.log.Info("off-domain rules loaded", zap.Int("count", len(rules)), zap.String("path", f.path))
	return f.rules
}

// Classify returns the category of the first matching rule. Blank input never matches.
func (f *Filter) Classify(query string) (string, bool) {
	if strings.TrimSpace(query) == "" {
		return "", false
	}
	for _, r := range f.EnsureLoaded() {
		if r.Pattern.MatchString(query) {
			f.Record(query, r.Category)
			return r.Category, true
		}
	}
	return "", false
}

// Record appends a rejection to the audit log when one is configured.
func (f *Filter) Record(query, category string) {
	if f.audit != nil {
		f.audit.Record(query, category)
	}
}

// RuleCount returns the number of loaded rules.
func (f *Filter) RuleCount() int {
	return len(f.EnsureLoaded())
}

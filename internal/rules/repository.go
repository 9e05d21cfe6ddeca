package rules

import (
	"context"
	"sync"
	"time"

	"taxcore/internal/model"

	"golang.org/x/sync/singleflight"
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_rule_repository.go -package=mocks

// Repository is the read side of the rule store.
type Repository interface {
	// ListRules returns the rules of ruleType that may be effective on asOf.
	ListRules(ctx context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error)
}

// MemoryRepository is an in-process rule store, used by tests and offline runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	rules []model.TaxRule
}

func NewMemoryRepository(rules ...model.TaxRule) *MemoryRepository {
	return &MemoryRepository{rules: append([]model.TaxRule(nil), rules...)}
}

func (m *MemoryRepository) Add(rule model.TaxRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

func (m *MemoryRepository) ListRules(_ context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.TaxRule
	for _, r := range m.rules {
		if r.RuleType == ruleType && r.EffectiveOn(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CachedRepository memoizes ListRules per (rule type, day) for the lifetime of
// one batch run. Concurrent misses for the same key share a single fetch.
// Returned slices are shared and must not be modified.
type CachedRepository struct {
	repo    Repository
	mu      sync.Mutex
	entries map[string][]model.TaxRule
	group   singleflight.Group
}

func NewCachedRepository(repo Repository) *CachedRepository {
	return &CachedRepository{repo: repo, entries: make(map[string][]model.TaxRule)}
}

func (c *CachedRepository) ListRules(ctx context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error) {
	key := ruleType + "|" + asOf.Format("2006-01-02")

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		rules, err := c.repo.ListRules(ctx, ruleType, asOf)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = rules
		c.mu.Unlock()
		return rules, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.TaxRule), nil
}

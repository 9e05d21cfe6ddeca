// Package rules selects the tax rules that apply to a set of facts.
package rules

import (
	"context"
	"sort"
	"time"

	"taxcore/internal/condition"
	"taxcore/internal/model"
	"taxcore/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Match is a rule whose window and condition both held.
type Match struct {
	RuleID    uuid.UUID       `json:"rule_id"`
	Name      string          `json:"name"`
	Action    string          `json:"action"`
	Value     decimal.Decimal `json:"value"`
	Reason    string          `json:"reason"`
	Priority  int             `json:"priority"`
	ConfigKey string          `json:"config_key,omitempty"`
}

// Engine evaluates stored rules. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	repo   Repository
	logger *zap.Logger
	clock  func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used for age predicates.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func NewEngine(repo Repository, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{repo: repo, logger: logger.OrNop(log), clock: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRepository returns a copy of the engine reading from repo. Batch runs use
// it to put a CachedRepository in front of the store.
func (e *Engine) WithRepository(repo Repository) *Engine {
	cp := *e
	cp.repo = repo
	return &cp
}

func (e *Engine) Repository() Repository {
	return e.repo
}

// Select returns the rules of ruleType effective on asOf whose condition holds
// for facts, ordered by ascending priority and then creation time. An empty or
// failing store yields no matches.
func (e *Engine) Select(ctx context.Context, ruleType string, facts condition.Context, asOf time.Time) []Match {
	if e == nil || e.repo == nil {
		return nil
	}

	stored, err := e.repo.ListRules(ctx, ruleType, asOf)
	if err != nil {
		e.logger.Warn("Rule store unavailable, falling back to built-in defaults",
			zap.String("rule_type", ruleType),
			zap.Error(err))
		return nil
	}

	candidates := make([]model.TaxRule, 0, len(stored))
	for _, r := range stored {
		if r.EffectiveOn(asOf) {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	now := e.clock()
	var matches []Match
	for _, r := range candidates {
		cond, err := condition.Parse(r.Condition)
		if err != nil {
			e.logger.Warn("Skipping rule with malformed condition",
				zap.String("rule_id", r.ID.String()),
				zap.String("rule_type", r.RuleType),
				zap.Error(err))
			continue
		}
		if !condition.EvaluateAt(cond, facts, now) {
			continue
		}
		matches = append(matches, toMatch(r))
	}
	return matches
}

// RuleValue returns the value of the first CONFIG_VALUE rule of ruleType that
// overrides key on asOf, or def when none does.
func (e *Engine) RuleValue(ctx context.Context, ruleType, key string, asOf time.Time, def decimal.Decimal) decimal.Decimal {
	for _, m := range e.Select(ctx, ruleType, condition.Context{}, asOf) {
		if m.Action == model.ActionConfigValue && m.ConfigKey == key {
			return m.Value
		}
	}
	return def
}

var severity = map[string]int{
	model.ActionReject:      4,
	model.ActionPartial:     3,
	model.ActionWarn:        2,
	model.ActionConfigValue: 1,
}

// MostRestrictive picks REJECT over PARTIAL over WARN over CONFIG_VALUE. Among
// PARTIAL matches the lowest value wins; otherwise the earliest match wins.
func MostRestrictive(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		switch {
		case severity[m.Action] > severity[best.Action]:
			best = m
		case m.Action == model.ActionPartial && best.Action == model.ActionPartial && m.Value.LessThan(best.Value):
			best = m
		}
	}
	return best, true
}

func toMatch(r model.TaxRule) Match {
	reason := r.Description
	if reason == "" {
		reason = r.Name
	}
	return Match{
		RuleID:    r.ID,
		Name:      r.Name,
		Action:    r.Action,
		Value:     r.Value,
		Reason:    reason,
		Priority:  r.Priority,
		ConfigKey: r.ConfigKey,
	}
}

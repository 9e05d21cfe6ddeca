package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"taxcore/internal/model"
	"taxcore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]model.TaxRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]model.TaxRule)}
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *model.TaxRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	f.rules[rule.ID] = *rule
	return nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *model.TaxRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule.UpdatedAt = time.Now()
	f.rules[rule.ID] = *rule
	return nil
}

func (f *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rules, id)
	return nil
}

func (f *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TaxRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeRuleRepo) List(_ context.Context, ruleType string, _, _ int) ([]model.TaxRule, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TaxRule
	for _, r := range f.rules {
		if ruleType == "" || r.RuleType == ruleType {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRuleRepo) ListRules(_ context.Context, ruleType string, asOf time.Time) ([]model.TaxRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.TaxRule
	for _, r := range f.rules {
		if r.RuleType == ruleType && r.EffectiveOn(asOf) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
	err     error
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, filter repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditLog
	for _, e := range f.entries {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		out = append(out, e)
	}
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := min(start+limit, len(out))
	return out[start:end], total, nil
}

// fakeTxManager runs fn inline and counts units of work.
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeExpenseRepo struct {
	lines []model.ExpenseLine
	err   error
}

func (f *fakeExpenseRepo) Create(_ context.Context, line *model.ExpenseLine) error {
	f.lines = append(f.lines, *line)
	return nil
}

func (f *fakeExpenseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ExpenseLine, error) {
	for _, l := range f.lines {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeExpenseRepo) ListByPeriod(_ context.Context, _, _ time.Time) ([]model.ExpenseLine, error) {
	return f.lines, f.err
}

type fakePayrollRepo struct {
	entries map[string][]model.PayrollEntry
}

func (f *fakePayrollRepo) Create(_ context.Context, entry *model.PayrollEntry) error {
	if f.entries == nil {
		f.entries = make(map[string][]model.PayrollEntry)
	}
	f.entries[entry.Period] = append(f.entries[entry.Period], *entry)
	return nil
}

func (f *fakePayrollRepo) ListByPeriod(_ context.Context, period string) ([]model.PayrollEntry, error) {
	return f.entries[period], nil
}

type event struct {
	Type    string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingBroadcaster) BroadcastEvent(eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{Type: eventType, Payload: payload})
}

var errStore = errors.New("store unavailable")

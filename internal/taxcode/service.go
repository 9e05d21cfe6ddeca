package taxcode

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"taxcore/internal/model"
	"taxcore/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store persists resolved and manually entered registrations.
type Store interface {
	// Get returns nil, nil when the code is unknown.
	Get(ctx context.Context, taxCode string) (*model.TaxCodeRecord, error)
	Save(ctx context.Context, rec *model.TaxCodeRecord) error
}

// Service resolves codes from the store first and the live registry second.
type Service struct {
	registry Lookuper
	store    Store
	matcher  Matcher
	maxAge   time.Duration
	logger   *zap.Logger
	clock    func() time.Time
}

// NewService wires a registry with an optional store. Live records older than
// maxAge are refreshed; zero keeps them forever.
func NewService(registry Lookuper, store Store, matcher Matcher, maxAge time.Duration, log *zap.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		matcher:  matcher,
		maxAge:   maxAge,
		logger:   logger.OrNop(log),
		clock:    time.Now,
	}
}

func (s *Service) Lookup(ctx context.Context, raw string) LookupResult {
	code, err := ValidateFormat(raw)
	if err != nil {
		return failure(raw, model.SourceLive, err.Error())
	}

	var stale *model.TaxCodeRecord
	if s.store != nil {
		rec, err := s.store.Get(ctx, code)
		if err != nil {
			s.logger.Warn("Tax code cache read failed", zap.String("tax_code", code), zap.Error(err))
		}
		if rec != nil {
			if rec.Source == model.SourceManual {
				return fromRecord(rec, model.SourceManual)
			}
			if s.maxAge == 0 || s.clock().Sub(rec.FetchedAt) < s.maxAge {
				return fromRecord(rec, model.SourceCache)
			}
			stale = rec
		}
	}

	if s.registry == nil {
		if stale != nil {
			return fromRecord(stale, model.SourceCache)
		}
		return failure(code, model.SourceLive, "tax registry is not configured")
	}

	res := s.registry.Lookup(ctx, code)
	if !res.Success {
		if stale != nil && !res.NotRegistered {
			s.logger.Info("Serving stale registration after registry failure",
				zap.String("tax_code", code),
				zap.String("reason", res.Reason))
			return fromRecord(stale, model.SourceCache)
		}
		return res
	}

	if s.store != nil {
		rec := &model.TaxCodeRecord{
			TaxCode:   code,
			Name:      res.Name,
			ShortName: res.ShortName,
			Address:   res.Address,
			Source:    model.SourceLive,
			FetchedAt: s.clock(),
		}
		if err := s.store.Save(ctx, rec); err != nil {
			s.logger.Warn("Tax code cache write failed", zap.String("tax_code", code), zap.Error(err))
		}
	}
	return res
}

// Verify looks the code up and, when inputName is given, scores it against the
// registered names.
func (s *Service) Verify(ctx context.Context, raw, inputName string) LookupResult {
	res := s.Lookup(ctx, raw)
	if !res.Success || strings.TrimSpace(inputName) == "" {
		return res
	}
	m := s.matcher.MatchRegistered(inputName, res)
	res.Score = &m.Score
	res.NameMatched = &m.IsMatch
	return res
}

// Match exposes the configured matcher.
func (s *Service) Match(input, registered string) MatchResult {
	return s.matcher.Match(input, registered)
}

// RegisterManual records a registration typed in by a reviewer when the
// registry cannot resolve the code.
func (s *Service) RegisterManual(ctx context.Context, raw, name, address string) (LookupResult, error) {
	code, err := ValidateFormat(raw)
	if err != nil {
		return LookupResult{}, err
	}
	if strings.TrimSpace(name) == "" {
		return LookupResult{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if s.store == nil {
		return LookupResult{}, fmt.Errorf("manual registration requires a tax code store")
	}

	rec := &model.TaxCodeRecord{
		TaxCode:   code,
		Name:      strings.TrimSpace(name),
		Address:   strings.TrimSpace(address),
		Source:    model.SourceManual,
		FetchedAt: s.clock(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return LookupResult{}, fmt.Errorf("failed to save manual tax code: %w", err)
	}
	return fromRecord(rec, model.SourceManual), nil
}

// BatchLookup memoizes lookups for one evaluation pass so a supplier that
// appears on many invoices is resolved once. Safe for concurrent use.
type BatchLookup struct {
	inner   Lookuper
	mu      sync.Mutex
	results map[string]LookupResult
	group   singleflight.Group
}

func NewBatchLookup(inner Lookuper) *BatchLookup {
	return &BatchLookup{inner: inner, results: make(map[string]LookupResult)}
}

func (b *BatchLookup) Lookup(ctx context.Context, raw string) LookupResult {
	code, err := ValidateFormat(raw)
	if err != nil {
		return failure(raw, model.SourceLive, err.Error())
	}

	b.mu.Lock()
	res, ok := b.results[code]
	b.mu.Unlock()
	if ok {
		if res.Success && res.Source == model.SourceLive {
			res.Source = model.SourceCache
		}
		return res
	}

	v, _, _ := b.group.Do(code, func() (interface{}, error) {
		r := b.inner.Lookup(ctx, code)
		b.mu.Lock()
		b.results[code] = r
		b.mu.Unlock()
		return r, nil
	})
	return v.(LookupResult)
}

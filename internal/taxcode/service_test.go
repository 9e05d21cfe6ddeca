package taxcode_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"taxcore/internal/mocks"
	"taxcore/internal/model"
	"taxcore/internal/taxcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]model.TaxCodeRecord
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]model.TaxCodeRecord)}
}

func (m *memStore) Get(_ context.Context, code string) (*model.TaxCodeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[code]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Save(_ context.Context, rec *model.TaxCodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.TaxCode] = *rec
	return nil
}

func liveResult(code, name string) taxcode.LookupResult {
	return taxcode.LookupResult{Success: true, TaxCode: code, Name: name, Source: model.SourceLive}
}

func TestService_Lookup_PersistsLiveThenServesCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)
	registry.EXPECT().Lookup(gomock.Any(), "0101234567").
		Return(liveResult("0101234567", "CÔNG TY TNHH ABC")).
		Times(1)

	store := newMemStore()
	svc := taxcode.NewService(registry, store, taxcode.NewMatcher(0), time.Hour, nil)
	ctx := context.Background()

	first := svc.Lookup(ctx, "0101234567")
	require.True(t, first.Success)
	assert.Equal(t, model.SourceLive, first.Source)

	second := svc.Lookup(ctx, "0101-234-567")
	require.True(t, second.Success)
	assert.Equal(t, model.SourceCache, second.Source)
	assert.Equal(t, "CÔNG TY TNHH ABC", second.Name)
}

func TestService_Lookup_InvalidFormatSkipsRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)

	svc := taxcode.NewService(registry, newMemStore(), taxcode.NewMatcher(0), time.Hour, nil)
	res := svc.Lookup(context.Background(), "01")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Reason)
}

func TestService_RegisterManual(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)

	svc := taxcode.NewService(registry, newMemStore(), taxcode.NewMatcher(0), time.Hour, nil)
	ctx := context.Background()

	_, err := svc.RegisterManual(ctx, "0101234567", "  ", "")
	assert.ErrorIs(t, err, taxcode.ErrInvalidInput)

	_, err = svc.RegisterManual(ctx, "abc", "Cty A", "")
	assert.ErrorIs(t, err, taxcode.ErrInvalidTaxCode)

	saved, err := svc.RegisterManual(ctx, "0101234567", "Công ty Thủ Công", "Huế")
	require.NoError(t, err)
	assert.Equal(t, model.SourceManual, saved.Source)

	res := svc.Lookup(ctx, "0101234567")
	assert.True(t, res.Success)
	assert.Equal(t, model.SourceManual, res.Source)
	assert.Equal(t, "Công ty Thủ Công", res.Name)
}

func TestService_Lookup_StaleRecordIsFallbackOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)
	gomock.InOrder(
		registry.EXPECT().Lookup(gomock.Any(), "0101234567").
			Return(liveResult("0101234567", "CTY CŨ")),
		registry.EXPECT().Lookup(gomock.Any(), "0101234567").
			Return(taxcode.LookupResult{TaxCode: "0101234567", Source: model.SourceLive, Reason: "registry returned status 503"}),
		registry.EXPECT().Lookup(gomock.Any(), "0101234567").
			Return(taxcode.LookupResult{TaxCode: "0101234567", Source: model.SourceLive, NotRegistered: true, Reason: "tax code 0101234567 is not registered"}),
	)

	svc := taxcode.NewService(registry, newMemStore(), taxcode.NewMatcher(0), time.Nanosecond, nil)
	ctx := context.Background()

	require.True(t, svc.Lookup(ctx, "0101234567").Success)
	time.Sleep(time.Millisecond)

	fallback := svc.Lookup(ctx, "0101234567")
	assert.True(t, fallback.Success)
	assert.Equal(t, model.SourceCache, fallback.Source)
	assert.Equal(t, "CTY CŨ", fallback.Name)

	gone := svc.Lookup(ctx, "0101234567")
	assert.False(t, gone.Success)
	assert.True(t, gone.NotRegistered)
}

func TestService_Verify_ScoresName(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)
	registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).
		Return(liveResult("0101234567", "CÔNG TY TNHH THƯƠNG MẠI ABC")).
		AnyTimes()

	svc := taxcode.NewService(registry, nil, taxcode.NewMatcher(0), 0, nil)
	ctx := context.Background()

	res := svc.Verify(ctx, "0101234567", "Cty TNHH TM ABC")
	require.NotNil(t, res.Score)
	require.NotNil(t, res.NameMatched)
	assert.True(t, *res.NameMatched)
	assert.Equal(t, 100, *res.Score)

	res = svc.Verify(ctx, "0101234567", "Hợp tác xã Nông nghiệp XYZ")
	require.NotNil(t, res.NameMatched)
	assert.False(t, *res.NameMatched)

	res = svc.Verify(ctx, "0101234567", "")
	assert.Nil(t, res.Score)
}

func TestBatchLookup_DeduplicatesConcurrentCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockLookuper(ctrl)
	registry.EXPECT().Lookup(gomock.Any(), "0309876543").
		DoAndReturn(func(context.Context, string) taxcode.LookupResult {
			time.Sleep(10 * time.Millisecond)
			return liveResult("0309876543", "CTY CP XYZ")
		}).
		Times(1)

	batch := taxcode.NewBatchLookup(registry)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, batch.Lookup(ctx, "0309876543").Success)
		}()
	}
	wg.Wait()

	again := batch.Lookup(ctx, "0309-876-543")
	assert.True(t, again.Success)
	assert.Equal(t, model.SourceCache, again.Source)
}

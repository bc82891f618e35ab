package catalog_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/sparks/internal/cache"
	"github.com/dukerupert/sparks/internal/catalog"
	"github.com/dukerupert/sparks/internal/domain"
	"github.com/dukerupert/sparks/internal/notify"
)

// mockProductSource implements catalog.ProductSource for testing
type mockProductSource struct {
	getProductFunc      func(ctx context.Context, id domain.ID) (domain.Product, error)
	relatedProductsFunc func(ctx context.Context, id domain.ID) ([]domain.Product, error)

	gets atomic.Int32
}

func (m *mockProductSource) GetProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	m.gets.Add(1)
	if m.getProductFunc != nil {
		return m.getProductFunc(ctx, id)
	}
	return domain.Product{ID: id, Title: "p" + id.String()}, nil
}

func (m *mockProductSource) RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error) {
	if m.relatedProductsFunc != nil {
		return m.relatedProductsFunc(ctx, id)
	}
	return products("r1", "r2"), nil
}

func TestDetails_Get(t *testing.T) {
	source := &mockProductSource{}
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source})

	got, err := details.Get(context.Background(), "7")

	require.NoError(t, err)
	assert.Equal(t, domain.ID("7"), got.Product.ID)
	assert.Len(t, got.Related, 2)
}

func TestDetails_EmptyID(t *testing.T) {
	source := &mockProductSource{}
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source})

	_, err := details.Get(context.Background(), "")

	assert.True(t, domain.IsCode(err, domain.EINVALID))
	assert.Equal(t, int32(0), source.gets.Load())
}

func TestDetails_RelatedFailureIsNotFatal(t *testing.T) {
	rec := &notify.Recorder{}
	source := &mockProductSource{
		relatedProductsFunc: func(context.Context, domain.ID) ([]domain.Product, error) {
			return nil, domain.Server("remote.related_products", 500, "boom")
		},
	}
	details := catalog.NewDetails(catalog.DetailsConfig{
		Source:   source,
		Reporter: &notify.Reporter{Notifier: rec},
	})

	got, err := details.Get(context.Background(), "7")

	require.NoError(t, err)
	assert.Equal(t, domain.ID("7"), got.Product.ID)
	assert.NotNil(t, got.Related)
	assert.Empty(t, got.Related)
	assert.Empty(t, rec.All())
}

func TestDetails_ProductFailureIsReported(t *testing.T) {
	rec := &notify.Recorder{}
	source := &mockProductSource{
		getProductFunc: func(context.Context, domain.ID) (domain.Product, error) {
			return domain.Product{}, domain.Network(errors.New("dial tcp: refused"), "remote.get_product")
		},
	}
	details := catalog.NewDetails(catalog.DetailsConfig{
		Source:   source,
		Reporter: &notify.Reporter{Notifier: rec},
	})

	_, err := details.Get(context.Background(), "7")

	require.Error(t, err)
	assert.Equal(t, domain.ENETWORK, domain.ErrorCode(err))
	assert.Equal(t, "catalog.product_detail", domain.ErrorOp(err))

	notes := rec.All()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.MessageNetwork, notes[0].Message)
}

func TestDetails_CachesByID(t *testing.T) {
	source := &mockProductSource{}
	mem := cache.NewMemory(time.Minute)
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source, Cache: mem})
	ctx := context.Background()

	first, err := details.Get(ctx, "7")
	require.NoError(t, err)
	second, err := details.Get(ctx, "7")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), source.gets.Load())

	require.NoError(t, details.Invalidate(ctx, "7"))
	_, err = details.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.gets.Load())
}

func TestDetails_ConcurrentRequestsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	source := &mockProductSource{
		getProductFunc: func(_ context.Context, id domain.ID) (domain.Product, error) {
			<-release
			return domain.Product{ID: id}, nil
		},
	}
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := details.Get(context.Background(), "7")
			assert.NoError(t, err)
			assert.Equal(t, domain.ID("7"), got.Product.ID)
		}()
	}

	require.Eventually(t, func() bool { return source.gets.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), source.gets.Load())
}

func TestDetails_RelatedFailureIsNotCached(t *testing.T) {
	var relatedDown atomic.Bool
	relatedDown.Store(true)
	source := &mockProductSource{
		relatedProductsFunc: func(context.Context, domain.ID) ([]domain.Product, error) {
			if relatedDown.Load() {
				return nil, domain.Server("remote.related_products", 503, "unavailable")
			}
			return products("r1"), nil
		},
	}
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source, Cache: cache.NewMemory(time.Minute)})
	ctx := context.Background()

	first, err := details.Get(ctx, "7")
	require.NoError(t, err)
	assert.Empty(t, first.Related)

	relatedDown.Store(false)
	second, err := details.Get(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, second.Related, 1)
	assert.Equal(t, int32(2), source.gets.Load())

	third, err := details.Get(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, third.Related, 1)
	assert.Equal(t, int32(2), source.gets.Load())
}

func TestDetails_CanceledCallerLeavesOthersRunning(t *testing.T) {
	release := make(chan struct{})
	source := &mockProductSource{
		getProductFunc: func(ctx context.Context, id domain.ID) (domain.Product, error) {
			select {
			case <-release:
				return domain.Product{ID: id}, nil
			case <-ctx.Done():
				return domain.Product{}, ctx.Err()
			}
		},
	}
	details := catalog.NewDetails(catalog.DetailsConfig{Source: source})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := details.Get(ctxA, "7")
		errA <- err
	}()
	require.Eventually(t, func() bool { return source.gets.Load() == 1 }, time.Second, 5*time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		got, err := details.Get(context.Background(), "7")
		if err == nil && got.Product.ID != "7" {
			err = errors.New("unexpected product " + got.Product.ID.String())
		}
		errB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(release)
	select {
	case err := <-errB:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int32(1), source.gets.Load())
}

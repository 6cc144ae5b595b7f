package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

func newTestCache(t *testing.T) (*catalog.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute), mr
}

func TestRememberLoadsOnce(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) ([]catalog.Category, error) {
		calls++
		return []catalog.Category{{ID: "root", Name: "Home", IsActive: true}}, nil
	}

	first, err := catalog.Remember(ctx, cache, catalog.CategoriesKey(), load)
	require.NoError(t, err)
	second, err := catalog.Remember(ctx, cache, catalog.CategoriesKey(), load)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
	require.True(t, mr.Exists(catalog.CategoriesKey()))
	require.Equal(t, time.Minute, mr.TTL(catalog.CategoriesKey()))

	require.NoError(t, cache.Invalidate(ctx, catalog.CategoriesKey()))
	_, err = catalog.Remember(ctx, cache, catalog.CategoriesKey(), load)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestRememberPropagatesLoadError(t *testing.T) {
	cache, mr := newTestCache(t)
	boom := errors.New("boom")
	_, err := catalog.Remember(context.Background(), cache, catalog.ProductKey("p"), func(context.Context) (catalog.Product, error) {
		return catalog.Product{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(catalog.ProductKey("p")))
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *catalog.Cache
	ok, err := cache.GetJSON(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.SetJSON(context.Background(), "k", 1))
}

func TestRememberReportsHitsAndMisses(t *testing.T) {
	cache, _ := newTestCache(t)
	var seen []string
	cache.WithObserver(func(kind string, hit bool) {
		if hit {
			seen = append(seen, kind+":hit")
			return
		}
		seen = append(seen, kind+":miss")
	})
	load := func(context.Context) (catalog.Product, error) { return catalog.Product{ID: "p1"}, nil }

	_, err := catalog.Remember(context.Background(), cache, catalog.ProductKey("p1"), load)
	require.NoError(t, err)
	_, err = catalog.Remember(context.Background(), cache, catalog.ProductKey("p1"), load)
	require.NoError(t, err)

	require.Equal(t, []string{"product:miss", "product:hit"}, seen)
}

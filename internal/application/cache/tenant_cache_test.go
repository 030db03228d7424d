package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taskvault-api/internal/application/cache"
	"github.com/jhoicas/taskvault-api/internal/testutil"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

func newCache(store *testutil.MemoryCache) *cache.TenantCache {
	return cache.NewTenantCache(store, time.Minute, logger.Nop())
}

func TestHashQuery_IndependienteDelOrden(t *testing.T) {
	a := map[string]string{"status": "PENDING", "priority": "HIGH", "page": "1"}
	b := map[string]string{"page": "1", "priority": "HIGH", "status": "PENDING"}
	assert.Equal(t, cache.HashQuery(a), cache.HashQuery(b))
	assert.NotEqual(t, cache.HashQuery(a), cache.HashQuery(map[string]string{"status": "PENDING"}))
	assert.Len(t, cache.HashQuery(nil), 32)
}

func TestHashQuery_SeparadoresNoColisionan(t *testing.T) {
	a := map[string]string{"a": "b;c=d"}
	b := map[string]string{"a": "b", "c": "d"}
	assert.NotEqual(t, cache.HashQuery(a), cache.HashQuery(b))
}

func TestBuildKey_Formato(t *testing.T) {
	key := cache.BuildKey("org-1", 3, "u-1", "tasks", nil)
	assert.Equal(t, "cache:tenant:org-1:gen:3:user:u-1:view:tasks:params:"+cache.HashQuery(nil), key)
}

func TestGeneration_AusenteValeUno(t *testing.T) {
	store := testutil.NewMemoryCache()
	c := newCache(store)

	gen, err := c.Generation(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestInvalidate_SoloAfectaAlTenant(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryCache()
	c := newCache(store)
	params := func(org string) cache.KeyParams {
		return cache.KeyParams{OrganizationID: org, UserID: "u", View: "tasks"}
	}

	a1, err := c.Key(ctx, params("org-a"))
	require.NoError(t, err)
	b1, err := c.Key(ctx, params("org-b"))
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(ctx, "org-a"))

	a2, err := c.Key(ctx, params("org-a"))
	require.NoError(t, err)
	b2, err := c.Key(ctx, params("org-b"))
	require.NoError(t, err)

	assert.NotEqual(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestInvalidate_SinContadorPrevioIgualCambiaLaClave(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryCache()
	c := newCache(store)

	// Un lector sin contador usa la generación implícita 1.
	before := cache.BuildKey("org-a", 1, "u", "tasks", nil)
	require.NoError(t, c.Invalidate(ctx, "org-a"))

	after, err := c.Key(ctx, cache.KeyParams{OrganizationID: "org-a", UserID: "u", View: "tasks"})
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFetchStore_RoundTripConTTL(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryCache()
	c := newCache(store)

	type page struct{ IDs []string }
	c.Store(ctx, "k", page{IDs: []string{"t1", "t2"}})
	assert.Equal(t, time.Minute, store.LastTTL)

	var got page
	require.True(t, c.Fetch(ctx, "k", &got))
	assert.Equal(t, []string{"t1", "t2"}, got.IDs)
	assert.False(t, c.Fetch(ctx, "otra", &got))
}

func TestFetch_ErrorDelStoreEsMiss(t *testing.T) {
	store := testutil.NewMemoryCache()
	store.Err = errors.New("redis caído")
	c := newCache(store)

	var v map[string]string
	assert.False(t, c.Fetch(context.Background(), "k", &v))
	c.Store(context.Background(), "k", map[string]string{"a": "b"})
	c.InvalidateQuietly(context.Background(), "org-a")
}

package service

import (
	"context"
	"testing"

	"farmlink/internal/cache"
	"farmlink/internal/models"
	"farmlink/internal/repository"
	"farmlink/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestSchemeService_CachesAndInvalidates(t *testing.T) {
	mr := useMiniredis(t)
	db := testutil.NewDB(t)
	svc := NewSchemeService(repository.NewSchemeRepository(db))
	ctx := context.Background()

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, mr.Exists(cache.SchemeListKey()))
	assert.Equal(t, cache.SchemeTTL, mr.TTL(cache.SchemeListKey()))

	created, err := svc.Create(ctx, SchemeInput{Name: " PM-KISAN ", Benefit: "Income support", ApplyURL: "https://pmkisan.gov.in"})
	require.NoError(t, err)
	assert.Equal(t, "PM-KISAN", created.Name)
	assert.False(t, mr.Exists(cache.SchemeListKey()), "create drops the cached list")

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// A change made directly in the database stays hidden behind the cached list.
	require.NoError(t, db.Model(&models.GovernmentScheme{}).Where("id = ?", created.ID).Update("benefit", "edited").Error)
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Benefit)
	assert.True(t, mr.Exists(cache.SchemeKey(created.ID)))
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Income support", list[0].Benefit)

	updated, err := svc.Update(ctx, created.ID, SchemeInput{Name: "PM-KISAN", Benefit: "Rs 6000 per year"})
	require.NoError(t, err)
	assert.Equal(t, "Rs 6000 per year", updated.Benefit)
	assert.False(t, mr.Exists(cache.SchemeKey(created.ID)))

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rs 6000 per year", list[0].Benefit)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assertCode(t, err, models.CodeNotFound)
	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSchemeService_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSchemeService(repository.NewSchemeRepository(db))

	_, err := svc.Create(context.Background(), SchemeInput{Name: " ", ApplyURL: "ftp://example.com"})
	assertValidationError(t, err)
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "apply_url")

	err = svc.Delete(context.Background(), 404)
	assertCode(t, err, models.CodeNotFound)
}

func TestSchemeService_WorksWithoutRedis(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSchemeService(repository.NewSchemeRepository(db))
	ctx := context.Background()

	_, err := svc.Create(ctx, SchemeInput{Name: "Soil Health Card"})
	require.NoError(t, err)
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

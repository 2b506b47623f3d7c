// Package integration exercises the catalog, index cache, search service
// and watcher together against each cache backend.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/menu"
	"github.com/Aman-CERP/menusearch/internal/search"
	"github.com/Aman-CERP/menusearch/internal/store"
	"github.com/Aman-CERP/menusearch/internal/telemetry"
	"github.com/Aman-CERP/menusearch/internal/watcher"
)

const catalogV1 = `
order_types:
  - name: Delivery
    categories:
      - name: Pizza
      - name: Chicken Wings
      - name: Desserts
  - name: Take Out
    categories:
      - name: Burgers
      - name: Fries
`

const catalogV2 = `
order_types:
  - name: Delivery
    categories:
      - name: Pizza
      - name: Chicken Wings
      - name: Desserts
      - name: Noodle Bowls
  - name: Take Out
    categories:
      - name: Burgers
      - name: Fries
`

func writeCatalog(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// backends opens every cache backend against fresh storage.
func backends(t *testing.T) map[string]store.BackendOptions {
	t.Helper()
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	return map[string]store.BackendOptions{
		store.BackendFile:   {Backend: store.BackendFile, Dir: filepath.Join(dir, "indexes")},
		store.BackendSQLite: {Backend: store.BackendSQLite, SQLitePath: filepath.Join(dir, "indexes.db")},
		store.BackendRedis:  {Backend: store.BackendRedis, RedisURL: "redis://" + mr.Addr() + "/0"},
		store.BackendMemory: {Backend: store.BackendMemory},
	}
}

func newService(t *testing.T, catalogPath string, blobs store.BlobStore, opts ...search.ServiceOption) *search.Service {
	t.Helper()
	indexer := store.NewIndexer(store.NewCache(blobs))
	opts = append([]search.ServiceOption{search.WithNamespace("acme")}, opts...)
	return search.NewService(menu.NewFileProvider(catalogPath), indexer, opts...)
}

func TestIntegration_SyncThenSearch_AllBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for name, opts := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			catalog := filepath.Join(t.TempDir(), "catalog.yaml")
			writeCatalog(t, catalog, catalogV1)

			blobs, err := store.NewBlobStore(ctx, opts)
			require.NoError(t, err)
			t.Cleanup(func() { _ = blobs.Close() })

			// Given: a synced service
			svc := newService(t, catalog, blobs)
			report, err := svc.SyncIndexes(ctx)
			require.NoError(t, err)
			require.Len(t, report.Results, 2)
			assert.Zero(t, report.Failed())

			// When: searching with a plural the catalog lists in singular
			got, err := svc.SimpleSearch(ctx, "pizzas", "Delivery", 5)

			// Then: the stemmed variant finds it
			require.NoError(t, err)
			assert.Equal(t, []string{"Pizza"}, got)

			// And: a second service over the same cache reuses the artifacts
			again, err := newService(t, catalog, blobs).SyncIndexes(ctx)
			require.NoError(t, err)
			for _, res := range again.Results {
				assert.Equal(t, telemetry.BuildReused, res.Outcome, res.OrderType)
			}
		})
	}
}

func TestIntegration_PersistedIndexSurvivesMissingCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: indexes persisted to a SQLite cache
	ctx := context.Background()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	writeCatalog(t, catalog, catalogV1)
	dbPath := filepath.Join(dir, "indexes.db")

	blobs, err := store.NewSQLiteBlobStore(dbPath)
	require.NoError(t, err)
	_, err = newService(t, catalog, blobs).SyncIndexes(ctx)
	require.NoError(t, err)
	require.NoError(t, blobs.Close())

	// When: the catalog disappears and a new process opens the cache
	require.NoError(t, os.Remove(catalog))
	blobs, err = store.NewSQLiteBlobStore(dbPath)
	require.NoError(t, err)
	defer blobs.Close()
	svc := newService(t, catalog, blobs)

	// Then: the last persisted index still answers
	got, err := svc.SimpleSearch(ctx, "fries", "take out", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fries"}, got)

	// And: an order type never indexed is unavailable
	_, err = svc.SimpleSearch(ctx, "fries", "catering", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrIndexUnavailable)
}

func TestIntegration_UnknownOrderType(t *testing.T) {
	ctx := context.Background()
	catalog := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, catalog, catalogV1)

	_, err := newService(t, catalog, store.NewMemoryBlobStore()).SimpleSearch(ctx, "pizza", "Catering", 3)

	require.Error(t, err)
	assert.True(t, merrors.HasCode(err, merrors.ErrCodeUnknownOrderType))
}

func TestIntegration_WatcherResyncsOnCatalogEdit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, polling := range []bool{false, true} {
		t.Run(fmt.Sprintf("polling=%v", polling), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Given: a service serving the first catalog from a Redis cache
			mr := miniredis.RunT(t)
			blobs, err := store.NewBlobStore(ctx, store.BackendOptions{Backend: store.BackendRedis, RedisURL: "redis://" + mr.Addr()})
			require.NoError(t, err)
			defer blobs.Close()

			catalog := filepath.Join(t.TempDir(), "catalog.yaml")
			writeCatalog(t, catalog, catalogV1)
			svc := newService(t, catalog, blobs, search.WithMemo(16, 0))
			got, err := svc.SimpleSearch(ctx, "noodle", "Delivery", 3)
			require.NoError(t, err)
			require.Empty(t, got)

			// And: a watcher resyncing on change
			w := watcher.New(catalog, func(ctx context.Context) error {
				_, err := svc.SyncIndexes(ctx)
				return err
			}, watcher.Options{
				Debounce:     50 * time.Millisecond,
				PollInterval: 50 * time.Millisecond,
				ForcePolling: polling,
			}, nil)
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			time.Sleep(150 * time.Millisecond)

			// When: a category is added
			writeCatalog(t, catalog, catalogV2)

			// Then: the new category becomes searchable without a restart
			assert.Eventually(t, func() bool {
				got, err := svc.SimpleSearch(ctx, "noodle", "Delivery", 3)
				return err == nil && len(got) == 1 && got[0] == "Noodle Bowls"
			}, 5*time.Second, 50*time.Millisecond)
			assert.GreaterOrEqual(t, w.Syncs(), int64(1))

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("watcher did not stop")
			}
		})
	}
}

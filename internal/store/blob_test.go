package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobStoreContract exercises the behavior every backend must share.
func blobStoreContract(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()
	key := "acme/delivery_categories.idx"

	_, err := s.Read(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, key, []byte("v1")))
	require.NoError(t, s.Write(ctx, key, []byte("v2")))

	got, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Read(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestMemoryBlobStore(t *testing.T) {
	blobStoreContract(t, NewMemoryBlobStore())
}

func TestMemoryBlobStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryBlobStore()
	data := []byte("abc")
	require.NoError(t, s.Write(ctx, "k", data))
	data[0] = 'x'

	got, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestFileBlobStore(t *testing.T) {
	s, err := NewFileBlobStore(filepath.Join(t.TempDir(), "indexes"))
	require.NoError(t, err)
	blobStoreContract(t, s)
}

func TestFileBlobStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../x", "/abs", "a//b", "a/./b"} {
		assert.Error(t, s.Write(ctx, key, []byte("x")), key)
	}
}

func TestFileBlobStore_ConcurrentWritersLeaveWholeFile(t *testing.T) {
	// Given: many writers racing on one key
	root := t.TempDir()
	s, err := NewFileBlobStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	payloads := [][]byte{
		bytes.Repeat([]byte("x"), 4096),
		[]byte("short"),
		[]byte("medium length payload"),
	}

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Write(ctx, "ns/key.idx", payloads[i%len(payloads)]))
		}(i)
	}
	wg.Wait()

	// Then: the file holds exactly one of the payloads and no temp files remain
	got, err := s.Read(ctx, "ns/key.idx")
	require.NoError(t, err)
	assert.Contains(t, payloads, got)

	entries, err := os.ReadDir(filepath.Join(root, "ns"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.Contains(t, []string{"key.idx", "key.idx.lock"}, e.Name())
	}
}

func TestFileBlobStore_DeleteKeepsHeldLock(t *testing.T) {
	// Given: a stored blob whose lock is held by another writer
	root := t.TempDir()
	s, err := NewFileBlobStore(root)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "ns/key.idx", []byte("v1")))

	lockPath := filepath.Join(root, "ns", "key.idx.lock")
	holder := flock.New(lockPath)
	require.NoError(t, holder.Lock())
	defer func() { _ = holder.Unlock() }()

	// When: the blob is deleted
	require.NoError(t, s.Delete(ctx, "ns/key.idx"))

	// Then: the lock file survives and still excludes the next writer
	_, err = os.Stat(lockPath)
	require.NoError(t, err)

	wctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Write(wctx, "ns/key.idx", []byte("v2")))

	ok, err := s.Exists(ctx, "ns/key.idx")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteBlobStore(t *testing.T) {
	s, err := NewSQLiteBlobStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	blobStoreContract(t, s)
}

func TestSQLiteBlobStore_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "indexes.db")
	s, err := NewSQLiteBlobStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), "k", []byte("persisted")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteBlobStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Read(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisBlobStore(t *testing.T) {
	_, client := setupRedis(t)
	blobStoreContract(t, NewRedisBlobStoreWithClient(client, DefaultRedisPrefix))
}

func TestRedisBlobStore_UsesPrefix(t *testing.T) {
	mr, client := setupRedis(t)
	s := NewRedisBlobStoreWithClient(client, "test:")

	require.NoError(t, s.Write(context.Background(), "acme/x.idx", []byte("data")))

	assert.True(t, mr.Exists("test:acme/x.idx"))
}

func TestNewRedisBlobStore_FromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisBlobStore(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer s.Close()

	blobStoreContract(t, s)
}

func TestNewBlobStore(t *testing.T) {
	ctx := context.Background()

	fs, err := NewBlobStore(ctx, BackendOptions{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileBlobStore{}, fs)

	ms, err := NewBlobStore(ctx, BackendOptions{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBlobStore{}, ms)

	ss, err := NewBlobStore(ctx, BackendOptions{Backend: "SQLite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteBlobStore{}, ss)
	_ = ss.Close()

	_, err = NewBlobStore(ctx, BackendOptions{Backend: "s3"})
	assert.Error(t, err)
}

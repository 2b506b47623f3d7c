package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Aman-CERP/menusearch/internal/embed"
	"github.com/Aman-CERP/menusearch/internal/menu"
	"github.com/Aman-CERP/menusearch/internal/output"
	"github.com/Aman-CERP/menusearch/internal/store"
)

// MinDiskSpaceBytes is the free space required under a file cache (50MB).
const MinDiskSpaceBytes = 50 * 1024 * 1024

// probeKey is written and deleted by CheckCache.
const probeKey = "_preflight/probe"

// CheckCatalog reads and validates the catalog file.
func (c *Checker) CheckCatalog(path string) CheckResult {
	result := CheckResult{
		Name:     "catalog",
		Required: true,
		Details:  fmt.Sprintf("Catalog file: %s", path),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read catalog: %v", err)
		return result
	}
	catalog, err := menu.ParseCatalog(data)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	categories, empty := 0, 0
	for _, ot := range catalog.OrderTypes {
		categories += len(ot.Categories)
		if len(ot.Categories) == 0 {
			empty++
		}
	}
	switch {
	case len(catalog.OrderTypes) == 0:
		result.Status = StatusWarn
		result.Message = "catalog has no order types"
	case empty > 0:
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d order type(s), %d without categories", len(catalog.OrderTypes), empty)
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d order type(s), %d categories", len(catalog.OrderTypes), categories)
	}
	return result
}

// CheckCache round-trips a probe blob through the index cache backend.
func (c *Checker) CheckCache(ctx context.Context, blobs store.BlobStore) CheckResult {
	result := CheckResult{
		Name:     "index_cache",
		Required: true,
	}

	payload := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := blobs.Write(ctx, probeKey, payload); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("write failed: %v", err)
		return result
	}
	defer func() { _ = blobs.Delete(ctx, probeKey) }()

	got, err := blobs.Read(ctx, probeKey)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("read failed: %v", err)
		return result
	}
	if !bytes.Equal(got, payload) {
		result.Status = StatusFail
		result.Message = "read back different bytes than written"
		return result
	}

	result.Status = StatusPass
	result.Message = "read/write OK"
	return result
}

// CheckDiskSpace checks free space on the file system holding dir. A
// directory that does not exist yet is checked through its nearest parent.
func (c *Checker) CheckDiskSpace(dir string) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	path := existingAncestor(dir)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: 50 MB)", output.FormatBytes(available))
	result.Details = fmt.Sprintf("Checked at: %s", path)
	if available < MinDiskSpaceBytes {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckEmbedder probes the semantic model. Failure is a warning: search
// keeps working and the reranker leaves the order unchanged.
func (c *Checker) CheckEmbedder(ctx context.Context, e embed.Embedder) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: false,
		Details:  fmt.Sprintf("Model: %s (%d dimensions)", e.ModelName(), e.Dimensions()),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !e.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable, results will not be reranked", e.ModelName())
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready", e.ModelName())
	return result
}

func existingAncestor(dir string) string {
	path, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/menusearch/internal/embed"
	"github.com/Aman-CERP/menusearch/internal/store"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", CheckStatus(9).String())
}

func TestCheckCatalog(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  CheckStatus
		message string
	}{
		{"valid", "order_types:\n  - name: Delivery\n    categories: [{name: Pizza}, {name: Wings}]\n", StatusPass, "1 order type(s), 2 categories"},
		{"no order types", "order_types: []\n", StatusWarn, "no order types"},
		{"empty order type", "order_types:\n  - name: Delivery\n", StatusWarn, "1 without categories"},
		{"malformed", "order_types: [", StatusFail, "invalid catalog"},
		{"duplicate", "order_types:\n  - name: Dine In\n  - name: dine_in\n", StatusFail, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New().CheckCatalog(writeCatalog(t, tt.content))

			assert.Equal(t, tt.status, r.Status)
			assert.Contains(t, r.Message, tt.message)
			assert.True(t, r.Required)
		})
	}
}

func TestCheckCatalog_MissingFile(t *testing.T) {
	r := New().CheckCatalog(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, StatusFail, r.Status)
	assert.True(t, r.IsCritical())
}

func TestCheckCache_RoundTripLeavesNoProbe(t *testing.T) {
	// Given: a working blob store
	blobs := store.NewMemoryBlobStore()

	// When: checking it
	r := New().CheckCache(context.Background(), blobs)

	// Then: it passes and the probe is removed
	assert.Equal(t, StatusPass, r.Status)
	ok, err := blobs.Exists(context.Background(), probeKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingBlobs rejects writes.
type failingBlobs struct{ *store.MemoryBlobStore }

func (failingBlobs) Write(context.Context, string, []byte) error { return errors.New("read-only") }

func TestCheckCache_WriteFailure(t *testing.T) {
	r := New().CheckCache(context.Background(), failingBlobs{store.NewMemoryBlobStore()})

	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "read-only")
	assert.True(t, r.IsCritical())
}

func TestCheckDiskSpace_MissingDirUsesParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not", "yet", "created")

	r := New().CheckDiskSpace(dir)

	assert.NotEqual(t, StatusFail, r.Status, r.Message)
	assert.Contains(t, r.Message, "free")
}

func TestCheckEmbedder(t *testing.T) {
	e := embed.NewStaticEmbedder()

	r := New().CheckEmbedder(context.Background(), e)
	assert.Equal(t, StatusPass, r.Status)

	require.NoError(t, e.Close())
	r = New().CheckEmbedder(context.Background(), e)
	assert.Equal(t, StatusWarn, r.Status)
	assert.False(t, r.IsCritical())
}

func TestRunAll_SkipsUnsetTargets(t *testing.T) {
	c := New()

	results := c.RunAll(context.Background(), Target{
		CatalogPath: writeCatalog(t, "order_types:\n  - name: Delivery\n    categories: [{name: Pizza}]\n"),
		Blobs:       store.NewMemoryBlobStore(),
	})

	require.Len(t, results, 2)
	assert.Equal(t, "catalog", results[0].Name)
	assert.Equal(t, "index_cache", results[1].Name)
	assert.False(t, c.HasCriticalFailures(results))
	assert.Equal(t, "ready", c.SummaryStatus(results))
}

func TestSummaryStatus(t *testing.T) {
	c := New()

	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusWarn}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusFail}}))
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{{Status: StatusFail, Required: true}}))
}

func TestPrintResults(t *testing.T) {
	buf := &bytes.Buffer{}
	c := New(WithOutput(buf), WithVerbose(true))

	c.PrintResults([]CheckResult{
		{Name: "catalog", Status: StatusPass, Message: "2 order type(s)", Details: "Catalog file: menu.yaml"},
		{Name: "index_cache", Status: StatusFail, Message: "write failed", Required: true},
	})

	out := buf.String()
	assert.Contains(t, out, "[PASS] catalog: 2 order type(s)")
	assert.Contains(t, out, "Catalog file: menu.yaml")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "index_cache: write failed")
}

func TestCheckResult_JSONStatusByName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "catalog", Status: StatusWarn})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CollapsesBurst(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When: triggering repeatedly inside the window
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	// Then: exactly one signal is emitted
	select {
	case <-d.Output():
	case <-time.After(time.Second):
		t.Fatal("debouncer did not fire")
	}
	select {
	case <-d.Output():
		t.Fatal("burst produced a second signal")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Trigger()

	d.Stop()
	d.Stop()
	d.Trigger()

	_, ok := <-d.Output()
	assert.False(t, ok)
}

func TestPoller_DetectsChanges(t *testing.T) {
	// Given: a poller over a file that does not exist yet
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	p, err := newPoller(path, 10*time.Millisecond)
	require.NoError(t, err)

	var changes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.run(ctx, func() { changes.Add(1) }, func(error) {})

	// When: the file is created
	require.NoError(t, os.WriteFile(path, []byte("order_types: []\n"), 0o644))

	// Then: a change is reported
	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, time.Second, 10*time.Millisecond)
}

func TestOptions_WithDefaults(t *testing.T) {
	o := Options{Debounce: time.Second}.WithDefaults()

	assert.Equal(t, time.Second, o.Debounce)
	assert.Equal(t, DefaultOptions().PollInterval, o.PollInterval)
}

func runWatcher(t *testing.T, opts Options, sync SyncFunc) (*Watcher, string, context.CancelFunc, <-chan error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("order_types: []\n"), 0o644))

	w := New(path, sync, opts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Mode() != "" }, time.Second, 5*time.Millisecond)
	return w, path, cancel, done
}

func TestWatcher_ResyncsOnWrite(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := ModeFsnotify
		if polling {
			name = ModePolling
		}
		t.Run(name, func(t *testing.T) {
			// Given: a running watcher
			var syncs atomic.Int32
			opts := Options{Debounce: 20 * time.Millisecond, PollInterval: 10 * time.Millisecond, ForcePolling: polling}
			w, path, cancel, done := runWatcher(t, opts, func(context.Context) error {
				syncs.Add(1)
				return nil
			})

			// When: the catalog is rewritten
			time.Sleep(30 * time.Millisecond)
			require.NoError(t, os.WriteFile(path, []byte("order_types:\n  - name: Delivery\n"), 0o644))

			// Then: a sync runs and the watcher stops cleanly on cancel
			assert.Eventually(t, func() bool { return syncs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
			assert.GreaterOrEqual(t, w.Syncs(), int64(1))
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("watcher did not stop")
			}
		})
	}
}

func TestWatcher_SyncErrorKeepsWatching(t *testing.T) {
	var calls atomic.Int32
	opts := Options{Debounce: 10 * time.Millisecond, PollInterval: 10 * time.Millisecond, ForcePolling: true}
	_, path, cancel, done := runWatcher(t, opts, func(context.Context) error {
		calls.Add(1)
		return errors.New("provider down")
	})
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	// Size change guarantees the poller sees a second modification.
	require.NoError(t, os.WriteFile(path, []byte("a: 12345\n"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

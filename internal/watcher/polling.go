package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"
)

// fileSnapshot is the state a poller compares between scans.
type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (s fileSnapshot) equal(o fileSnapshot) bool {
	return s.exists == o.exists && s.size == o.size && s.modTime.Equal(o.modTime)
}

func snapshot(path string) (fileSnapshot, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSnapshot{}, nil
	}
	if err != nil {
		return fileSnapshot{}, err
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}, nil
}

// poller detects changes to one file by comparing stat results. Used when
// fsnotify is unavailable, e.g. on network mounts and some container volumes.
type poller struct {
	path     string
	interval time.Duration
	last     fileSnapshot
}

func newPoller(path string, interval time.Duration) (*poller, error) {
	snap, err := snapshot(path)
	if err != nil {
		return nil, err
	}
	return &poller{path: path, interval: interval, last: snap}, nil
}

// run calls changed whenever the file appears, disappears or its size or
// modification time changes, and onErr for stat failures. It returns when
// ctx is done.
func (p *poller) run(ctx context.Context, changed func(), onErr func(error)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := snapshot(p.path)
			if err != nil {
				onErr(err)
				continue
			}
			if !snap.equal(p.last) {
				p.last = snap
				changed()
			}
		}
	}
}

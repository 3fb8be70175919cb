package logtail

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"shepherd/pkg/logging"
)

// Follower streams lines appended to a log file, like tail -f. It reacts to
// filesystem notifications when available and falls back to polling when the
// watcher cannot be set up, so it keeps working on filesystems without
// inotify support. Rotated or truncated files are picked up again from the
// start.
type Follower struct {
	path string
	poll time.Duration
}

// NewFollower returns a follower for the given file. poll is the fallback
// polling interval; it also bounds how long rotation pickup can lag.
func NewFollower(path string, poll time.Duration) *Follower {
	return &Follower{path: path, poll: poll}
}

// Run follows the file until the context ends, writing appended bytes to
// out. It starts at the current end of file and returns the context error on
// shutdown. The file must exist when Run is called.
func (f *Follower) Run(ctx context.Context, out io.Writer) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", f.path, err)
	}
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	pos, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("LogTail", "File watcher unavailable, falling back to polling: %v", err)
		watcher = nil
	} else {
		defer watcher.Close()
		if err := watcher.Add(f.path); err != nil {
			logging.Debug("LogTail", "Cannot watch %s, relying on polling: %v", f.path, err)
		}
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	rotated := false
	for {
		if file != nil {
			if pos, err = drain(file, pos, out); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				rotated = true
			}
		case werr, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logging.Warn("LogTail", "File watcher error: %v", werr)
		}

		info, serr := os.Stat(f.path)
		switch {
		case serr != nil:
			// File is gone; keep trying until it reappears.
			rotated = true
			if file != nil {
				file.Close()
				file = nil
			}
		case rotated || file == nil:
			if file != nil {
				file.Close()
			}
			reopened, oerr := os.Open(f.path)
			if oerr != nil {
				file = nil
				continue
			}
			file = reopened
			pos = 0
			rotated = false
			if watcher != nil {
				_ = watcher.Add(f.path)
			}
		case info.Size() < pos:
			// Truncated in place; start over from the top.
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return err
			}
			pos = 0
		}
	}
}

// drain copies everything between pos and the current end of file to out and
// returns the new position.
func drain(file *os.File, pos int64, out io.Writer) (int64, error) {
	if _, err := file.Seek(pos, io.SeekStart); err != nil {
		return pos, err
	}
	n, err := io.Copy(out, file)
	pos += n
	if err != nil {
		return pos, err
	}
	return pos, nil
}

package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/pkg/log"
)

// DefaultPollInterval is how often a follower re-checks its file when no
// filesystem event arrives.
const DefaultPollInterval = time.Second

// FollowConfig configures a Follower.
type FollowConfig struct {
	// Poll is the fallback re-check interval.
	Poll   time.Duration
	Logger ports.Logger
}

// Follower reads operations from a file that keeps growing. At end of file
// it waits for more data instead of returning io.EOF. A truncated file is
// re-read from the start; a removed or renamed file is reopened once it
// reappears.
type Follower struct {
	path    string
	poll    time.Duration
	logger  ports.Logger
	watcher *fsnotify.Watcher
	backoff *backoff

	file    *os.File
	reader  *bufio.Reader
	offset  int64
	pending []byte
	line    int
}

// Follow opens path and starts watching it.
func Follow(path string, cfg FollowConfig) (*Follower, error) {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so a re-created file is seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	f := &Follower{
		path:    filepath.Clean(path),
		poll:    cfg.Poll,
		logger:  cfg.Logger,
		watcher: watcher,
		backoff: newBackoff(DefaultBackoffInitial, DefaultBackoffMax),
	}
	if err := f.open(); err != nil {
		watcher.Close()
		return nil, err
	}
	return f, nil
}

// Next returns the next complete line's operation, waiting for data as
// needed. It returns only on a decoded operation, a *LineError, or when ctx
// is done.
func (f *Follower) Next(ctx context.Context) (domain.Operation, error) {
	for {
		chunk, err := f.reader.ReadBytes('\n')
		f.offset += int64(len(chunk))

		if err == nil {
			raw := append(f.pending, chunk...)
			f.pending = nil
			f.line++
			if op, ok, lerr := decodeLine(f.line, raw); ok || lerr != nil {
				return op, lerr
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return domain.Operation{}, fmt.Errorf("read %s: %w", f.path, err)
		}

		f.pending = append(f.pending, chunk...)
		if err := f.wait(ctx); err != nil {
			return domain.Operation{}, err
		}
	}
}

// Close stops watching and closes the file.
func (f *Follower) Close() error {
	werr := f.watcher.Close()
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			return err
		}
	}
	return werr
}

// wait blocks until the file may have changed, then handles truncation and
// replacement.
func (f *Follower) wait(ctx context.Context) error {
	timer := time.NewTimer(f.poll)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return f.check(ctx)

		case event, ok := <-f.watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return f.reopen(ctx)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return f.check(ctx)
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			f.logWarn("watcher error", err)
		}
	}
}

// check detects truncation and replacement of the followed file.
func (f *Follower) check(ctx context.Context) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return f.reopen(ctx)
	}
	current, err := f.file.Stat()
	if err != nil || !os.SameFile(info, current) {
		return f.reopen(ctx)
	}
	if info.Size() < f.offset {
		f.logger.Info("input truncated, reading from start", ports.String("path", f.path))
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", f.path, err)
		}
		f.reader.Reset(f.file)
		f.offset = 0
		f.pending = nil
	}
	return nil
}

// reopen waits, with backoff, for the path to exist again and opens it.
func (f *Follower) reopen(ctx context.Context) error {
	if f.file != nil {
		f.file.Close()
		f.file = nil
	}
	for {
		err := f.open()
		if err == nil {
			f.logger.Info("input reopened", ports.String("path", f.path))
			return nil
		}
		f.logWarn("input unavailable", err)
		if err := f.backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

func (f *Follower) open() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	f.file = file
	f.reader = bufio.NewReaderSize(file, 64*1024)
	f.offset = 0
	f.pending = nil
	f.backoff.Reset()
	return nil
}

func (f *Follower) logWarn(msg string, err error) {
	f.logger.Warn(msg, ports.String("path", f.path), ports.Err(err))
}

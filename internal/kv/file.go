package kv

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"optigov.org/internal/obs"
)

const fileSuffix = ".json"

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// File stores each key as <dir>/<key>.json. Each file is replaced atomically
// (temp file + rename) but a multi-key Apply is not atomic as a whole.
type File struct {
	dir      string
	debounce time.Duration

	mu      sync.Mutex
	written map[string][32]byte // digest of the last content this process wrote; zero for deletes
}

var (
	_ Store   = (*File)(nil)
	_ Watcher = (*File)(nil)
)

// NewFile opens (creating if needed) a directory-backed store.
func NewFile(dir string) (*File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kv: file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create dir: %w", err)
	}
	return &File{
		dir:      dir,
		debounce: 50 * time.Millisecond,
		written:  make(map[string][32]byte),
	}, nil
}

func (f *File) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("kv: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+fileSuffix), nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *File) Apply(ctx context.Context, ops ...Op) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := f.path(op.Key)
		if err != nil {
			return err
		}
		if op.Delete {
			f.remember(op.Key, [32]byte{})
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("kv: remove %s: %w", op.Key, err)
			}
			continue
		}
		f.remember(op.Key, sha256.Sum256(op.Value))
		if err := writeAtomic(p, op.Value); err != nil {
			return fmt.Errorf("kv: write %s: %w", op.Key, err)
		}
	}
	return nil
}

func (f *File) remember(key string, sum [32]byte) {
	f.mu.Lock()
	f.written[key] = sum
	f.mu.Unlock()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func (f *File) Ping(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *File) Close() error { return nil }

// Watch reports keys whose files were changed by another process. Writes made
// through this File are recognised by content digest and skipped.
func (f *File) Watch(ctx context.Context, fn func(keys []string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("kv: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(f.dir); err != nil {
		return fmt.Errorf("kv: watch %s: %w", f.dir, err)
	}

	log := obs.Named("kv.file")
	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key, ok := keyForPath(ev.Name)
			if !ok || f.isOwnWrite(key) {
				continue
			}
			pending[key] = struct{}{}
			timer.Reset(f.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			keys := make([]string, 0, len(pending))
			for k := range pending {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			clear(pending)
			fn(keys)
		}
	}
}

func keyForPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	key := strings.TrimSuffix(base, fileSuffix)
	return key, validKey.MatchString(key)
}

func (f *File) isOwnWrite(key string) bool {
	f.mu.Lock()
	last, ok := f.written[key]
	f.mu.Unlock()
	if !ok {
		return false
	}
	data, err := os.ReadFile(filepath.Join(f.dir, key+fileSuffix))
	if errors.Is(err, os.ErrNotExist) {
		return last == [32]byte{}
	}
	if err != nil {
		return false
	}
	return sha256.Sum256(data) == last
}

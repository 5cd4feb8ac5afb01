package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/checkup/checkup/internal/release"
)

const (
	timestampFile = "cached_at"
	releasesFile  = "releases.json"
	htmlFile      = "index.html"
)

// NewStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。
// ttl 是全存储统一的过期窗口。
func NewStore(basePath string, ttl time.Duration) (Store, error) {
	if basePath == "" {
		return nil, errors.New("cache path required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid cache ttl: %s", ttl)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache path: %w", err)
	}

	return &fileStore{
		basePath: abs,
		ttl:      ttl,
		now:      time.Now,
		locks:    make(map[string]*entryLock),
	}, nil
}

// fileStore 通过 entryLock 序列化同一 Key 的并发写入，读路径不加锁：
// 临时文件 + rename 保证读者只会看到旧快照或新快照。
type fileStore struct {
	basePath string
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) ReadTimestamp(ctx context.Context, key release.Key) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	dir, err := s.entryDir(key)
	if err != nil {
		return time.Time{}, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, timestampFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}

	at, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(raw)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp record: %v", ErrCorrupted, err)
	}
	return at, nil
}

func (s *fileStore) WriteTimestamp(ctx context.Context, key release.Key, at time.Time) error {
	return s.writeFile(ctx, key, timestampFile, []byte(at.UTC().Format(time.RFC3339Nano)))
}

func (s *fileStore) ReadReleases(ctx context.Context, key release.Key) (*release.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.entryDir(key)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(dir, releasesFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var snap release.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return &snap, nil
}

func (s *fileStore) WriteReleases(ctx context.Context, key release.Key, snap release.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.writeFile(ctx, key, releasesFile, raw)
}

func (s *fileStore) ReadHTML(ctx context.Context, key release.Key) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := s.entryDir(key)
	if err != nil {
		return "", err
	}

	raw, err := os.ReadFile(filepath.Join(dir, htmlFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(raw), nil
}

func (s *fileStore) WriteHTML(ctx context.Context, key release.Key, html string) error {
	return s.writeFile(ctx, key, htmlFile, []byte(html))
}

func (s *fileStore) IsExpired(cachedAt time.Time) bool {
	return s.now().Sub(cachedAt) > s.ttl
}

// writeFile 以临时文件 + rename 的方式原子落盘单个条目文件。
func (s *fileStore) writeFile(ctx context.Context, key release.Key, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := s.lockEntry(key)
	if err != nil {
		return err
	}
	defer unlock()

	dir, err := s.entryDir(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filepath.Join(dir, name)); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

func (s *fileStore) lockEntry(key release.Key) (func(), error) {
	id := key.String()
	s.mu.Lock()
	lock := s.locks[id]
	if lock == nil {
		lock = &entryLock{}
		s.locks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}, nil
}

// entryDir 计算条目目录并拒绝越界路径（例如 repo 中携带 ..）。
func (s *fileStore) entryDir(key release.Key) (string, error) {
	if key.Host == "" || key.Repo == "" {
		return "", fmt.Errorf("incomplete key: %s", key)
	}

	rel := path.Clean("/" + path.Join("repo", key.Host, key.Owner, key.Repo))
	rel = strings.TrimPrefix(rel, "/")

	dir := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if !strings.HasPrefix(dir, filepath.Join(s.basePath, "repo")) {
		return "", fmt.Errorf("invalid cache path for key %s", key)
	}
	return dir, nil
}

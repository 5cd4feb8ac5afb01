package cache

import (
	"context"
	"errors"
	"time"

	"github.com/checkup/checkup/internal/release"
)

// Store 负责按仓库键读写磁盘缓存。磁盘布局遵循：
//
//	<CachePath>/repo/<host>/<owner>/<repo>/cached_at      # 逻辑时间戳记录
//	<CachePath>/repo/<host>/<owner>/<repo>/releases.json  # 发布列表快照
//	<CachePath>/repo/<host>/<owner>/<repo>/index.html     # 预渲染页面
//
// 同一次刷新按 releases → html → timestamp 的顺序写入，时间戳永远最后落盘。
type Store interface {
	// ReadTimestamp 返回条目的新鲜度时间戳。条目不存在时返回 ErrNotFound，
	// 只有存储本身不可读才返回其它错误。
	ReadTimestamp(ctx context.Context, key release.Key) (time.Time, error)

	// WriteTimestamp 覆盖写入新鲜度时间戳，目录不存在时自动创建。
	WriteTimestamp(ctx context.Context, key release.Key, at time.Time) error

	// ReadReleases 反序列化发布列表快照。不存在返回 ErrNotFound；
	// 数据损坏时返回包装了 ErrCorrupted 的错误，调用方按缓存未命中处理。
	ReadReleases(ctx context.Context, key release.Key) (*release.Snapshot, error)

	// WriteReleases 将快照整体落盘，覆盖任何旧版本。
	WriteReleases(ctx context.Context, key release.Key, snap release.Snapshot) error

	// ReadHTML / WriteHTML 读写预渲染的页面文档。
	ReadHTML(ctx context.Context, key release.Key) (string, error)
	WriteHTML(ctx context.Context, key release.Key, html string) error

	// IsExpired 按存储级 TTL 判定 now - cachedAt > ttl。
	IsExpired(cachedAt time.Time) bool
}

// ErrNotFound 表示缓存条目不存在，区别于存储不可读。
var ErrNotFound = errors.New("cache entry not found")

// ErrCorrupted 表示磁盘上的快照无法反序列化，调用方应视为未命中。
var ErrCorrupted = errors.New("cache entry corrupted")

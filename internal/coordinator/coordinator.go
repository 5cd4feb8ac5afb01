package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/checkup/checkup/internal/cache"
	"github.com/checkup/checkup/internal/release"
)

// State 描述一次查询落在哪个状态，同时作为日志字段输出。
type State string

const (
	// StateFresh 表示缓存未过期，直接服务磁盘数据。
	StateFresh State = "fresh"
	// StateStale 表示缓存已过期但仍被服务，后台刷新已在进行。
	StateStale State = "stale"
	// StatePending 表示没有任何可服务数据，刷新进行中。
	StatePending State = "pending"
	// StateFailed 表示最近一次抓取失败且没有旧数据可以回退。
	StateFailed State = "failed"
)

// Source 是上游发布列表的抓取能力。具体实现由 provider 包按 host 族注册，
// coordinator 不关心背后是 REST 调用还是 HTML 抓取。
type Source interface {
	Name() string
	FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error)
}

// Renderer 在持久化时生成预渲染页面。可以为 nil，此时只落盘 JSON 快照。
// source 是路由前缀（github/gitlab/forgejo/cgit），用于构造 latest 链接。
type Renderer interface {
	RenderReleases(source string, key release.Key, snap release.Snapshot) (string, error)
}

// Result 是 GetOrRefresh 的返回值。State 为 fresh/stale 时 Releases 非空
// （除非上游本来就没有发布）；failed 时 Err 携带最近一次错误信息。
type Result struct {
	State    State
	Releases []release.Release
	CachedAt time.Time
	HTML     string
	Err      string
}

// Options 控制 coordinator 的可调行为。
type Options struct {
	// FailureBackoff 是负缓存窗口：一次抓取失败后，该窗口内的请求直接
	// 得到记住的错误而不会再打上游；窗口过后允许重新尝试。
	FailureBackoff time.Duration
}

const defaultFailureBackoff = 5 * time.Minute

// Coordinator 按仓库键协调缓存读取与上游刷新，进程内共享一份实例。
type Coordinator struct {
	store    cache.Store
	renderer Renderer
	logger   *logrus.Logger
	backoff  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	failed  map[string]failure

	wg sync.WaitGroup
}

type failure struct {
	message string
	at      time.Time
}

// New 构造 Coordinator。store 与 logger 必须提供，renderer 可选。
func New(store cache.Store, renderer Renderer, logger *logrus.Logger, opts Options) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	backoff := opts.FailureBackoff
	if backoff <= 0 {
		backoff = defaultFailureBackoff
	}
	return &Coordinator{
		store:    store,
		renderer: renderer,
		logger:   logger,
		backoff:  backoff,
		now:      time.Now,
		pending:  make(map[string]struct{}),
		failed:   make(map[string]failure),
	}, nil
}

// GetOrRefresh 返回 key 当前可服务的数据。缓存新鲜时直接返回；过期或缺失时
// 触发一次后台刷新（同一 key 最多一个在途抓取），调用方立即拿到旧数据或
// 占位结果，不会被刷新阻塞。
func (c *Coordinator) GetOrRefresh(ctx context.Context, key release.Key, src Source) Result {
	if snap, html, ok := c.readFresh(ctx, key); ok {
		return Result{State: StateFresh, Releases: snap.Releases, CachedAt: snap.CachedAt, HTML: html}
	}

	id := key.String()

	c.mu.Lock()
	if f, ok := c.failed[id]; ok {
		if c.now().Sub(f.at) <= c.backoff {
			c.mu.Unlock()
			return c.staleOr(ctx, key, Result{State: StateFailed, Err: f.message})
		}
		// 负缓存过期，允许下一次抓取。
		delete(c.failed, id)
	}
	if _, inFlight := c.pending[id]; inFlight {
		c.mu.Unlock()
		return c.staleOr(ctx, key, Result{State: StatePending})
	}
	c.pending[id] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go c.refresh(key, src)

	return c.staleOr(ctx, key, Result{State: StatePending})
}

// BlockingFetch 为必须同步拿到数据的调用方（latest 资产跳转）服务：
// 缓存新鲜时直接返回，否则内联抓取并返回结果或错误。它不进入 pending 集合，
// 与后台刷新互不阻塞。
func (c *Coordinator) BlockingFetch(ctx context.Context, key release.Key, src Source) ([]release.Release, error) {
	if snap, _, ok := c.readFresh(ctx, key); ok {
		return snap.Releases, nil
	}

	releases, err := src.FetchReleases(ctx, key)
	if err != nil {
		c.recordFailure(key, err)
		return nil, err
	}

	c.clearFailure(key)
	c.persist(context.Background(), key, src.Name(), releases)
	return releases, nil
}

// Wait 阻塞直到所有在途后台刷新结束，供停机路径与测试使用。
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// refresh 是独立于任何请求生命周期的后台抓取单元。pending 槽位的释放挂在
// defer 上，抓取 panic 或提前返回都不会让 key 永久卡在 pending。
func (c *Coordinator) refresh(key release.Key, src Source) {
	defer c.wg.Done()

	id := key.String()
	defer func() {
		if r := recover(); r != nil {
			c.recordFailure(key, fmt.Errorf("fetch panic: %v", r))
		}
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	ctx := context.Background()
	started := c.now()
	releases, err := src.FetchReleases(ctx, key)
	if err != nil {
		c.recordFailure(key, err)
		c.logger.WithFields(logrus.Fields{
			"action":   "refresh",
			"repo":     id,
			"duration": c.now().Sub(started).String(),
		}).WithError(err).Warn("upstream fetch failed")
		return
	}

	c.clearFailure(key)
	c.persist(ctx, key, src.Name(), releases)

	c.logger.WithFields(logrus.Fields{
		"action":   "refresh",
		"repo":     id,
		"releases": len(releases),
		"duration": c.now().Sub(started).String(),
	}).Info("cache refreshed")
}

// persist 按 releases → html → timestamp 的顺序落盘；时间戳最后写入，
// 读者不可能看到比数据新的时间戳。持久化失败只记日志，不影响已取得的数据。
func (c *Coordinator) persist(ctx context.Context, key release.Key, source string, releases []release.Release) {
	snap := release.Snapshot{
		Releases: releases,
		CachedAt: c.now().UTC(),
		RepoPath: key.String(),
	}

	if err := c.store.WriteReleases(ctx, key, snap); err != nil {
		c.logStorageError(key, "write_releases", err)
		return
	}
	if c.renderer != nil {
		html, err := c.renderer.RenderReleases(source, key, snap)
		if err != nil {
			c.logStorageError(key, "render_html", err)
		} else if err := c.store.WriteHTML(ctx, key, html); err != nil {
			c.logStorageError(key, "write_html", err)
		}
	}
	if err := c.store.WriteTimestamp(ctx, key, snap.CachedAt); err != nil {
		c.logStorageError(key, "write_timestamp", err)
	}
}

// readFresh 读取未过期的快照。存储损坏或读失败都按未命中降级处理。
func (c *Coordinator) readFresh(ctx context.Context, key release.Key) (*release.Snapshot, string, bool) {
	at, err := c.store.ReadTimestamp(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.logStorageError(key, "read_timestamp", err)
		}
		return nil, "", false
	}
	if c.store.IsExpired(at) {
		return nil, "", false
	}

	snap, err := c.store.ReadReleases(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.logStorageError(key, "read_releases", err)
		}
		return nil, "", false
	}

	html, err := c.store.ReadHTML(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		c.logStorageError(key, "read_html", err)
	}
	return snap, html, true
}

// staleOr 在没有新鲜数据时优先回退到过期快照（stale-while-revalidate），
// 读不到旧数据才返回给定的占位/失败结果。
func (c *Coordinator) staleOr(ctx context.Context, key release.Key, fallback Result) Result {
	snap, err := c.store.ReadReleases(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, cache.ErrCorrupted) {
			c.logStorageError(key, "read_releases", err)
		}
		return fallback
	}

	html, err := c.store.ReadHTML(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		c.logStorageError(key, "read_html", err)
	}

	return Result{
		State:    StateStale,
		Releases: snap.Releases,
		CachedAt: snap.CachedAt,
		HTML:     html,
		Err:      fallback.Err,
	}
}

func (c *Coordinator) recordFailure(key release.Key, err error) {
	c.mu.Lock()
	c.failed[key.String()] = failure{message: err.Error(), at: c.now()}
	c.mu.Unlock()
}

func (c *Coordinator) clearFailure(key release.Key) {
	c.mu.Lock()
	delete(c.failed, key.String())
	c.mu.Unlock()
}

func (c *Coordinator) logStorageError(key release.Key, op string, err error) {
	c.logger.WithFields(logrus.Fields{
		"action": op,
		"repo":   key.String(),
	}).WithError(err).Warn("cache storage degraded")
}

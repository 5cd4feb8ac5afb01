package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/checkup/checkup/internal/release"
)

// Provider 是一个 host 族的发布列表适配器。ParseKey 将路由通配段解析为
// 仓库键，FetchReleases 返回按时间从新到旧排序的发布列表。
type Provider interface {
	Name() string
	ParseKey(path string) (release.Key, error)
	FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error)
}

// Options 注入所有适配器共享的依赖与可覆盖的 API 端点。
type Options struct {
	Client    *http.Client
	UserAgent string
	// GitHubAPI/GitLabAPI 覆盖公共端点，主要用于测试与私有部署。
	GitHubAPI string
	GitLabAPI string
}

// Factory 由各适配器在 init() 中注册，Build 时统一实例化。
type Factory func(Options) Provider

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// MustRegister 将工厂注册到全局表，重复键 panic，适合在 init() 中调用。
func MustRegister(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		panic("provider name is required")
	}
	if _, exists := factories[key]; exists {
		panic(fmt.Sprintf("provider %s already registered", key))
	}
	factories[key] = factory
}

// Build 按注册名实例化全部适配器。
func Build(opts Options) map[string]Provider {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "checkup"
	}

	mu.RLock()
	defer mu.RUnlock()

	result := make(map[string]Provider, len(factories))
	for name, factory := range factories {
		result[name] = factory(opts)
	}
	return result
}

// Keys 返回按字典序排序的注册名列表，供诊断与路由挂载使用。
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()

	keys := make([]string, 0, len(factories))
	for name := range factories {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// getJSON 执行一次带 UA 的 GET 并校验状态码，body 交由调用方解码。
// 非 2xx 状态被归为上游错误并携带站点与状态信息。
func getJSON(ctx context.Context, client *http.Client, url, accept, userAgent string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("upstream %s returned status: %s", req.URL.Host, resp.Status)
	}
	return resp.Body, nil
}

package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/checkup/checkup/internal/assetname"
	"github.com/checkup/checkup/internal/coordinator"
	"github.com/checkup/checkup/internal/logging"
	"github.com/checkup/checkup/internal/provider"
	"github.com/checkup/checkup/internal/release"
	"github.com/checkup/checkup/internal/render"
)

type requestMode int

const (
	modePage requestMode = iota
	modeSnapshot
	modeLatest
)

// releaseHandler 将 coordinator 的状态翻译为 HTTP 响应：页面、JSON 快照、
// latest 资产跳转三种形态共用同一条路由。
type releaseHandler struct {
	logger   *logrus.Logger
	coord    *coordinator.Coordinator
	renderer *render.Renderer
}

func (h *releaseHandler) handle(c fiber.Ctx, src provider.Provider) error {
	started := time.Now()
	raw := strings.Trim(c.Params("*"), "/")

	repoPath, mode, ext := splitRequestPath(raw)

	key, err := src.ParseKey(repoPath)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid_path",
			"path":  "/" + src.Name() + "/" + raw,
		})
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch mode {
	case modeLatest:
		return h.redirectLatest(c, ctx, src, key, ext, started)
	case modeSnapshot:
		return h.serveSnapshot(c, ctx, src, key, started)
	default:
		return h.servePage(c, ctx, src, key, started)
	}
}

// splitRequestPath 剥离 /cache 与 /latest.<ext> 子端点后缀，返回仓库路径。
func splitRequestPath(raw string) (repoPath string, mode requestMode, ext string) {
	if rest, ok := strings.CutSuffix(raw, "/cache"); ok {
		return rest, modeSnapshot, ""
	}

	idx := strings.LastIndexByte(raw, '/')
	if idx > 0 {
		last := raw[idx+1:]
		if suffix, ok := strings.CutPrefix(last, "latest."); ok && suffix != "" {
			return raw[:idx], modeLatest, suffix
		}
	}
	return raw, modePage, ""
}

// servePage 服务预渲染的发布页面；没有落盘 HTML 时现场重渲染。
func (h *releaseHandler) servePage(c fiber.Ctx, ctx context.Context, src provider.Provider, key release.Key, started time.Time) error {
	res := h.coord.GetOrRefresh(ctx, key, src)
	h.logRequest(c, src.Name(), key, res.State, started)

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)

	switch res.State {
	case coordinator.StateFresh, coordinator.StateStale:
		html := res.HTML
		if html == "" {
			snap := release.Snapshot{Releases: res.Releases, CachedAt: res.CachedAt, RepoPath: key.String()}
			rendered, err := h.renderer.RenderReleases(src.Name(), key, snap)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString(h.renderer.RenderError(key, err.Error()))
			}
			html = rendered
		}
		return c.SendString(html)
	case coordinator.StateFailed:
		return c.Status(fiber.StatusBadGateway).SendString(h.renderer.RenderError(key, res.Err))
	default:
		return c.Status(fiber.StatusAccepted).SendString(h.renderer.RenderPending(key))
	}
}

// serveSnapshot 暴露原始 JSON 快照，方便脚本消费与排障。
func (h *releaseHandler) serveSnapshot(c fiber.Ctx, ctx context.Context, src provider.Provider, key release.Key, started time.Time) error {
	res := h.coord.GetOrRefresh(ctx, key, src)
	h.logRequest(c, src.Name(), key, res.State, started)

	switch res.State {
	case coordinator.StateFresh, coordinator.StateStale:
		return c.JSON(release.Snapshot{
			Releases: res.Releases,
			CachedAt: res.CachedAt,
			RepoPath: key.String(),
		})
	case coordinator.StateFailed:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"state": string(res.State),
			"error": res.Err,
		})
	default:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"state": string(res.State),
		})
	}
}

// redirectLatest 同步解析最新发布中匹配 ext 的资产并发出 307 跳转。
// 既支持改名后的精确文件名匹配，也支持旧式的裸扩展名匹配。
func (h *releaseHandler) redirectLatest(c fiber.Ctx, ctx context.Context, src provider.Provider, key release.Key, ext string, started time.Time) error {
	releases, err := h.coord.BlockingFetch(ctx, key, src)
	if err != nil {
		h.logRequest(c, src.Name(), key, coordinator.StateFailed, started)
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusBadGateway).SendString(h.renderer.RenderError(key, err.Error()))
	}

	h.logRequest(c, src.Name(), key, coordinator.StateFresh, started)

	// 只在最新发布里找，老版本的资产不参与 latest 匹配。
	want := "latest." + ext
	if latest := release.Latest(releases); latest != nil {
		for _, a := range latest.Assets {
			if assetname.RenameToLatest(a.Name) == want || assetname.ExtractExtension(a.Name) == ext {
				return c.Redirect().Status(fiber.StatusTemporaryRedirect).To(a.URL)
			}
		}
	}

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":     "asset_not_found",
		"repo":      key.String(),
		"extension": ext,
	})
}

func (h *releaseHandler) logRequest(c fiber.Ctx, source string, key release.Key, state coordinator.State, started time.Time) {
	fields := logging.RequestFields(source, key.String(), string(state), state == coordinator.StateFresh)
	fields["request_id"] = RequestID(c)
	fields["duration"] = time.Since(started).String()
	h.logger.WithFields(fields).Info("release request")
}

package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/checkup/checkup/internal/assetname"
	"github.com/checkup/checkup/internal/release"
)

const timeLayout = "2006-01-02 15:04:05 UTC"

// Renderer 持有解析好的模板，进程内复用一份实例。
type Renderer struct {
	releases *template.Template
	notice   *template.Template
}

// New 解析内置模板。模板错误属于开发期缺陷，直接 panic。
func New() *Renderer {
	return &Renderer{
		releases: template.Must(template.New("releases").Parse(releasesTemplate)),
		notice:   template.Must(template.New("notice").Parse(noticeTemplate)),
	}
}

type assetView struct {
	Name      string
	URL       string
	SizeInfo  string
	Downloads string
	LatestURL string
}

type releaseView struct {
	Name        string
	HTMLURL     string
	PublishedAt string
	Latest      bool
	Prerelease  bool
	Draft       bool
	Assets      []assetView
	BodyLines   []string
}

type releasesPage struct {
	RepoPath string
	CachedAt string
	Latest   *releaseView
	Releases []releaseView
}

// RenderReleases 渲染仓库的发布页面。source 是路由前缀，用于 latest 链接。
func (r *Renderer) RenderReleases(source string, key release.Key, snap release.Snapshot) (string, error) {
	page := releasesPage{
		RepoPath: key.String(),
		CachedAt: snap.CachedAt.UTC().Format(timeLayout),
	}

	for i, rel := range snap.Releases {
		view := buildReleaseView(rel, i == 0)
		if i == 0 && len(rel.Assets) > 0 {
			latest := view
			for j := range latest.Assets {
				latest.Assets[j].LatestURL = latestURL(source, key, rel.Assets[j].Name)
			}
			page.Latest = &latest
		}
		page.Releases = append(page.Releases, view)
	}

	var sb strings.Builder
	if err := r.releases.Execute(&sb, page); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type noticePage struct {
	Title    string
	RepoPath string
	Message  string
	Refresh  bool
}

// RenderPending 生成“抓取进行中”的占位页面，提示客户端稍后重试。
func (r *Renderer) RenderPending(key release.Key) string {
	return r.renderNotice(noticePage{
		Title:    "Processing",
		RepoPath: key.String(),
		Message:  "Fetching releases from upstream. This page refreshes automatically.",
		Refresh:  true,
	})
}

// RenderError 生成携带最近一次错误信息的页面。
func (r *Renderer) RenderError(key release.Key, message string) string {
	return r.renderNotice(noticePage{
		Title:    "Fetch failed",
		RepoPath: key.String(),
		Message:  message,
	})
}

func (r *Renderer) renderNotice(page noticePage) string {
	var sb strings.Builder
	if err := r.notice.Execute(&sb, page); err != nil {
		// notice 模板没有外部输入依赖，执行失败只可能是模板缺陷。
		return fmt.Sprintf("<html><body><h1>%s</h1></body></html>", template.HTMLEscapeString(page.Title))
	}
	return sb.String()
}

// RenderIndex 返回根路径的静态说明页。
func (r *Renderer) RenderIndex() string {
	return indexPage
}

func buildReleaseView(rel release.Release, latest bool) releaseView {
	name := rel.Name
	if name == "" {
		name = rel.TagName
	}

	view := releaseView{
		Name:        name,
		HTMLURL:     rel.HTMLURL,
		PublishedAt: rel.PublishedAt.UTC().Format(timeLayout),
		Latest:      latest,
		Prerelease:  rel.Prerelease,
		Draft:       rel.Draft,
	}

	for _, a := range rel.Assets {
		av := assetView{Name: a.Name, URL: a.URL}
		if a.Size > 0 {
			av.SizeInfo = formatSize(a.Size)
		}
		if a.DownloadCount > 0 {
			av.Downloads = fmt.Sprintf("%d downloads", a.DownloadCount)
		}
		view.Assets = append(view.Assets, av)
	}

	if rel.Body != "" {
		lines := strings.Split(rel.Body, "\n")
		if len(lines) > 3 {
			lines = lines[:3]
		}
		view.BodyLines = lines
	}
	return view
}

// latestURL 构造稳定的最新资产跳转链接。github/gitlab 的 host 隐含在路由
// 前缀里，不出现在路径中。
func latestURL(source string, key release.Key, assetName string) string {
	path := key.String()
	if source == "github" || source == "gitlab" {
		path = key.Owner + "/" + key.Repo
	}
	return fmt.Sprintf("/%s/%s/latest.%s", source, path, assetname.ExtractExtension(assetName))
}

// formatSize 输出人类可读的字节数。
func formatSize(size int64) string {
	const (
		kb = int64(1024)
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case size >= gb:
		return fmt.Sprintf("%.2f GB", float64(size)/float64(gb))
	case size >= mb:
		return fmt.Sprintf("%.2f MB", float64(size)/float64(mb))
	case size >= kb:
		return fmt.Sprintf("%.2f KB", float64(size)/float64(kb))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

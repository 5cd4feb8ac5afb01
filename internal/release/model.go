package release

import "time"

// Asset 表示单个发布附件。Size/DownloadCount 为 0 时表示上游未提供，
// 而不是字面意义上的零。
type Asset struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	ContentType   string `json:"content_type,omitempty"`
	Size          int64  `json:"size"`
	DownloadCount int64  `json:"download_count"`
}

// Release 表示一次发布。列表由适配器按发布时间从新到旧排序。
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body,omitempty"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
	Assets      []Asset   `json:"assets"`
}

// Snapshot 是落盘与 /cache 端点输出的快照结构，CachedAt 与数据同批写入。
type Snapshot struct {
	Releases []Release `json:"releases"`
	CachedAt time.Time `json:"cached_at"`
	RepoPath string    `json:"repo_path"`
}

// Latest 返回最新一条发布；列表为空时返回 nil。
func Latest(releases []Release) *Release {
	if len(releases) == 0 {
		return nil
	}
	return &releases[0]
}

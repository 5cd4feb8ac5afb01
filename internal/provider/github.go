package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/checkup/checkup/internal/release"
)

const defaultGitHubAPI = "https://api.github.com"

func init() {
	MustRegister("github", func(opts Options) Provider {
		api := opts.GitHubAPI
		if api == "" {
			api = defaultGitHubAPI
		}
		return &githubProvider{
			client:    opts.Client,
			api:       strings.TrimSuffix(api, "/"),
			userAgent: opts.UserAgent,
		}
	})
}

type githubProvider struct {
	client    *http.Client
	api       string
	userAgent string
}

type githubRelease struct {
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	PublishedAt time.Time     `json:"published_at"`
	HTMLURL     string        `json:"html_url"`
	Body        string        `json:"body"`
	Prerelease  bool          `json:"prerelease"`
	Draft       bool          `json:"draft"`
	Assets      []githubAsset `json:"assets"`
	TarballURL  string        `json:"tarball_url"`
	ZipballURL  string        `json:"zipball_url"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	DownloadCount      int64  `json:"download_count"`
}

func (p *githubProvider) Name() string { return "github" }

// ParseKey 接受 owner/repo 两段路径，host 固定为 github.com。
func (p *githubProvider) ParseKey(path string) (release.Key, error) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return release.Key{}, fmt.Errorf("%w: %s", release.ErrInvalidKey, path)
	}
	return release.Key{Host: "github.com", Owner: parts[0], Repo: parts[1]}, nil
}

func (p *githubProvider) FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases", p.api, key.Owner, key.Repo)
	body, err := getJSON(ctx, p.client, url, "application/vnd.github.v3+json", p.userAgent)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var upstream []githubRelease
	if err := json.NewDecoder(body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("decode github releases: %w", err)
	}

	releases := make([]release.Release, 0, len(upstream))
	for _, r := range upstream {
		assets := make([]release.Asset, 0, len(r.Assets)+2)
		for _, a := range r.Assets {
			assets = append(assets, release.Asset{
				Name:          a.Name,
				URL:           a.BrowserDownloadURL,
				ContentType:   a.ContentType,
				Size:          a.Size,
				DownloadCount: a.DownloadCount,
			})
		}
		// 源码归档作为伪资产附加在末尾，大小/下载数上游不提供。
		if r.TarballURL != "" {
			assets = append(assets, release.Asset{
				Name:        r.TagName + ".tar.gz",
				URL:         r.TarballURL,
				ContentType: "application/gzip",
			})
		}
		if r.ZipballURL != "" {
			assets = append(assets, release.Asset{
				Name:        r.TagName + ".zip",
				URL:         r.ZipballURL,
				ContentType: "application/zip",
			})
		}

		releases = append(releases, release.Release{
			TagName:     r.TagName,
			Name:        r.Name,
			PublishedAt: r.PublishedAt,
			HTMLURL:     r.HTMLURL,
			Body:        r.Body,
			Prerelease:  r.Prerelease,
			Draft:       r.Draft,
			Assets:      assets,
		})
	}
	return releases, nil
}

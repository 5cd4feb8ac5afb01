package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/checkup/checkup/internal/release"
)

func init() {
	MustRegister("forgejo", func(opts Options) Provider {
		return &forgejoProvider{
			client:    opts.Client,
			scheme:    "https",
			userAgent: opts.UserAgent,
		}
	})
}

// forgejoProvider 对任意 Forgejo/Gitea 实例生效，host 来自请求路径。
type forgejoProvider struct {
	client    *http.Client
	scheme    string
	userAgent string
}

type forgejoRelease struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	PublishedAt time.Time      `json:"published_at"`
	HTMLURL     string         `json:"html_url"`
	Body        string         `json:"body"`
	Prerelease  bool           `json:"prerelease"`
	Draft       bool           `json:"draft"`
	Assets      []forgejoAsset `json:"assets"`
	TarballURL  string         `json:"tarball_url"`
	ZipballURL  string         `json:"zipball_url"`
}

type forgejoAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	DownloadCount      int64  `json:"download_count"`
}

func (p *forgejoProvider) Name() string { return "forgejo" }

// ParseKey 接受 host/owner/repo 三段路径。
func (p *forgejoProvider) ParseKey(path string) (release.Key, error) {
	return release.ParseKey(path)
}

func (p *forgejoProvider) FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error) {
	url := fmt.Sprintf("%s://%s/api/v1/repos/%s/%s/releases", p.scheme, key.Host, key.Owner, key.Repo)
	body, err := getJSON(ctx, p.client, url, "application/json", p.userAgent)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var upstream []forgejoRelease
	if err := json.NewDecoder(body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("decode forgejo releases: %w", err)
	}

	releases := make([]release.Release, 0, len(upstream))
	for _, r := range upstream {
		assets := make([]release.Asset, 0, len(r.Assets)+2)
		for _, a := range r.Assets {
			assets = append(assets, release.Asset{
				Name:          a.Name,
				URL:           a.BrowserDownloadURL,
				Size:          a.Size,
				DownloadCount: a.DownloadCount,
			})
		}
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

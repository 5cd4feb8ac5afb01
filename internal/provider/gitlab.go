package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/checkup/checkup/internal/release"
)

const defaultGitLabAPI = "https://gitlab.com"

func init() {
	MustRegister("gitlab", func(opts Options) Provider {
		api := opts.GitLabAPI
		if api == "" {
			api = defaultGitLabAPI
		}
		return &gitlabProvider{
			client:    opts.Client,
			api:       strings.TrimSuffix(api, "/"),
			userAgent: opts.UserAgent,
		}
	})
}

type gitlabProvider struct {
	client    *http.Client
	api       string
	userAgent string
}

type gitlabRelease struct {
	TagName     string       `json:"tag_name"`
	Name        string       `json:"name"`
	ReleasedAt  time.Time    `json:"released_at"`
	Description string       `json:"description"`
	Links       gitlabLinks  `json:"_links"`
	Assets      gitlabAssets `json:"assets"`
}

type gitlabLinks struct {
	Self string `json:"self"`
}

type gitlabAssets struct {
	Sources []gitlabSource `json:"sources"`
	Links   []gitlabLink   `json:"links"`
}

type gitlabSource struct {
	Format string `json:"format"`
	URL    string `json:"url"`
}

type gitlabLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (p *gitlabProvider) Name() string { return "gitlab" }

// ParseKey 接受 owner/repo 两段路径，host 固定为 gitlab.com。
func (p *gitlabProvider) ParseKey(path string) (release.Key, error) {
	parts := strings.SplitN(strings.Trim(path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return release.Key{}, fmt.Errorf("%w: %s", release.ErrInvalidKey, path)
	}
	return release.Key{Host: "gitlab.com", Owner: parts[0], Repo: parts[1]}, nil
}

func (p *gitlabProvider) FetchReleases(ctx context.Context, key release.Key) ([]release.Release, error) {
	project := url.PathEscape(key.Owner + "/" + key.Repo)
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/releases", p.api, project)

	body, err := getJSON(ctx, p.client, endpoint, "application/json", p.userAgent)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var upstream []gitlabRelease
	if err := json.NewDecoder(body).Decode(&upstream); err != nil {
		return nil, fmt.Errorf("decode gitlab releases: %w", err)
	}

	releases := make([]release.Release, 0, len(upstream))
	for _, r := range upstream {
		assets := make([]release.Asset, 0, len(r.Assets.Sources)+len(r.Assets.Links))
		for _, s := range r.Assets.Sources {
			format := strings.ToLower(s.Format)
			assets = append(assets, release.Asset{
				Name:        r.TagName + "." + format,
				URL:         s.URL,
				ContentType: "application/" + format,
			})
		}
		for _, l := range r.Assets.Links {
			assets = append(assets, release.Asset{Name: l.Name, URL: l.URL})
		}

		releases = append(releases, release.Release{
			TagName:     r.TagName,
			Name:        r.Name,
			PublishedAt: r.ReleasedAt,
			HTMLURL:     r.Links.Self,
			Body:        r.Description,
			Assets:      assets,
		})
	}
	return releases, nil
}

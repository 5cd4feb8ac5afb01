package render

import (
	"strings"
	"testing"
	"time"

	"github.com/checkup/checkup/internal/release"
)

func sampleSnapshot() release.Snapshot {
	return release.Snapshot{
		Releases: []release.Release{
			{
				TagName:     "v0.26.1",
				Name:        "v0.26.1",
				PublishedAt: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
				HTMLURL:     "https://github.com/sharkdp/bat/releases/tag/v0.26.1",
				Body:        "line1\nline2\nline3\nline4",
				Assets: []release.Asset{
					{
						Name:          "bat-v0.26.1-x86_64-unknown-linux-gnu.tar.gz",
						URL:           "https://example.com/bat.tar.gz",
						Size:          3344556,
						DownloadCount: 42,
					},
				},
			},
			{
				TagName:     "v0.25.0",
				PublishedAt: time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC),
				HTMLURL:     "https://github.com/sharkdp/bat/releases/tag/v0.25.0",
				Prerelease:  true,
			},
		},
		CachedAt: time.Date(2026, 2, 11, 8, 30, 0, 0, time.UTC),
		RepoPath: "github.com/sharkdp/bat",
	}
}

func TestRenderReleases(t *testing.T) {
	r := New()
	key := release.Key{Host: "github.com", Owner: "sharkdp", Repo: "bat"}

	html, err := r.RenderReleases("github", key, sampleSnapshot())
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	for _, want := range []string{
		"Releases for github.com/sharkdp/bat",
		"Cached at: 2026-02-11 08:30:00 UTC",
		"Latest Release: v0.26.1",
		// host 不出现在 github 的 latest 链接里。
		`href="/github/sharkdp/bat/latest.tar.gz"`,
		"3.19 MB",
		"42 downloads",
		"Pre-release",
		"line3",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
	if strings.Contains(html, "line4") {
		t.Error("release notes preview must be limited to 3 lines")
	}
}

func TestRenderReleasesEscapesBody(t *testing.T) {
	r := New()
	key := release.Key{Host: "github.com", Owner: "o", Repo: "r"}
	snap := sampleSnapshot()
	snap.Releases[0].Body = "<script>alert(1)</script>"

	html, err := r.RenderReleases("github", key, snap)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("release body must be escaped")
	}
}

func TestRenderReleasesForgejoKeepsHostInLatestURL(t *testing.T) {
	r := New()
	key := release.Key{Host: "codeberg.org", Owner: "forgejo", Repo: "forgejo"}
	snap := sampleSnapshot()

	html, err := r.RenderReleases("forgejo", key, snap)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(html, `href="/forgejo/codeberg.org/forgejo/forgejo/latest.tar.gz"`) {
		t.Fatal("forgejo latest link must keep the host")
	}
}

func TestRenderPendingAndError(t *testing.T) {
	r := New()
	key := release.Key{Host: "github.com", Owner: "o", Repo: "r"}

	pending := r.RenderPending(key)
	if !strings.Contains(pending, "Processing") || !strings.Contains(pending, `http-equiv="refresh"`) {
		t.Fatalf("unexpected pending page: %s", pending)
	}

	errPage := r.RenderError(key, "upstream returned status: 502")
	if !strings.Contains(errPage, "Fetch failed") || !strings.Contains(errPage, "502") {
		t.Fatalf("unexpected error page: %s", errPage)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{3344556, "3.19 MB"},
		{5 * 1024 * 1024 * 1024, "5.00 GB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.size); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/checkup/checkup/internal/release"
)

var testKey = release.Key{Host: "github.com", Owner: "sharkdp", Repo: "bat"}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	snap := release.Snapshot{
		Releases: []release.Release{
			{
				TagName:     "v0.26.1",
				Name:        "v0.26.1",
				PublishedAt: time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
				HTMLURL:     "https://github.com/sharkdp/bat/releases/tag/v0.26.1",
				Assets: []release.Asset{
					{
						Name:          "bat-v0.26.1-x86_64-unknown-linux-gnu.tar.gz",
						URL:           "https://example.com/bat.tar.gz",
						ContentType:   "application/gzip",
						Size:          3344556,
						DownloadCount: 12,
					},
				},
			},
		},
		CachedAt: time.Date(2026, 2, 11, 8, 30, 0, 0, time.UTC),
		RepoPath: testKey.String(),
	}

	if err := store.WriteReleases(context.Background(), testKey, snap); err != nil {
		t.Fatalf("write error: %v", err)
	}

	got, err := store.ReadReleases(context.Background(), testKey)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !reflect.DeepEqual(*got, snap) {
		t.Fatalf("snapshot mismatch:\n got %+v\nwant %+v", *got, snap)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2026, 3, 1, 9, 15, 30, 0, time.UTC)

	if err := store.WriteTimestamp(context.Background(), testKey, at); err != nil {
		t.Fatalf("write error: %v", err)
	}
	got, err := store.ReadTimestamp(context.Background(), testKey)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("timestamp mismatch: got %v want %v", got, at)
	}
}

func TestReadMissingEntry(t *testing.T) {
	store := newTestStore(t)
	key := release.Key{Host: "github.com", Owner: "none", Repo: "missing"}

	if _, err := store.ReadTimestamp(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for timestamp, got %v", err)
	}
	if _, err := store.ReadReleases(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for releases, got %v", err)
	}
	if _, err := store.ReadHTML(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for html, got %v", err)
	}
}

func TestCorruptSnapshotReportsErrCorrupted(t *testing.T) {
	store := newTestStore(t)
	fs := store.(*fileStore)

	dir, err := fs.entryDir(testKey)
	if err != nil {
		t.Fatalf("dir error: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "releases.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	if _, err := store.ReadReleases(context.Background(), testKey); !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestHTMLRoundTrip(t *testing.T) {
	store := newTestStore(t)
	html := "<html><body>releases</body></html>"

	if err := store.WriteHTML(context.Background(), testKey, html); err != nil {
		t.Fatalf("write error: %v", err)
	}
	got, err := store.ReadHTML(context.Background(), testKey)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if got != html {
		t.Fatalf("html mismatch: %s", got)
	}
}

func TestIsExpired(t *testing.T) {
	store := newTestStore(t)
	fs := store.(*fileStore)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return now }
	fs.ttl = time.Hour

	if fs.IsExpired(now.Add(-time.Hour)) {
		t.Fatal("entry exactly at ttl boundary must still be fresh")
	}
	if !fs.IsExpired(now.Add(-time.Hour - time.Second)) {
		t.Fatal("entry past ttl must be expired")
	}
}

func TestEntryDirRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	fs := store.(*fileStore)

	key := release.Key{Host: "..", Owner: "..", Repo: ".."}
	if _, err := fs.entryDir(key); err == nil {
		t.Fatal("expected traversal rejection")
	}
}

func TestPathKeyEntryDir(t *testing.T) {
	store := newTestStore(t)
	fs := store.(*fileStore)

	// cgit 风格的 Key：Owner 为空，Repo 含多级路径。
	key := release.Key{Host: "git.kernel.org", Repo: "pub/scm/linux/kernel/git/stable/linux.git"}
	dir, err := fs.entryDir(key)
	if err != nil {
		t.Fatalf("dir error: %v", err)
	}
	want := filepath.Join(fs.basePath, "repo", "git.kernel.org", "pub", "scm", "linux", "kernel", "git", "stable", "linux.git")
	if dir != want {
		t.Fatalf("dir mismatch: got %s want %s", dir, want)
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

package coordinator

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/checkup/checkup/internal/cache"
	"github.com/checkup/checkup/internal/release"
)

var testKey = release.Key{Host: "github.com", Owner: "sharkdp", Repo: "bat"}

// fakeSource counts upstream calls and can be made to block or fail.
type fakeSource struct {
	calls    atomic.Int64
	releases []release.Release
	err      error
	block    chan struct{}
}

func (f *fakeSource) Name() string { return "github" }

func (f *fakeSource) FetchReleases(_ context.Context, _ release.Key) ([]release.Release, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.releases, nil
}

func sampleReleases() []release.Release {
	return []release.Release{
		{
			TagName:     "v1.2.0",
			PublishedAt: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
			HTMLURL:     "https://github.com/sharkdp/bat/releases/tag/v1.2.0",
			Assets: []release.Asset{
				{Name: "bat-v1.2.0-x86_64-unknown-linux-gnu.tar.gz", URL: "https://example.com/a.tar.gz"},
			},
		},
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, cache.Store) {
	t.Helper()
	store, err := cache.NewStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	coord, err := New(store, nil, logger, Options{})
	if err != nil {
		t.Fatalf("coordinator error: %v", err)
	}
	return coord, store
}

func TestFirstRequestReturnsPendingThenFresh(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &fakeSource{releases: sampleReleases()}

	result := coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StatePending {
		t.Fatalf("expected pending on cold cache, got %s", result.State)
	}

	coord.Wait()

	result = coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateFresh {
		t.Fatalf("expected fresh after refresh, got %s", result.State)
	}
	if len(result.Releases) != 1 || result.Releases[0].TagName != "v1.2.0" {
		t.Fatalf("unexpected releases: %+v", result.Releases)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestSingleFlightUnderConcurrency(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &fakeSource{releases: sampleReleases(), block: make(chan struct{})}

	const n = 32
	var wg sync.WaitGroup
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = coord.GetOrRefresh(context.Background(), testKey, src)
		}(i)
	}
	wg.Wait()

	close(src.block)
	coord.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 upstream fetch, got %d", got)
	}
	for i, r := range results {
		if r.State != StatePending && r.State != StateFresh {
			t.Fatalf("caller %d got unexpected state %s (err %q)", i, r.State, r.Err)
		}
	}
}

func TestExpiredEntryServedStaleWhileRefreshing(t *testing.T) {
	coord, store := newTestCoordinator(t)
	src := &fakeSource{releases: sampleReleases(), block: make(chan struct{})}

	// Seed an already-expired snapshot.
	old := time.Now().Add(-2 * time.Hour).UTC()
	snap := release.Snapshot{Releases: sampleReleases(), CachedAt: old, RepoPath: testKey.String()}
	if err := store.WriteReleases(context.Background(), testKey, snap); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if err := store.WriteTimestamp(context.Background(), testKey, old); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	result := coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateStale {
		t.Fatalf("expected stale result while refreshing, got %s", result.State)
	}
	if len(result.Releases) == 0 {
		t.Fatal("stale result must still carry the old releases")
	}

	// Second caller joins the in-flight fetch, no extra upstream call.
	second := coord.GetOrRefresh(context.Background(), testKey, src)
	if second.State != StateStale {
		t.Fatalf("expected stale for second caller, got %s", second.State)
	}

	close(src.block)
	coord.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	fresh := coord.GetOrRefresh(context.Background(), testKey, src)
	if fresh.State != StateFresh {
		t.Fatalf("expected fresh after refresh, got %s", fresh.State)
	}
}

func TestFailureIsRememberedAndCleared(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &fakeSource{err: errors.New("upstream returned status: 502")}

	result := coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StatePending {
		t.Fatalf("expected pending for first request, got %s", result.State)
	}
	coord.Wait()

	// Negative cache: no new upstream call within the backoff window.
	result = coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	if result.Err == "" {
		t.Fatal("failed result must carry the remembered error")
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	// After the backoff window the next request retries and succeeds,
	// which clears the failure.
	coord.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	src.err = nil
	src.releases = sampleReleases()

	result = coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StatePending {
		t.Fatalf("expected pending on retry, got %s", result.State)
	}
	coord.Wait()

	coord.now = time.Now
	result = coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateFresh {
		t.Fatalf("expected fresh after recovery, got %s", result.State)
	}
}

func TestFailedRefreshKeepsStaleData(t *testing.T) {
	coord, store := newTestCoordinator(t)

	old := time.Now().Add(-2 * time.Hour).UTC()
	snap := release.Snapshot{Releases: sampleReleases(), CachedAt: old, RepoPath: testKey.String()}
	if err := store.WriteReleases(context.Background(), testKey, snap); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if err := store.WriteTimestamp(context.Background(), testKey, old); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	src := &fakeSource{err: errors.New("boom")}
	result := coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateStale {
		t.Fatalf("expected stale while refreshing, got %s", result.State)
	}
	coord.Wait()

	// Refresh failed: old data stays on disk and keeps being served.
	result = coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateStale {
		t.Fatalf("expected stale fallback after failed refresh, got %s", result.State)
	}
	if len(result.Releases) == 0 {
		t.Fatal("stale fallback must carry old releases")
	}
	if result.Err == "" {
		t.Fatal("stale fallback should surface the remembered error")
	}
}

func TestFailureIsolationAcrossKeys(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	otherKey := release.Key{Host: "github.com", Owner: "other", Repo: "ok"}

	bad := &fakeSource{err: errors.New("down")}
	good := &fakeSource{releases: sampleReleases()}

	coord.GetOrRefresh(context.Background(), testKey, bad)
	coord.GetOrRefresh(context.Background(), otherKey, good)
	coord.Wait()

	if r := coord.GetOrRefresh(context.Background(), testKey, bad); r.State != StateFailed {
		t.Fatalf("expected failed for bad key, got %s", r.State)
	}
	if r := coord.GetOrRefresh(context.Background(), otherKey, good); r.State != StateFresh {
		t.Fatalf("failure on one key must not affect another, got %s", r.State)
	}
}

func TestBlockingFetchReturnsDataInline(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &fakeSource{releases: sampleReleases()}

	releases, err := coord.BlockingFetch(context.Background(), testKey, src)
	if err != nil {
		t.Fatalf("blocking fetch error: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("unexpected releases: %+v", releases)
	}

	// The inline fetch persisted the snapshot, so the next lookup is fresh.
	result := coord.GetOrRefresh(context.Background(), testKey, src)
	if result.State != StateFresh {
		t.Fatalf("expected fresh after blocking fetch, got %s", result.State)
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestBlockingFetchPropagatesUpstreamError(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &fakeSource{err: errors.New("gateway timeout")}

	if _, err := coord.BlockingFetch(context.Background(), testKey, src); err == nil {
		t.Fatal("expected upstream error to propagate")
	}
}

func TestPanicInSourceReleasesPendingSlot(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	src := &panicSource{}

	coord.GetOrRefresh(context.Background(), testKey, src)
	coord.Wait()

	// The slot was released: after the backoff window another fetch may run.
	coord.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	good := &fakeSource{releases: sampleReleases()}
	result := coord.GetOrRefresh(context.Background(), testKey, good)
	if result.State != StatePending {
		t.Fatalf("expected a new fetch after panic cleanup, got %s", result.State)
	}
	coord.Wait()
}

type panicSource struct{}

func (panicSource) Name() string { return "github" }

func (panicSource) FetchReleases(context.Context, release.Key) ([]release.Release, error) {
	panic("adapter bug")
}

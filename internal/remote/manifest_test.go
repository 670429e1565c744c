package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/remote/remotetest"
)

type fakeEndpoints struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeEndpoints) SetUpdaterEndpoint(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.urls = append(f.urls, url)

	return nil
}

func newStore(t *testing.T, fake *remotetest.Server, endpoints EndpointWriter, conflictCheck bool) *ManifestStore {
	t.Helper()

	return NewManifestStore(newTestClient(t, fake), ManifestStoreOptions{
		Owner:          testOwner,
		Repo:           testRepo,
		RawURLTemplate: config.DefaultRawURLTemplate,
		Endpoints:      endpoints,
		ConflictCheck:  conflictCheck,
	})
}

func linuxUpdate(version string) release.ManifestUpdate {
	return release.ManifestUpdate{
		Version:  version,
		Notes:    "Bug fixes",
		PubDate:  "2024-06-01T12:00:00Z",
		Platform: release.LinuxX8664,
		Detail:   release.PlatformDetail{Signature: "S2", URL: "U2"},
	}
}

// TestCreate publishes a private gist and rewrites the endpoint.
func TestCreate(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	endpoints := new(fakeEndpoints)

	id, err := newStore(t, fake, endpoints, true).
		Create(context.Background(), release.NewManifest(linuxUpdate("1.2.4")), release.LinuxX8664)
	require.NoError(t, err)
	require.Equal(t, "gist1", id)
	require.Equal(t, []string{"https://gist.github.com/octo/gist1/raw"}, endpoints.urls)

	content := fake.GistFile(id, "app-javelin-linux-x86_64-manifest.json")
	require.JSONEq(t, `{
  "version": "1.2.4",
  "notes": "Bug fixes",
  "pub_date": "2024-06-01T12:00:00Z",
  "platforms": {"linux-x86_64": {"signature": "S2", "url": "U2"}}
}`, content)
}

// TestCreate_WithoutID is a partial remote state and leaves the endpoint alone.
func TestCreate_WithoutID(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.DropGistIDs()

	endpoints := new(fakeEndpoints)

	_, err := newStore(t, fake, endpoints, true).
		Create(context.Background(), release.NewManifest(linuxUpdate("1.2.4")), release.LinuxX8664)
	require.ErrorIs(t, err, ErrGistWithoutID)
	require.Equal(t, release.KindPartialRemoteState, release.KindOf(err))
	require.Empty(t, endpoints.urls)
}

// TestCreate_EndpointFailure reports the orphaned gist.
func TestCreate_EndpointFailure(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	endpoints := &fakeEndpoints{err: errors.New("disk full")}

	id, err := newStore(t, fake, endpoints, true).
		Create(context.Background(), release.NewManifest(linuxUpdate("1.2.4")), release.LinuxX8664)
	require.Equal(t, release.KindPartialRemoteState, release.KindOf(err))
	require.Equal(t, "gist1", id)
	require.Contains(t, err.Error(), "gist1")
}

// TestFetchAndUpdate keeps other platform entries.
func TestFetchAndUpdate(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	filename := "app-javelin-linux-x86_64-manifest.json"
	fake.SetGist("g1", filename, `{
  "version": "1.2.3",
  "notes": "old",
  "pub_date": "2024-01-01T00:00:00Z",
  "platforms": {"darwin-x86_64": {"signature": "S1", "url": "U1"}}
}`)

	err := newStore(t, fake, new(fakeEndpoints), true).
		FetchAndUpdate(context.Background(), "g1", linuxUpdate("1.2.4"))
	require.NoError(t, err)

	require.JSONEq(t, `{
  "version": "1.2.4",
  "notes": "Bug fixes",
  "pub_date": "2024-06-01T12:00:00Z",
  "platforms": {
    "darwin-x86_64": {"signature": "S1", "url": "U1"},
    "linux-x86_64": {"signature": "S2", "url": "U2"}
  }
}`, fake.GistFile("g1", filename))

	_, patches := fake.GistCounts()
	require.Equal(t, 1, patches)
}

// TestFetchAndUpdate_MissingFile fails without writing.
func TestFetchAndUpdate_MissingFile(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetGist("g1", "app-javelin-darwin-x86_64-manifest.json", `{}`)

	err := newStore(t, fake, new(fakeEndpoints), true).
		FetchAndUpdate(context.Background(), "g1", linuxUpdate("1.2.4"))
	require.ErrorIs(t, err, ErrManifestFileNotFound)
	require.Equal(t, release.KindRemoteAPI, release.KindOf(err))

	_, patches := fake.GistCounts()
	require.Zero(t, patches)

	err = newStore(t, fake, new(fakeEndpoints), true).
		FetchAndUpdate(context.Background(), "nope", linuxUpdate("1.2.4"))
	require.Equal(t, release.KindRemoteAPI, release.KindOf(err))
}

// TestFetchAndUpdate_Conflict detects a writer that got in between read and write.
func TestFetchAndUpdate_Conflict(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	filename := "app-javelin-linux-x86_64-manifest.json"
	original := `{"version":"1.2.3","notes":"","pub_date":"","platforms":{}}`
	fake.SetGist("g1", filename, original)

	var once sync.Once

	fake.OnGistGet(func(s *remotetest.Server, id string) {
		once.Do(func() {
			s.SetGist(id, filename, `{"version":"9.9.9","notes":"","pub_date":"","platforms":{}}`)
		})
	})

	err := newStore(t, fake, new(fakeEndpoints), true).
		FetchAndUpdate(context.Background(), "g1", linuxUpdate("1.2.4"))
	require.ErrorIs(t, err, ErrManifestChanged)
	require.Equal(t, release.KindConflict, release.KindOf(err))

	_, patches := fake.GistCounts()
	require.Zero(t, patches)
}

// TestFetchAndUpdate_ConflictCheckDisabled writes with a single read.
func TestFetchAndUpdate_ConflictCheckDisabled(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	filename := "app-javelin-linux-x86_64-manifest.json"
	fake.SetGist("g1", filename, `{"version":"1.2.3","notes":"","pub_date":"","platforms":{}}`)

	var reads atomic.Int32

	fake.OnGistGet(func(*remotetest.Server, string) { reads.Add(1) })

	err := newStore(t, fake, new(fakeEndpoints), false).
		FetchAndUpdate(context.Background(), "g1", linuxUpdate("1.2.4"))
	require.NoError(t, err)
	require.Equal(t, int32(1), reads.Load())
}

// TestRawURL expands the owner and id placeholders.
func TestRawURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "https://gist.github.com/octo/abc/raw", RawURL(config.DefaultRawURLTemplate, "octo", "abc"))
}

package remote

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/remote/remotetest"
)

// TestEnsureRelease_ReusesMatchingName does not create when the latest release matches.
func TestEnsureRelease_ReusesMatchingName(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetLatest(testOwner, testRepo, "1.2.4")

	rec, err := NewPublisher(newTestClient(t, fake), testOwner, testRepo, "").
		EnsureRelease(context.Background(), "1.2.4", "notes", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.ID)
	require.Equal(t, "1.2.4", rec.Name)
	require.Empty(t, fake.CreatedReleases())

	auth, agents := fake.RequestHeaders()
	require.Equal(t, "Bearer "+testToken, auth[0])
	require.Equal(t, userAgent, agents[0])
}

// TestEnsureRelease_CreatesOnMismatchOrMissing creates exactly one release.
func TestEnsureRelease_CreatesOnMismatchOrMissing(t *testing.T) {
	t.Parallel()

	for _, latest := range []string{"1.2.3", ""} {
		fake := remotetest.NewServer(t)
		if latest != "" {
			fake.SetLatest(testOwner, testRepo, latest)
		}

		rec, err := NewPublisher(newTestClient(t, fake), testOwner, testRepo, "").
			EnsureRelease(context.Background(), "1.2.4", "Bug fixes", "abc123")
		require.NoError(t, err)
		created := fake.CreatedReleases()
		require.Len(t, created, 1)
		require.Equal(t, "1.2.4", rec.Name)
		require.Equal(t, "1.2.4", rec.TagName)
		require.Contains(t, rec.UploadURL, "{?name,label}")

		require.Equal(t, "Bug fixes", created[0].GetBody())
		require.False(t, created[0].GetDraft())
		require.False(t, created[0].GetPrerelease())
		require.Equal(t, "abc123", created[0].GetTargetCommitish())
	}
}

// droppedLookupTransport drops the first latest-release lookup before it reaches the server.
type droppedLookupTransport struct {
	base   http.RoundTripper
	failed atomic.Bool
}

func (t *droppedLookupTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/releases/latest") && t.failed.CompareAndSwap(false, true) {
		return nil, errors.New("connection reset by peer")
	}

	return t.base.RoundTrip(req)
}

// TestEnsureRelease_CreatesWhenLookupHasNoResponse creates exactly once after a transport failure.
func TestEnsureRelease_CreatesWhenLookupHasNoResponse(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetLatest(testOwner, testRepo, "1.2.4")

	transport := &droppedLookupTransport{base: fake.HTTPClient().Transport}

	client, err := NewClient(testToken,
		WithBaseURL(fake.URL()),
		WithUploadURL(fake.UploadURL()),
		WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)

	rec, err := NewPublisher(client, testOwner, testRepo, "").
		EnsureRelease(context.Background(), "1.2.4", "Bug fixes", "")
	require.NoError(t, err)
	require.True(t, transport.failed.Load())

	created := fake.CreatedReleases()
	require.Len(t, created, 1)
	require.Equal(t, "1.2.4", created[0].GetName())
	require.Equal(t, created[0].GetID(), rec.ID)
}

// TestEnsureRelease_UnexpectedStatus fails without creating.
func TestEnsureRelease_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetLatestStatus(http.StatusUnauthorized)

	_, err := NewPublisher(newTestClient(t, fake), testOwner, testRepo, "").
		EnsureRelease(context.Background(), "1.2.4", "n", "")
	require.Error(t, err)
	require.Equal(t, release.KindRemoteAPI, release.KindOf(err))
	require.Empty(t, fake.CreatedReleases())
}

// TestEnsureRelease_CancelledContext reports an abort before any call.
func TestEnsureRelease_CancelledContext(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPublisher(newTestClient(t, fake), testOwner, testRepo, "").EnsureRelease(ctx, "1.0.0", "n", "")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, release.KindAborted, release.KindOf(err))
	auth, _ := fake.RequestHeaders()
	require.Empty(t, auth)
}

func writeAsset(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "Demo-linux-x86_64.AppImage.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

// TestUploadAsset sends the file under its base name and returns the asset URL.
func TestUploadAsset(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetLatest(testOwner, testRepo, "1.2.4")

	publisher := NewPublisher(newTestClient(t, fake), testOwner, testRepo, config.AssetConflictFail)
	rec, err := publisher.EnsureRelease(context.Background(), "1.2.4", "n", "")
	require.NoError(t, err)

	path := writeAsset(t, "bundle-bytes")

	assetURL, err := publisher.UploadAsset(context.Background(), rec, path)
	require.NoError(t, err)
	require.Contains(t, assetURL, "/repos/octo/app/releases/assets/")
	require.Equal(t, "bundle-bytes", fake.Uploaded("Demo-linux-x86_64.AppImage.tar.gz"))

	// Second upload of the same name collides.
	_, err = publisher.UploadAsset(context.Background(), rec, path)
	require.ErrorIs(t, err, ErrUploadRejected)
	require.Equal(t, release.KindRemoteAPI, release.KindOf(err))
	require.Contains(t, release.Hints(err), "bump the version")
}

// TestUploadAsset_Replace deletes an existing asset of the same name first.
func TestUploadAsset_Replace(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)
	fake.SetLatest(testOwner, testRepo, "1.2.4")
	fake.AddAsset("Demo-linux-x86_64.AppImage.tar.gz", 7)
	fake.AddAsset("Demo-darwin-x86_64.app.tar.gz", 8)

	publisher := NewPublisher(newTestClient(t, fake), testOwner, testRepo, config.AssetConflictReplace)
	rec, err := publisher.EnsureRelease(context.Background(), "1.2.4", "n", "")
	require.NoError(t, err)

	_, err = publisher.UploadAsset(context.Background(), rec, writeAsset(t, "new"))
	require.NoError(t, err)
	require.Equal(t, []int64{7}, fake.DeletedAssets())
	require.True(t, fake.HasAsset("Demo-darwin-x86_64.app.tar.gz"))
	require.Equal(t, "new", fake.Uploaded("Demo-linux-x86_64.AppImage.tar.gz"))
}

// TestUploadAsset_MissingFile is an artifact failure.
func TestUploadAsset_MissingFile(t *testing.T) {
	t.Parallel()

	fake := remotetest.NewServer(t)

	_, err := NewPublisher(newTestClient(t, fake), testOwner, testRepo, "").UploadAsset(context.Background(),
		&release.Record{ID: 1, UploadURL: fake.UploadURL() + "x{?name,label}"},
		filepath.Join(t.TempDir(), "missing.tar.gz"))
	require.Equal(t, release.KindArtifactNotFound, release.KindOf(err))
}

// TestExpandUploadURL replaces the hypermedia suffix.
func TestExpandUploadURL(t *testing.T) {
	t.Parallel()

	got, err := expandUploadURL(
		"https://uploads.github.com/repos/octo/app/releases/1/assets{?name,label}",
		"Demo App-linux-x86_64.AppImage.tar.gz")
	require.NoError(t, err)
	require.Equal(t,
		"https://uploads.github.com/repos/octo/app/releases/1/assets?name=Demo+App-linux-x86_64.AppImage.tar.gz",
		got)
}

// TestNewClient_EmptyToken refuses to build an anonymous client.
func TestNewClient_EmptyToken(t *testing.T) {
	t.Parallel()

	_, err := NewClient(" ")
	require.ErrorIs(t, err, ErrEmptyToken)
}

package release

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestManifestApply_UpsertsOnlyOnePlatform verifies scalars are replaced while other platforms survive.
func TestManifestApply_UpsertsOnlyOnePlatform(t *testing.T) {
	t.Parallel()

	existing := []byte(`{
  "version": "1.2.3",
  "notes": "old",
  "pub_date": "2024-01-01T00:00:00Z",
  "platforms": {
    "darwin-x86_64": {"signature": "S1", "url": "U1"}
  }
}`)

	m, err := DecodeManifest(existing)
	require.NoError(t, err)

	m.Apply(ManifestUpdate{
		Version:  "1.2.4",
		Notes:    "Bug fixes",
		PubDate:  "2024-06-01T12:00:00Z",
		Platform: LinuxX8664,
		Detail:   PlatformDetail{Signature: "S2", URL: "U2"},
	})

	data, err := m.Encode()
	require.NoError(t, err)

	require.JSONEq(t, `{
  "version": "1.2.4",
  "notes": "Bug fixes",
  "pub_date": "2024-06-01T12:00:00Z",
  "platforms": {
    "darwin-x86_64": {"signature": "S1", "url": "U1"},
    "linux-x86_64": {"signature": "S2", "url": "U2"}
  }
}`, string(data))

	// Same platform again replaces only its own entry.
	m.Apply(ManifestUpdate{
		Version:  "1.2.5",
		Notes:    "n",
		PubDate:  "2024-06-02T12:00:00Z",
		Platform: LinuxX8664,
		Detail:   PlatformDetail{Signature: "S3", URL: "U3"},
	})
	require.Len(t, m.Platforms, 2)
	require.Equal(t, PlatformDetail{Signature: "S1", URL: "U1"}, m.Platforms[DarwinX8664])
	require.Equal(t, PlatformDetail{Signature: "S3", URL: "U3"}, m.Platforms[LinuxX8664])
}

// TestNewManifest checks a fresh manifest holds exactly one platform.
func TestNewManifest(t *testing.T) {
	t.Parallel()

	m := NewManifest(ManifestUpdate{
		Version:  "0.1.0",
		Notes:    "first",
		PubDate:  "2024-06-01T12:00:00Z",
		Platform: WindowsX8664,
		Detail:   PlatformDetail{Signature: "sig", URL: "https://example.com/a"},
	})

	require.Equal(t, "0.1.0", m.Version)
	require.Len(t, m.Platforms, 1)
	require.Equal(t, "sig", m.Platforms[WindowsX8664].Signature)
}

// TestDecodeManifest_Invalid reports malformed documents.
func TestDecodeManifest_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeManifest([]byte("{not json"))
	require.Error(t, err)
}

// TestPublishDate formats in UTC with second precision.
func TestPublishDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2024, time.June, 1, 15, 4, 5, 999, loc)

	require.Equal(t, "2024-06-01T12:04:05Z", PublishDate(ts))
}

// TestManifestNames covers gist file name and description formats.
func TestManifestNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "app-javelin-linux-x86_64-manifest.json", ManifestFilename("app", LinuxX8664))
	require.Equal(t, "app-javelin-darwin-aarch64", ManifestDescription("app", DarwinAArch64))
}

// TestManifestEncode_KeepsMarkup writes notes without HTML escaping or a trailing newline.
func TestManifestEncode_KeepsMarkup(t *testing.T) {
	t.Parallel()

	m := NewManifest(ManifestUpdate{
		Version:  "1.0.0",
		Notes:    "Fixed <crash> & hang",
		PubDate:  "2024-06-01T12:00:00Z",
		Platform: LinuxX8664,
		Detail:   PlatformDetail{Signature: "sig", URL: "https://example.com/a?x=1&y=2"},
	})

	data, err := m.Encode()
	require.NoError(t, err)

	out := string(data)
	require.Contains(t, out, `"notes": "Fixed <crash> & hang"`)
	require.Contains(t, out, `"url": "https://example.com/a?x=1&y=2"`)
	require.NotContains(t, out, `\u0026`)
	require.NotContains(t, out, `\u003c`)
	require.NotEqual(t, byte('\n'), data[len(data)-1])
}

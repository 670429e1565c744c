package release

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// PubDateLayout is the publish date format the updater expects (ISO-8601, UTC, seconds).
const PubDateLayout = "2006-01-02T15:04:05Z"

// toolName is embedded in gist descriptions and manifest file names.
const toolName = "javelin"

// PlatformDetail is the per-platform entry of the update manifest.
type PlatformDetail struct {
	// Signature is the content of the detached signature file.
	Signature string `json:"signature"`
	// URL is where the updater downloads the asset from.
	URL string `json:"url"`
}

// Manifest is the update document the desktop app polls.
type Manifest struct {
	Version   string                         `json:"version"`
	Notes     string                         `json:"notes"`
	PubDate   string                         `json:"pub_date"`
	Platforms map[PlatformKey]PlatformDetail `json:"platforms"`
}

// ManifestUpdate carries the values one release run writes into the manifest.
type ManifestUpdate struct {
	Version  string
	Notes    string
	PubDate  string
	Platform PlatformKey
	Detail   PlatformDetail
}

// NewManifest builds a manifest holding a single platform entry.
func NewManifest(update ManifestUpdate) *Manifest {
	m := new(Manifest)
	m.Apply(update)

	return m
}

// Apply overwrites the scalar fields and upserts the one platform entry of update.
// Entries of other platforms are left untouched.
func (m *Manifest) Apply(update ManifestUpdate) {
	m.Version = update.Version
	m.Notes = update.Notes
	m.PubDate = update.PubDate

	if m.Platforms == nil {
		m.Platforms = make(map[PlatformKey]PlatformDetail, 1)
	}

	m.Platforms[update.Platform] = update.Detail
}

// Encode renders the manifest as indented JSON. Notes are written without HTML escaping.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeManifest parses manifest JSON.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &m, nil
}

// PublishDate formats t as the manifest pub_date.
func PublishDate(t time.Time) string {
	return t.UTC().Format(PubDateLayout)
}

// ManifestFilename is the gist file holding the manifest for repo and platform.
func ManifestFilename(repo string, platform PlatformKey) string {
	return fmt.Sprintf("%s-%s-%s-manifest.json", repo, toolName, platform)
}

// ManifestDescription is the description of a newly created manifest gist.
func ManifestDescription(repo string, platform PlatformKey) string {
	return fmt.Sprintf("%s-%s-%s", repo, toolName, platform)
}

// Record is the GitHub release assets are uploaded to.
type Record struct {
	ID      int64
	Name    string
	TagName string
	// UploadURL is the hypermedia upload template, e.g. ".../assets{?name,label}".
	UploadURL string
}

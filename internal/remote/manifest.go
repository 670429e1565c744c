package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v39/github"

	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
)

var (
	// ErrGistWithoutID is returned when GitHub accepts a gist but sends back no id.
	ErrGistWithoutID = errors.New("gist created but no ID returned")
	// ErrManifestFileNotFound is returned when the gist lacks this platform's manifest file.
	ErrManifestFileNotFound = errors.New("manifest file not found in the gist")
	// ErrManifestChanged is returned when the manifest changed between read and write.
	ErrManifestChanged = errors.New("manifest changed remotely during update")
)

// EndpointWriter rewrites the updater endpoint of the application config.
type EndpointWriter interface {
	SetUpdaterEndpoint(ctx context.Context, url string) error
}

// ManifestStore keeps per-platform update manifests in gists.
type ManifestStore struct {
	client         *github.Client
	owner          string
	repo           string
	rawURLTemplate string
	endpoints      EndpointWriter
	conflictCheck  bool
}

// ManifestStoreOptions configures a ManifestStore.
type ManifestStoreOptions struct {
	Owner          string
	Repo           string
	RawURLTemplate string
	Endpoints      EndpointWriter
	ConflictCheck  bool
}

// NewManifestStore creates a gist-backed manifest store.
func NewManifestStore(client *github.Client, opts ManifestStoreOptions) *ManifestStore {
	return &ManifestStore{
		client:         client,
		owner:          opts.Owner,
		repo:           opts.Repo,
		rawURLTemplate: opts.RawURLTemplate,
		endpoints:      opts.Endpoints,
		conflictCheck:  opts.ConflictCheck,
	}
}

// RawURL expands template with the gist owner and id.
func RawURL(template, owner, id string) string {
	return strings.NewReplacer("{owner}", owner, "{id}", id).Replace(template)
}

// Create publishes a new private gist holding manifest, then points the updater
// endpoint at its raw URL. It returns the gist id.
func (s *ManifestStore) Create(ctx context.Context, manifest *release.Manifest, platform release.PlatformKey) (string, error) {
	content, err := manifest.Encode()
	if err != nil {
		return "", release.Wrap(release.KindRemoteAPI, "create manifest", err)
	}

	filename := release.ManifestFilename(s.repo, platform)

	//nolint:exhaustruct // Only the fields of a new gist are sent.
	gist := &github.Gist{
		Description: github.String(release.ManifestDescription(s.repo, platform)),
		Public:      github.Bool(false),
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(filename): {Content: github.String(string(content))},
		},
	}

	logger.InfoKV(ctx, "Creating manifest gist", "file", filename)

	created, _, err := s.client.Gists.Create(ctx, gist)
	if err != nil {
		return "", release.Wrap(release.KindRemoteAPI, "create manifest gist", err)
	}

	id := created.GetID()
	if id == "" {
		return "", release.Wrap(release.KindPartialRemoteState, "create manifest gist", ErrGistWithoutID)
	}

	rawURL := RawURL(s.rawURLTemplate, s.owner, id)

	logger.InfoKV(ctx, "Manifest gist created", "id", id, "raw_url", rawURL)

	if err = s.endpoints.SetUpdaterEndpoint(ctx, rawURL); err != nil {
		return id, release.Wrap(release.KindPartialRemoteState, "set updater endpoint",
			fmt.Errorf("gist %s (%s) exists but the app config was not updated: %w", id, rawURL, err))
	}

	return id, nil
}

// FetchAndUpdate merges update into the platform's manifest stored in gist id.
// Only that one file is written back.
func (s *ManifestStore) FetchAndUpdate(ctx context.Context, id string, update release.ManifestUpdate) error {
	filename := release.ManifestFilename(s.repo, update.Platform)

	original, err := s.fetchContent(ctx, id, filename)
	if err != nil {
		return err
	}

	manifest, err := release.DecodeManifest([]byte(original))
	if err != nil {
		return release.Wrap(release.KindRemoteAPI, "fetch manifest", err)
	}

	manifest.Apply(update)

	content, err := manifest.Encode()
	if err != nil {
		return release.Wrap(release.KindRemoteAPI, "update manifest", err)
	}

	if s.conflictCheck {
		current, fetchErr := s.fetchContent(ctx, id, filename)
		if fetchErr != nil {
			return fetchErr
		}

		if current != original {
			return release.Wrap(release.KindConflict, "update manifest",
				fmt.Errorf("%w: gist %s file %s", ErrManifestChanged, id, filename))
		}
	}

	//nolint:exhaustruct // A gist edit sends only the changed file.
	patch := &github.Gist{
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(filename): {Content: github.String(string(content))},
		},
	}

	if _, _, err = s.client.Gists.Edit(ctx, id, patch); err != nil {
		return release.Wrap(release.KindRemoteAPI, "update manifest gist", err)
	}

	logger.InfoKV(ctx, "Manifest updated",
		"id", id,
		"platform", update.Platform,
		"version", update.Version)

	return nil
}

func (s *ManifestStore) fetchContent(ctx context.Context, id, filename string) (string, error) {
	gist, _, err := s.client.Gists.Get(ctx, id)
	if err != nil {
		return "", release.Wrap(release.KindRemoteAPI, "fetch manifest gist", err)
	}

	file, ok := gist.Files[github.GistFilename(filename)]
	if !ok || file.Content == nil {
		return "", release.Wrap(release.KindRemoteAPI, "fetch manifest gist",
			fmt.Errorf("%w: %s in gist %s", ErrManifestFileNotFound, filename, id))
	}

	return file.GetContent(), nil
}

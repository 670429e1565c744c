package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v39/github"

	"github.com/oshokin/javelin/internal/config"
	"github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/progress"
)

const (
	assetMediaType = "application/octet-stream"
	assetsPerPage  = 100
)

// ErrUploadRejected is returned when GitHub refuses an asset upload.
var ErrUploadRejected = errors.New("asset upload rejected")

// Publisher manages releases and assets of one repository.
type Publisher struct {
	client *github.Client
	owner  string
	repo   string
	policy config.AssetConflictPolicy
}

// NewPublisher creates a publisher for owner/repo.
func NewPublisher(client *github.Client, owner, repo string, policy config.AssetConflictPolicy) *Publisher {
	if policy == "" {
		policy = config.AssetConflictFail
	}

	return &Publisher{
		client: client,
		owner:  owner,
		repo:   repo,
		policy: policy,
	}
}

// EnsureRelease returns the latest release when its name equals version and
// creates a new release otherwise. A failed lookup without an HTTP response
// also leads to creation; any other lookup status is an error.
func (p *Publisher) EnsureRelease(ctx context.Context, version, notes, commitish string) (*release.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, release.Wrap(release.KindAborted, "ensure release", err)
	}

	latest, resp, err := p.client.Repositories.GetLatestRelease(ctx, p.owner, p.repo)

	switch {
	case err == nil:
		if latest.GetName() == version {
			logger.InfoKV(ctx, "Reusing latest release", "name", latest.GetName(), "id", latest.GetID())

			return toRecord(latest), nil
		}

		logger.InfoKV(ctx, "Latest release has another name, creating a new one",
			"latest", latest.GetName(),
			"version", version)
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		logger.Info(ctx, "No release found, creating a new one")
	case resp == nil && ctx.Err() == nil:
		logger.WarnKV(ctx, "Latest release lookup failed, creating a new one", "error", err)
	default:
		return nil, release.Wrap(release.KindRemoteAPI, "get latest release", err)
	}

	return p.createRelease(ctx, version, notes, commitish)
}

func (p *Publisher) createRelease(ctx context.Context, version, notes, commitish string) (*release.Record, error) {
	//nolint:exhaustruct // Only the fields of a new release are sent.
	request := &github.RepositoryRelease{
		TagName:    github.String(version),
		Name:       github.String(version),
		Body:       github.String(notes),
		Draft:      github.Bool(false),
		Prerelease: github.Bool(false),
	}

	if commitish != "" {
		request.TargetCommitish = github.String(commitish)
	}

	created, _, err := p.client.Repositories.CreateRelease(ctx, p.owner, p.repo, request)
	if err != nil {
		return nil, release.Wrap(release.KindRemoteAPI, "create release", err)
	}

	logger.InfoKV(ctx, "Release created", "name", created.GetName(), "id", created.GetID())

	return toRecord(created), nil
}

// UploadAsset streams the file at path to the release and returns the asset API URL.
func (p *Publisher) UploadAsset(ctx context.Context, rec *release.Record, path string) (string, error) {
	name := filepath.Base(path)

	if p.policy == config.AssetConflictReplace {
		if err := p.deleteAsset(ctx, rec.ID, name); err != nil {
			return "", err
		}
	}

	uploadURL, err := expandUploadURL(rec.UploadURL, name)
	if err != nil {
		return "", release.Wrap(release.KindRemoteAPI, "upload asset", err)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", release.Wrap(release.KindArtifactNotFound, "upload asset", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", release.Wrap(release.KindArtifactNotFound, "upload asset", err)
	}

	body := progress.Reader(ctx, file, info.Size(), "Uploading "+name)

	req, err := p.client.NewUploadRequest(uploadURL, body, info.Size(), assetMediaType)
	if err != nil {
		return "", release.Wrap(release.KindRemoteAPI, "upload asset", err)
	}

	logger.InfoKV(ctx, "Uploading asset", "name", name, "size", info.Size())

	asset := new(github.ReleaseAsset)

	resp, err := p.client.Do(ctx, req, asset)
	if err != nil {
		status := "no response"
		if resp != nil {
			status = resp.Status
		}

		err = release.Wrap(release.KindRemoteAPI, "upload asset",
			fmt.Errorf("%w: %s: %s: %w", ErrUploadRejected, name, status, err))

		return "", release.WithHint(err,
			"an asset with this name probably exists on the release already; bump the version and retry")
	}

	logger.InfoKV(ctx, "Asset uploaded", "url", asset.GetURL())

	return asset.GetURL(), nil
}

// deleteAsset removes the asset called name from the release, if present.
func (p *Publisher) deleteAsset(ctx context.Context, releaseID int64, name string) error {
	opts := &github.ListOptions{PerPage: assetsPerPage}

	for {
		assets, resp, err := p.client.Repositories.ListReleaseAssets(ctx, p.owner, p.repo, releaseID, opts)
		if err != nil {
			return release.Wrap(release.KindRemoteAPI, "list release assets", err)
		}

		for _, asset := range assets {
			if asset.GetName() != name {
				continue
			}

			if _, err = p.client.Repositories.DeleteReleaseAsset(ctx, p.owner, p.repo, asset.GetID()); err != nil {
				return release.Wrap(release.KindRemoteAPI, "delete release asset", err)
			}

			logger.InfoKV(ctx, "Deleted existing asset", "name", name, "id", asset.GetID())

			return nil
		}

		if resp == nil || resp.NextPage == 0 {
			return nil
		}

		opts.Page = resp.NextPage
	}
}

// expandUploadURL replaces the hypermedia suffix ("{?name,label}") with ?name=<name>.
func expandUploadURL(template, name string) (string, error) {
	base, _, _ := strings.Cut(template, "{")

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}

	query := u.Query()
	query.Set("name", name)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func toRecord(r *github.RepositoryRelease) *release.Record {
	return &release.Record{
		ID:        r.GetID(),
		Name:      r.GetName(),
		TagName:   r.GetTagName(),
		UploadURL: r.GetUploadURL(),
	}
}

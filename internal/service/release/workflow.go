package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/javelin/internal/artifact"
	"github.com/oshokin/javelin/internal/build"
	"github.com/oshokin/javelin/internal/config"
	domain "github.com/oshokin/javelin/internal/domain/release"
	"github.com/oshokin/javelin/internal/logger"
	"github.com/oshokin/javelin/internal/prompt"
	"github.com/oshokin/javelin/internal/remote"
)

type step struct {
	stage Stage
	run   func(ctx context.Context) error
}

// Run executes the stages in order and stops at the first failure.
func (r *runner) Run(ctx context.Context) error {
	steps := []step{
		{stage: StageInit, run: r.init},
		{stage: StageVersionBump, run: r.bumpVersion},
		{stage: StageBuild, run: r.build},
		{stage: StageLocateArtifact, run: r.locateArtifact},
		{stage: StageRenameArtifact, run: r.renameArtifact},
		{stage: StageReadSignature, run: r.readSignature},
		{stage: StageEnsureRelease, run: r.ensureRelease},
		{stage: StageUploadAsset, run: r.uploadAsset},
		{stage: StageUpdateOrCreateManifest, run: r.publishManifest},
	}

	for _, s := range steps {
		r.stage = s.stage

		if err := ctx.Err(); err != nil {
			return r.fail(ctx, domain.Wrap(domain.KindAborted, "run "+s.stage.String(), err))
		}

		logger.DebugKV(ctx, "Stage started", "stage", s.stage)

		if err := s.run(ctx); err != nil {
			return r.fail(ctx, err)
		}
	}

	r.stage = StageDone

	logger.InfoKV(ctx, "Release completed",
		"version", r.next,
		"platform", r.platform,
		"asset", r.assetURL,
		"gist", r.gistID)

	return nil
}

// fail is the single failure path of a run: it classifies and logs err, restores
// the previous version when it had been bumped and returns the classified error.
func (r *runner) fail(ctx context.Context, err error) error {
	err = classify(r.stage, err)
	kind := domain.KindOf(err)

	fields := []any{
		"stage", r.stage,
		"kind", kind,
		"error", err,
	}

	if source := domain.Source(err); source != "" {
		fields = append(fields, "origin", source)
	}

	logger.ErrorKV(ctx, "Release failed", fields...)

	if hints := domain.Hints(err); hints != "" {
		logger.Warn(ctx, hints)
	}

	if kind == domain.KindPartialRemoteState {
		logger.ErrorKV(ctx, "Remote resources were created but not recorded locally, manual cleanup required",
			"gist", r.gistID,
			"release", recordName(r.record),
			"config", r.cfgPath)
	}

	if r.bumped && (kind.RequiresRollback() || r.stage > StageVersionBump) && r.previous != r.next {
		logger.InfoKV(ctx, "Rolling back version", "from", r.next, "to", r.previous)
		r.versions.Rollback(ctx, r.previous)
	}

	return err
}

// classify gives unclassified errors the default kind of the stage they came from.
func classify(stage Stage, err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindAborted, stage.String(), err)
	}

	return domain.Wrap(stage.defaultKind(), stage.String(), err)
}

func (r *runner) bumpVersion(ctx context.Context) error {
	next, err := domain.Bump(r.previous, r.bump)
	if err != nil {
		return err
	}

	if err = r.versions.Persist(ctx, next); err != nil {
		return err
	}

	r.next = next
	r.bumped = true

	logger.InfoKV(ctx, "Version bumped", "kind", r.bump, "from", r.previous, "to", next)

	return nil
}

func (r *runner) build(ctx context.Context) error {
	env, err := build.SigningEnv(r.cfg.SecretKeyLocation, r.cfg.SecretKeyPassword,
		r.profile.Build.PrivateKeyEnv, r.profile.Build.PasswordEnv)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Signing key loaded",
		"env", r.profile.Build.PrivateKeyEnv,
		"key", prompt.Mask(strings.TrimPrefix(env[0], r.profile.Build.PrivateKeyEnv+"=")))

	return r.builder.Run(ctx, build.Request{
		Dir:     r.profile.ProductDir,
		Command: r.profile.Build.Command,
		Env:     env,
	})
}

func (r *runner) locateArtifact(ctx context.Context) error {
	paths, err := r.locator.Locate(r.platform, r.product, r.next)
	if err != nil {
		return err
	}

	if err = artifact.Verify(paths); err != nil {
		return err
	}

	r.paths = paths

	logger.InfoKV(ctx, "Bundle found", "path", paths.Build)

	return nil
}

func (r *runner) renameArtifact(ctx context.Context) error {
	if err := artifact.Rename(r.paths); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Bundle renamed", "path", r.paths.Upload)

	return nil
}

func (r *runner) readSignature(ctx context.Context) error {
	signature, err := artifact.ReadSignature(r.paths)
	if err != nil {
		return err
	}

	r.signature = signature

	logger.DebugKV(ctx, "Signature read", "path", r.paths.Signature, "bytes", len(signature))

	return nil
}

func (r *runner) ensureRelease(ctx context.Context) error {
	rec, err := r.publisher.EnsureRelease(ctx, r.next, r.notes, r.commitish)
	if err != nil {
		return err
	}

	r.record = rec

	return nil
}

func (r *runner) uploadAsset(ctx context.Context) error {
	assetURL, err := r.publisher.UploadAsset(ctx, r.record, r.paths.Upload)
	if err != nil {
		return err
	}

	r.assetURL = assetURL

	return nil
}

// publishManifest creates the platform's manifest gist on first release and
// merges into it afterwards.
func (r *runner) publishManifest(ctx context.Context) error {
	update := domain.ManifestUpdate{
		Version:  r.next,
		Notes:    r.notes,
		PubDate:  domain.PublishDate(r.now()),
		Platform: r.platform,
		Detail: domain.PlatformDetail{
			Signature: r.signature,
			URL:       r.assetURL,
		},
	}

	if id := strings.TrimSpace(r.cfg.GistID); id != "" {
		r.gistID = id

		return r.manifests.FetchAndUpdate(ctx, id, update)
	}

	id, err := r.manifests.Create(ctx, domain.NewManifest(update), r.platform)
	if id == "" {
		return err
	}

	r.gistID = id
	r.cfg.GistID = id

	if saveErr := config.Save(r.cfgPath, r.cfg); saveErr != nil {
		return domain.Wrap(domain.KindPartialRemoteState, "save gist id",
			fmt.Errorf("gist %s (%s) was created but not saved to %s: %w",
				id, remote.RawURL(r.profile.Manifest.RawURLTemplate, r.cfg.GitHubUsername, id), r.cfgPath, saveErr))
	}

	logger.InfoKV(ctx, "Gist id saved", "gist", id, "config", r.cfgPath)

	return err
}

func recordName(rec *domain.Record) string {
	if rec == nil {
		return ""
	}

	return rec.Name
}

package release

import (
	"fmt"

	domain "github.com/oshokin/javelin/internal/domain/release"
)

// Stage is a step of the release workflow.
type Stage int

// Stages in execution order.
const (
	StageInit Stage = iota
	StageVersionBump
	StageBuild
	StageLocateArtifact
	StageRenameArtifact
	StageReadSignature
	StageEnsureRelease
	StageUploadAsset
	StageUpdateOrCreateManifest
	StageDone
)

var stageNames = map[Stage]string{ //nolint:gochecknoglobals // Static lookup table.
	StageInit:                   "Init",
	StageVersionBump:            "VersionBump",
	StageBuild:                  "Build",
	StageLocateArtifact:         "LocateArtifact",
	StageRenameArtifact:         "RenameArtifact",
	StageReadSignature:          "ReadSignature",
	StageEnsureRelease:          "EnsureRelease",
	StageUploadAsset:            "UploadAsset",
	StageUpdateOrCreateManifest: "UpdateOrCreateManifest",
	StageDone:                   "Done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}

	return fmt.Sprintf("Stage(%d)", int(s))
}

// defaultKind classifies errors a stage returns without a kind of their own.
func (s Stage) defaultKind() domain.Kind {
	switch s {
	case StageInit, StageVersionBump:
		return domain.KindConfig
	case StageBuild:
		return domain.KindBuild
	case StageLocateArtifact, StageRenameArtifact, StageReadSignature:
		return domain.KindArtifactNotFound
	case StageEnsureRelease, StageUploadAsset, StageUpdateOrCreateManifest:
		return domain.KindRemoteAPI
	default:
		return domain.KindUnknown
	}
}

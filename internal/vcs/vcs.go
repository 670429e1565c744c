// Package vcs inspects the git checkout the release is built from.
package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Revision is the state of the checkout.
type Revision struct {
	// Commit is the HEAD commit hash, empty before the first commit.
	Commit string
	// Clean reports a worktree without uncommitted changes.
	Clean bool
}

// Head inspects the repository containing dir, searching parent directories.
// Outside a repository it returns nil and no error.
func Head(dir string) (*Revision, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, nil //nolint:nilnil // Not being in a repository is not an error.
		}

		return nil, fmt.Errorf("open repository: %w", err)
	}

	rev := new(Revision)

	ref, err := repo.Head()
	switch {
	case err == nil:
		rev.Commit = ref.Hash().String()
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	default:
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			rev.Clean = true

			return rev, nil
		}

		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	rev.Clean = status.IsClean()

	return rev, nil
}

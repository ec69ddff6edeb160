// Package gitinfo stamps an index with the revision of the repository it was
// built from.
package gitinfo

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	ErrNotGitRepo = errors.New("not a git repository")
	ErrNoHead     = errors.New("repository has no HEAD reference")
)

// Info is the checked-out state of a repository.
type Info struct {
	Commit string
	Branch string // empty for a detached HEAD
}

// Revision returns "branch@commit", or the commit alone when HEAD is
// detached.
func (i Info) Revision() string {
	if i.Branch == "" {
		return i.Commit
	}
	return i.Branch + "@" + i.Commit
}

// Read opens the repository containing root, searching parent directories.
func Read(root string) (Info, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return Info{}, ErrNotGitRepo
		}
		return Info{}, fmt.Errorf("failed to open repository at %s: %w", root, err)
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Info{}, ErrNoHead
		}
		return Info{}, fmt.Errorf("failed to read HEAD: %w", err)
	}

	info := Info{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = strings.TrimPrefix(ref.Name().String(), "refs/heads/")
	}
	return info, nil
}

// Revision is Read reduced to the revision string; it is empty outside a
// repository or before the first commit.
func Revision(root string) string {
	info, err := Read(root)
	if err != nil {
		return ""
	}
	return info.Revision()
}

// Root returns the work tree root and git directory of the repository
// containing path.
func Root(path string) (workTree, gitDir string, err error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", "", ErrNotGitRepo
		}
		return "", "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", "", fmt.Errorf("failed to open work tree: %w", err)
	}
	workTree = wt.Filesystem.Root()
	return workTree, filepath.Join(workTree, gogit.GitDirName), nil
}

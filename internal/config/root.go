package config

import (
	"errors"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// DetectProjectRoot returns the root of the git worktree containing start.
// Outside a repository (or in a bare one) start itself is the root.
func DetectProjectRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return abs, nil
	}
	if err != nil {
		return "", err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return abs, nil
	}
	return wt.Filesystem.Root(), nil
}

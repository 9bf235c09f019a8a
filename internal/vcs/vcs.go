// Package vcs keeps the vendored submodules in sync and derives the
// distribution MANIFEST from the repository index.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"golang.org/x/sync/errgroup"

	"github.com/postmk-build/postmk/internal/msg"
)

// ManifestFilename is where WriteManifest puts the tracked-file list.
const ManifestFilename = "MANIFEST"

// syncJobs bounds concurrent submodule transfers.
const syncJobs = 4

// Submodule is one pinned external repository.
type Submodule struct {
	Name   string
	URL    string
	Path   string // checkout path relative to the project root
	Branch string
}

// Sync clones or updates every submodule, a few at a time. Checkouts
// are shallow and pinned to the declared branch. The first failure
// cancels nothing already running but fails the whole sync.
func Sync(basedir string, mods []Submodule) error {
	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(syncJobs)

	for _, mod := range mods {
		eg.Go(func() error {
			if err := syncOne(basedir, mod); err != nil {
				return fmt.Errorf("submodule %q: %w", mod.Name, err)
			}
			return nil
		})
	}

	return eg.Wait()
}

func syncOne(basedir string, mod Submodule) error {
	dest := filepath.Join(basedir, filepath.FromSlash(mod.Path))
	progress := &msg.IndentWriter{Indent: "    ", W: os.Stderr}

	branch := mod.Branch
	if branch == "" {
		branch = "master"
	}
	ref := plumbing.NewBranchReferenceName(branch)

	if _, err := os.Stat(filepath.Join(dest, ".git")); os.IsNotExist(err) {
		msg.Info("fetching %s", mod.Name)
		_, err := git.PlainClone(dest, &git.CloneOptions{
			URL:           mod.URL,
			ReferenceName: ref,
			SingleBranch:  true,
			Depth:         1,
			Progress:      progress,
		})
		return err
	}

	repo, err := git.PlainOpen(dest)
	if err != nil {
		return err
	}
	w, err := repo.Worktree()
	if err != nil {
		return err
	}
	msg.Info("updating %s", mod.Name)
	err = w.Pull(&git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         1,
		Progress:      progress,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// FileList returns every path in the repository index, sorted. This is
// the tracked-file set, staged changes included, which is exactly what
// a source distribution should ship.
func FileList(repoPath string) ([]string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, err
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		files = append(files, entry.Name)
	}
	slices.Sort(files)
	return files, nil
}

// WriteManifest renders the tracked-file list into MANIFEST at the
// repository root, one path per line, newline-terminated.
func WriteManifest(repoPath string) (int, error) {
	files, err := FileList(repoPath)
	if err != nil {
		return 0, err
	}

	var buf []byte
	for _, f := range files {
		buf = append(buf, f...)
		buf = append(buf, '\n')
	}

	out := filepath.Join(repoPath, ManifestFilename)
	if err := os.WriteFile(out, buf, 0o644); err != nil {
		return 0, err
	}
	return len(files), nil
}

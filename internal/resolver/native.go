// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

const (
	// Same as git's default --abbrev
	abbrevLength = 7
	// Same as git's default --candidates
	maxCandidates = 10
)

// NativeDescriber produces "git describe --tags --always --dirty" output in-process,
// without needing a git binary
type NativeDescriber struct{}

func NewNativeDescriber() *NativeDescriber {
	return &NativeDescriber{}
}

type tagCandidate struct {
	name      string
	annotated bool
}

func (n *NativeDescriber) Describe(ctx context.Context, dir string) ([]byte, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := git.PlainOpenWithOptions(
		dir,
		&git.PlainOpenOptions{DetectDotGit: true},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	tags, err := tagsByCommit(repo)
	if err != nil {
		return nil, err
	}
	tagName, depth, err := nearestTag(ctx, repo, head.Hash(), tags)
	if err != nil {
		return nil, err
	}
	abbrev := abbreviate(head.Hash())
	var ret string
	switch {
	case tagName == "":
		ret = abbrev
	case depth == 0:
		ret = tagName
	default:
		ret = fmt.Sprintf("%s-%d-g%s", tagName, depth, abbrev)
	}
	dirty, err := isDirty(repo)
	if err != nil {
		return nil, err
	}
	if dirty {
		ret += "-dirty"
	}
	return []byte(ret), nil
}

// tagsByCommit maps commit hashes to the best tag pointing at them. Annotated tags
// win over lightweight ones, then the greater name wins.
func tagsByCommit(repo *git.Repository) (map[string]tagCandidate, error) {
	ret := map[string]tagCandidate{}
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer iter.Close()
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		commitHash := ref.Hash()
		candidate := tagCandidate{name: ref.Name().Short()}
		tagObj, err := repo.TagObject(ref.Hash())
		switch {
		case err == nil:
			commit, err := tagObj.Commit()
			if err != nil {
				// Tags of trees or blobs can't describe a commit
				return nil
			}
			commitHash = commit.Hash
			candidate.annotated = true
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// Lightweight tag
		default:
			return fmt.Errorf("failed to read tag %s: %w", candidate.name, err)
		}
		key := commitHash.String()
		if existing, ok := ret[key]; ok && !betterTag(candidate, existing) {
			return nil
		}
		ret[key] = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func betterTag(a, b tagCandidate) bool {
	if a.annotated != b.annotated {
		return a.annotated
	}
	return a.name > b.name
}

// nearestTag finds the tag with the fewest commits between it and from. The
// depth is the number of commits reachable from from but not from the tag.
func nearestTag(
	ctx context.Context,
	repo *git.Repository,
	from plumbing.Hash,
	tags map[string]tagCandidate,
) (string, int, error) {
	if len(tags) == 0 {
		return "", 0, nil
	}
	// Tagged commits in breadth-first order from HEAD
	var candidates []plumbing.Hash
	total, err := walkAncestors(ctx, repo, from, func(c *object.Commit) {
		if _, ok := tags[c.Hash.String()]; ok && len(candidates) < maxCandidates {
			candidates = append(candidates, c.Hash)
		}
	})
	if err != nil {
		return "", 0, err
	}
	if len(candidates) == 0 {
		return "", 0, nil
	}
	bestName := ""
	bestDepth := -1
	for _, candidate := range candidates {
		count, err := walkAncestors(ctx, repo, candidate, nil)
		if err != nil {
			return "", 0, err
		}
		depth := total - count
		if bestDepth < 0 || depth < bestDepth {
			bestDepth = depth
			bestName = tags[candidate.String()].name
		}
	}
	return bestName, bestDepth, nil
}

// walkAncestors visits from and all of its ancestors breadth-first and returns how
// many commits it visited
func walkAncestors(
	ctx context.Context,
	repo *git.Repository,
	from plumbing.Hash,
	visit func(*object.Commit),
) (int, error) {
	seen := map[string]bool{from.String(): true}
	queue := []plumbing.Hash{from}
	count := 0
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		hash := queue[0]
		queue = queue[1:]
		commit, err := repo.CommitObject(hash)
		if err != nil {
			return 0, fmt.Errorf("failed to read commit %s: %w", hash, err)
		}
		count++
		if visit != nil {
			visit(commit)
		}
		for _, parent := range commit.ParentHashes {
			key := parent.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			queue = append(queue, parent)
		}
	}
	return count, nil
}

// isDirty reports whether tracked files differ from HEAD. Untracked files don't
// count, matching git describe --dirty.
func isDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read worktree status: %w", err)
	}
	for _, fileStatus := range status {
		if fileStatus.Staging == git.Untracked &&
			fileStatus.Worktree == git.Untracked {
			continue
		}
		if fileStatus.Staging != git.Unmodified ||
			fileStatus.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

func abbreviate(hash plumbing.Hash) string {
	ret := hash.String()
	if len(ret) > abbrevLength {
		ret = ret[:abbrevLength]
	}
	return ret
}

package git

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoHistory is returned when a file has never been committed.
var ErrNoHistory = errors.New("no commits touch file")

// CommitInfo describes a single commit.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"short_hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	When      time.Time `json:"date"`
	// Branch is the checked-out branch, or "detached".
	Branch string `json:"branch"`
}

// Opener abstracts the method of opening a git repository
// This allows for dependency injection in tests
type Opener interface {
	// Open opens the git repository containing path
	Open(path string) (Repository, error)
}

// Repository abstracts go-git repository operations for testing
type Repository interface {
	// Head returns the reference where HEAD is pointing to
	Head() (*plumbing.Reference, error)
	// CommitObject returns the commit with the given hash
	CommitObject(h plumbing.Hash) (*object.Commit, error)
	// Log returns the commit history matching the options
	Log(o *git.LogOptions) (object.CommitIter, error)
}

// DefaultOpener implements Opener using go-git's PlainOpenWithOptions,
// searching parent directories for the .git directory.
type DefaultOpener struct{}

// Open opens the repository containing path using go-git
func (d *DefaultOpener) Open(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return repo, nil
}

// InMemoryOpener implements Opener for testing with a prepared repository
type InMemoryOpener struct {
	repo *git.Repository
}

// NewInMemoryOpener creates an Opener that returns repo for every path
func NewInMemoryOpener(repo *git.Repository) *InMemoryOpener {
	return &InMemoryOpener{repo: repo}
}

// Open returns the pre-configured in-memory repository
func (i *InMemoryOpener) Open(_ string) (Repository, error) {
	if i.repo == nil {
		return nil, fmt.Errorf("no repository configured")
	}
	return i.repo, nil
}

// IsRepository reports whether path is inside a git repository.
func IsRepository(opener Opener, path string) bool {
	_, err := opener.Open(path)
	return err == nil
}

// LastCommit returns the most recent commit in the repository containing
// repoPath. When file is non-empty (slash-separated, relative to the
// repository root) it returns the most recent commit touching that file.
func LastCommit(opener Opener, repoPath, file string) (*CommitInfo, error) {
	repo, err := opener.Open(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening git repository at %s: %w", repoPath, err)
	}
	return lastCommitFromRepo(repo, file)
}

func lastCommitFromRepo(repo Repository, file string) (*CommitInfo, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD reference: %w", err)
	}

	var commit *object.Commit
	if file == "" {
		commit, err = repo.CommitObject(head.Hash())
		if err != nil {
			return nil, fmt.Errorf("reading commit %s: %w", head.Hash(), err)
		}
	} else {
		commit, err = lastCommitTouching(repo, head.Hash(), file)
		if err != nil {
			return nil, err
		}
	}

	hash := commit.Hash.String()
	info := &CommitInfo{
		Hash:      hash,
		ShortHash: hash[:7],
		Author:    commit.Author.Name,
		Email:     commit.Author.Email,
		Message:   firstLine(commit.Message),
		When:      commit.Author.When,
		Branch:    "detached",
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}

func lastCommitTouching(repo Repository, from plumbing.Hash, file string) (*object.Commit, error) {
	iter, err := repo.Log(&git.LogOptions{From: from, FileName: &file})
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", file, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, file)
	}
	if err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", file, err)
	}
	return commit, nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

package git

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wchoi189/agentqms/internal/testutil"
)

// createInMemoryRepoWithCommit creates an in-memory repository with one commit
func createInMemoryRepoWithCommit(t *testing.T, message string) (*git.Repository, plumbing.Hash) {
	t.Helper()

	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	f, err := fs.Create("doc.md")
	require.NoError(t, err)
	_, err = f.Write([]byte("---\ntitle: X\n---\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("doc.md")
	require.NoError(t, err)

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@test.com",
			When:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	return repo, hash
}

func TestLastCommit_InMemory(t *testing.T) {
	t.Parallel()

	repo, hash := createInMemoryRepoWithCommit(t, "AgentQMS Auto-Fix: Added missing date\n\nbody")

	info, err := LastCommit(NewInMemoryOpener(repo), "ignored", "")
	require.NoError(t, err)

	assert.Equal(t, hash.String(), info.Hash)
	assert.Equal(t, hash.String()[:7], info.ShortHash)
	assert.Equal(t, "Test", info.Author)
	assert.Equal(t, "test@test.com", info.Email)
	assert.Equal(t, "AgentQMS Auto-Fix: Added missing date", info.Message)
	assert.Equal(t, "master", info.Branch)
	assert.True(t, info.When.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	byFile, err := LastCommit(NewInMemoryOpener(repo), "ignored", "doc.md")
	require.NoError(t, err)
	assert.Equal(t, info.Hash, byFile.Hash)
}

func TestLastCommit_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opener Opener
		path   string
	}{
		"no repository configured": {
			opener: NewInMemoryOpener(nil),
		},
		"not a repository": {
			opener: &DefaultOpener{},
			path:   t.TempDir(),
		},
		"repository without commits": {
			opener: func() Opener {
				repo, err := git.Init(memory.NewStorage(), memfs.New())
				require.NoError(t, err)
				return NewInMemoryOpener(repo)
			}(),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := LastCommit(tc.opener, tc.path, "")
			assert.Error(t, err)
		})
	}
}

func TestLastCommit_DefaultOpener(t *testing.T) {
	t.Parallel()

	repo := testutil.NewGitRepo(t)
	sub := repo.AddFile("docs/artifacts/plan.md", "# plan\n")
	repo.CommitAll("Add plan")

	repo.AddFile("notes.md", "later\n")
	repo.CommitAll("Add notes")

	info, err := LastCommit(&DefaultOpener{}, sub, "")
	require.NoError(t, err)
	assert.Equal(t, "Add notes", info.Message)

	info, err = LastCommit(&DefaultOpener{}, repo.Dir(), "docs/artifacts/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "Add plan", info.Message)

	_, err = LastCommit(&DefaultOpener{}, repo.Dir(), "docs/never.md")
	assert.ErrorIs(t, err, ErrNoHistory)

	assert.NotEqual(t, "detached", info.Branch)
	assert.True(t, IsRepository(&DefaultOpener{}, repo.Dir()))
	assert.False(t, IsRepository(&DefaultOpener{}, t.TempDir()))
}

package webhook

import (
	"testing"

	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParsePushEvent(t *testing.T) {
	t.Run("applies defaults for missing optional fields", func(t *testing.T) {
		body := []byte(`{"after":"abcdef1234567","repository":{"id":42,"full_name":"acme/widgets"},"head_commit":{"id":"abcdef1234567"},"extra":{"ignored":true}}`)

		event, err := ParsePushEvent(body)
		require.NoError(t, err)

		assert.Equal(t, models.UnknownPusher, event.Pusher.Name)
		assert.Equal(t, models.DefaultCommitURL, event.GetCommitURL())
		assert.Equal(t, int64(42), event.Repository.ID)
		assert.Empty(t, event.Commits)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		body := []byte(`{"ref":"refs/heads/main","pusher":{"name":"octocat"},"head_commit":{"url":"https://github.com/acme/widgets/commit/abc"}}`)

		event, err := ParsePushEvent(body)
		require.NoError(t, err)

		assert.Equal(t, "octocat", event.GetPusherName())
		assert.Equal(t, "main", event.GetBranch())
		assert.Equal(t, "https://github.com/acme/widgets/commit/abc", event.GetCommitURL())
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		_, err := ParsePushEvent([]byte(`{"commits":`))
		assert.Error(t, err)
	})

	t.Run("rejects mistyped fields", func(t *testing.T) {
		_, err := ParsePushEvent([]byte(`{"commits":"nope"}`))
		assert.Error(t, err)
	})
}

func TestExtractChangeSet(t *testing.T) {
	event := &models.PushEvent{
		After: "abcdef1234567890",
		Repository: models.GitHubRepository{
			FullName: "acme/widgets",
		},
		Commits: []models.GitHubCommit{
			{Added: []string{"a"}},
			{Modified: []string{"a", "b"}, Removed: []string{"c"}},
		},
	}

	changes := ExtractChangeSet(event)

	assert.Equal(t, "acme", changes.Owner)
	assert.Equal(t, "widgets", changes.Repo)
	assert.Equal(t, "abcdef1", changes.ShortID)
	assert.Equal(t, "abcdef1234567890", changes.FullSHA)
	assert.Equal(t, []string{"a", "b"}, changes.Files.Paths())
	assert.False(t, changes.Files.Contains("c"))
}

func TestExtractChangeSetEmpty(t *testing.T) {
	tests := []struct {
		name    string
		commits []models.GitHubCommit
	}{
		{name: "no commits"},
		{name: "delete only", commits: []models.GitHubCommit{{Removed: []string{"old.go"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := ExtractChangeSet(&models.PushEvent{Commits: tt.commits})
			assert.Zero(t, changes.Files.Len())
			assert.Empty(t, changes.Files.Paths())
		})
	}
}

func TestExtractChangeSetOrderIndependent(t *testing.T) {
	pathGen := rapid.SampledFrom([]string{"a", "b", "c", "dir/d.go", "dir/e.go"})
	commitGen := rapid.Custom(func(t *rapid.T) models.GitHubCommit {
		return models.GitHubCommit{
			Added:    rapid.SliceOfN(pathGen, 0, 4).Draw(t, "added"),
			Modified: rapid.SliceOfN(pathGen, 0, 4).Draw(t, "modified"),
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		commits := rapid.SliceOfN(commitGen, 0, 6).Draw(t, "commits")
		perm := rapid.Permutation(commits).Draw(t, "perm")

		first := ExtractChangeSet(&models.PushEvent{Commits: commits})
		second := ExtractChangeSet(&models.PushEvent{Commits: perm})
		again := ExtractChangeSet(&models.PushEvent{Commits: commits})

		assert.Equal(t, first.Files.Paths(), second.Files.Paths())
		assert.Equal(t, first.Files.Paths(), again.Files.Paths())
	})
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		fullName string
		owner    string
		repo     string
	}{
		{"acme/widgets", "acme", "widgets"},
		{"acme/widgets/extra", "acme", "widgets/extra"},
		{"widgets", "", "widgets"},
		{"", "", ""},
	}

	for _, tt := range tests {
		owner, repo := SplitFullName(tt.fullName)
		assert.Equal(t, tt.owner, owner, tt.fullName)
		assert.Equal(t, tt.repo, repo, tt.fullName)
	}
}

func TestNormalizeEvent(t *testing.T) {
	assert.True(t, IsPushEvent("push"))
	assert.True(t, IsPushEvent(" Push "))
	assert.False(t, IsPushEvent("ping"))
	assert.False(t, IsPushEvent(""))
}

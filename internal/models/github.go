package models

import "strings"

// Defaults applied to optional push event fields that GitHub may omit
const (
	UnknownPusher    = "unknown"
	DefaultCommitURL = "#"
)

// PushEvent represents the GitHub push webhook payload. Only the fields the
// relay reads are declared; everything else in the body is ignored.
type PushEvent struct {
	Ref        string           `json:"ref"`
	Before     string           `json:"before"`
	After      string           `json:"after"`
	Compare    string           `json:"compare"`
	Commits    []GitHubCommit   `json:"commits"`
	HeadCommit *GitHubCommit    `json:"head_commit"`
	Repository GitHubRepository `json:"repository"`
	Pusher     GitHubPusher     `json:"pusher"`
	Deleted    bool             `json:"deleted"`
	Forced     bool             `json:"forced"`
}

// GitHubCommit represents a commit in the GitHub webhook
type GitHubCommit struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	URL       string           `json:"url"`
	Author    GitHubCommitUser `json:"author"`
	Committer GitHubCommitUser `json:"committer"`
	Added     []string         `json:"added"`
	Removed   []string         `json:"removed"`
	Modified  []string         `json:"modified"`
}

// GitHubCommitUser represents a user in a commit
type GitHubCommitUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// GitHubRepository represents a repository in the GitHub webhook
type GitHubRepository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// GitHubPusher represents the pusher in the GitHub webhook
type GitHubPusher struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ApplyDefaults fills optional fields that were missing from the payload
func (p *PushEvent) ApplyDefaults() {
	if p.Pusher.Name == "" {
		p.Pusher.Name = UnknownPusher
	}
	if p.HeadCommit != nil && p.HeadCommit.URL == "" {
		p.HeadCommit.URL = DefaultCommitURL
	}
}

// GetPusherName returns the pusher's name
func (p *PushEvent) GetPusherName() string {
	if p.Pusher.Name == "" {
		return UnknownPusher
	}
	return p.Pusher.Name
}

// GetBranch returns the branch name without refs/heads/ prefix
func (p *PushEvent) GetBranch() string {
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}

// GetCommitURL returns the head commit URL, or "#" when there is none
func (p *PushEvent) GetCommitURL() string {
	if p.HeadCommit == nil || p.HeadCommit.URL == "" {
		return DefaultCommitURL
	}
	return p.HeadCommit.URL
}

// GetCommitCount returns the number of commits
func (p *PushEvent) GetCommitCount() int {
	return len(p.Commits)
}

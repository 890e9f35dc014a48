package models

import (
	"fmt"
	"sort"
)

// Review result status tags
const (
	StatusIgnored      = "ignored"
	StatusReviewQueued = "review_queued"
)

// ShortIDLength is the length of an abbreviated commit id
const ShortIDLength = 7

// ChangeSet is a set of file paths added or modified by a push
type ChangeSet map[string]struct{}

// NewChangeSet creates a change set holding the given paths
func NewChangeSet(paths ...string) ChangeSet {
	set := make(ChangeSet, len(paths))
	set.Add(paths...)
	return set
}

// Add inserts paths into the set
func (s ChangeSet) Add(paths ...string) {
	for _, path := range paths {
		s[path] = struct{}{}
	}
}

// Contains reports whether path is in the set
func (s ChangeSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths
func (s ChangeSet) Len() int {
	return len(s)
}

// Paths returns the members in sorted order
func (s ChangeSet) Paths() []string {
	paths := make([]string, 0, len(s))
	for path := range s {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// FileContentBlock holds one fetched file, or the reason it could not be fetched
type FileContentBlock struct {
	Path    string
	Content string
	Err     string
}

// NewFileBlock creates a block carrying file content
func NewFileBlock(path, content string) FileContentBlock {
	return FileContentBlock{Path: path, Content: content}
}

// NewErrorBlock creates a block carrying an error marker
func NewErrorBlock(path, reason string) FileContentBlock {
	return FileContentBlock{Path: path, Err: reason}
}

// Failed reports whether the block holds an error marker
func (b FileContentBlock) Failed() bool {
	return b.Err != ""
}

// String renders the block inside the file envelope
func (b FileContentBlock) String() string {
	body := b.Content
	if b.Failed() {
		body = fmt.Sprintf("<ERROR: %s>", b.Err)
	}
	return fmt.Sprintf("--- FILE: %s ---\n%s\n--- END FILE ---\n", b.Path, body)
}

// FetchResult is the outcome of fetching a change set
type FetchResult struct {
	Document string
	Blocks   []FileContentBlock

	// RepositoryError is set when the repository lookup failed. Document
	// then holds this diagnostic instead of file contents.
	RepositoryError string
}

// Degraded reports whether the repository lookup failed
func (r *FetchResult) Degraded() bool {
	return r != nil && r.RepositoryError != ""
}

// ReviewResult is the outcome of handling one webhook delivery
type ReviewResult struct {
	Status   string  `json:"status"`
	Repo     string  `json:"repo,omitempty"`
	Commit   string  `json:"commit,omitempty"`
	Files    *int    `json:"files,omitempty"`
	Contents *string `json:"contents,omitempty"`

	// Degraded is set when Contents holds a repository diagnostic
	// rather than file bodies.
	Degraded bool `json:"degraded,omitempty"`

	RepoID    int64  `json:"-"`
	CommitSHA string `json:"-"`
	Pusher    string `json:"-"`
	CommitURL string `json:"-"`
	Branch    string `json:"-"`
	Event     string `json:"-"`
}

// IgnoredResult creates the result for a non-push delivery
func IgnoredResult(event string) *ReviewResult {
	return &ReviewResult{Status: StatusIgnored, Event: event}
}

// FileCount returns the number of files in the result
func (r *ReviewResult) FileCount() int {
	if r.Files == nil {
		return 0
	}
	return *r.Files
}

// ContentsText returns the contents document, or "" when absent
func (r *ReviewResult) ContentsText() string {
	if r.Contents == nil {
		return ""
	}
	return *r.Contents
}

// DispatchOutcome describes what happened after ingestion
type DispatchOutcome struct {
	ChatID        int64  `json:"chat_id"`
	StartedSent   bool   `json:"started_sent"`
	Reviewed      bool   `json:"reviewed"`
	ReviewSent    bool   `json:"review_sent"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

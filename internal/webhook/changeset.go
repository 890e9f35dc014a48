package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nahidhasan98/review-relay/internal/models"
)

// EventPush is the only event type that is reviewed
const EventPush = "push"

// PushChanges is what a push event resolves to
type PushChanges struct {
	Owner   string
	Repo    string
	ShortID string
	FullSHA string
	Files   models.ChangeSet
}

// NormalizeEvent lowercases and trims an X-GitHub-Event header value
func NormalizeEvent(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

// IsPushEvent reports whether the event header names a push
func IsPushEvent(header string) bool {
	return NormalizeEvent(header) == EventPush
}

// ParsePushEvent decodes a push payload. Unknown fields are ignored and
// missing optional fields are defaulted; only invalid JSON is an error.
func ParsePushEvent(body []byte) (*models.PushEvent, error) {
	var event models.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode push event: %w", err)
	}
	event.ApplyDefaults()
	return &event, nil
}

// ExtractChangeSet resolves a push event into its repository coordinates and
// the union of added and modified paths over every commit. Removed paths are
// not part of the change set.
func ExtractChangeSet(event *models.PushEvent) PushChanges {
	files := models.NewChangeSet()
	for _, commit := range event.Commits {
		files.Add(commit.Added...)
		files.Add(commit.Modified...)
	}

	owner, repo := SplitFullName(event.Repository.FullName)

	return PushChanges{
		Owner:   owner,
		Repo:    repo,
		ShortID: ShortSHA(event.After),
		FullSHA: event.After,
		Files:   files,
	}
}

// SplitFullName splits "owner/repo" on the first slash. A name without a
// slash is returned as the repository with an empty owner.
func SplitFullName(fullName string) (owner, repo string) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found {
		return "", fullName
	}
	return owner, repo
}

// ShortSHA returns the abbreviated commit id
func ShortSHA(sha string) string {
	if len(sha) > models.ShortIDLength {
		return sha[:models.ShortIDLength]
	}
	return sha
}

package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nahidhasan98/review-relay/internal/errors"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
)

// UnknownRepository names a push whose payload carries no repository full_name
const UnknownRepository = "unknown"

// MissingRepositoryDiagnostic replaces the contents when the repository cannot be resolved
const MissingRepositoryDiagnostic = "Repository full_name missing from push event; contents not fetched"

// Fetcher resolves paths at a commit to an envelope document
type Fetcher interface {
	Fetch(ctx context.Context, owner, repo, commitSHA string, paths []string) *models.FetchResult
}

// Delivery holds the parts of an inbound webhook request the orchestrator needs
type Delivery struct {
	ID        string
	Body      []byte
	Signature string
	Event     string
}

// Orchestrator turns a webhook delivery into a review result. It only
// verifies, parses and fetches; notification and review happen in the caller.
type Orchestrator struct {
	secret  []byte
	fetcher Fetcher
	log     *logger.Logger
}

// NewOrchestrator creates an orchestrator for deliveries signed with secret
func NewOrchestrator(secret string, fetcher Fetcher, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		secret:  []byte(secret),
		fetcher: fetcher,
		log:     log,
	}
}

// Handle processes one delivery. Authentication failures and malformed
// bodies are returned as *errors.AppError; every other outcome is a result.
func (o *Orchestrator) Handle(ctx context.Context, d Delivery) (*models.ReviewResult, error) {
	log := o.log.With("delivery", d.ID)

	if !VerifySignature(d.Body, d.Signature, o.secret) {
		log.Warn("Webhook signature verification failed")
		return nil, errors.Unauthorized()
	}

	if !json.Valid(d.Body) {
		log.Warn("Webhook body is not valid JSON")
		return nil, errors.MalformedPayload(fmt.Errorf("body is not valid JSON"))
	}

	if !IsPushEvent(d.Event) {
		event := NormalizeEvent(d.Event)
		log.Infof("Ignoring %q event", event)
		return models.IgnoredResult(event), nil
	}

	push, err := ParsePushEvent(d.Body)
	if err != nil {
		log.Error("Failed to decode push event", err)
		return nil, errors.MalformedPayload(err)
	}
	changes := ExtractChangeSet(push)
	files := changes.Files.Len()

	repoName := push.Repository.FullName
	if repoName == "" {
		repoName = UnknownRepository
	}

	result := &models.ReviewResult{
		Status:    models.StatusReviewQueued,
		Repo:      repoName,
		Commit:    changes.ShortID,
		Files:     &files,
		RepoID:    push.Repository.ID,
		CommitSHA: changes.FullSHA,
		Pusher:    push.GetPusherName(),
		CommitURL: push.GetCommitURL(),
		Branch:    push.GetBranch(),
		Event:     EventPush,
	}

	log.Infof("Push to %s by %s (commit %s, %d commits, %d files)",
		result.Repo, result.Pusher, result.Commit, push.GetCommitCount(), files)

	if files == 0 {
		log.Warn("Push has no added or modified files")
		empty := ""
		result.Contents = &empty
		return result, nil
	}

	if push.Repository.FullName == "" {
		log.Warn("Push has no repository full_name, contents not fetched")
		diagnostic := MissingRepositoryDiagnostic
		result.Contents = &diagnostic
		result.Degraded = true
		return result, nil
	}

	fetched := o.fetcher.Fetch(ctx, changes.Owner, changes.Repo, changes.FullSHA, changes.Files.Paths())
	if fetched.Degraded() {
		log.Warnf("Repository lookup failed, returning diagnostic instead of contents: %s", fetched.RepositoryError)
		result.Degraded = true
	}
	result.Contents = &fetched.Document

	return result, nil
}

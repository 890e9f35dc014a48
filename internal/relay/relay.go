// Package relay delivers a queued review to the chat registered for the
// repository: it announces the review, runs the review engine and posts
// the answer.
package relay

import (
	"context"

	"github.com/nahidhasan98/review-relay/internal/format"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/nahidhasan98/review-relay/internal/notify"
	"github.com/nahidhasan98/review-relay/internal/registry"
)

// Skip reasons reported in the dispatch outcome
const (
	SkipNotQueued           = "not_queued"
	SkipNothingToReview     = "nothing_to_review"
	SkipRepoNotRegistered   = "repo_not_registered"
	SkipRegistryUnavailable = "registry_unavailable"
	SkipReviewFailed        = "review_failed"
)

// Reviewer produces a review for a contents document
type Reviewer interface {
	Review(ctx context.Context, contents string) (string, error)
}

// Relay dispatches review results
type Relay struct {
	registry registry.Registry
	notifier notify.Notifier
	reviewer Reviewer
	log      *logger.Logger
}

// New creates a relay
func New(reg registry.Registry, notifier notify.Notifier, reviewer Reviewer, log *logger.Logger) *Relay {
	return &Relay{
		registry: reg,
		notifier: notifier,
		reviewer: reviewer,
		log:      log,
	}
}

// Dispatch notifies the registered chat about result and sends the review.
// Every outcome is reported in the returned DispatchOutcome: notification
// failures are logged and do not stop the flow, while a registry miss or a
// review engine failure stops it and sets SkippedReason.
func (r *Relay) Dispatch(ctx context.Context, result *models.ReviewResult) *models.DispatchOutcome {
	if result == nil || result.Status != models.StatusReviewQueued {
		return &models.DispatchOutcome{SkippedReason: SkipNotQueued}
	}

	log := r.log.With("repo", result.Repo).With("commit", result.Commit)

	chat, err := r.registry.Get(ctx, result.RepoID)
	if err != nil {
		log.Error("Registry lookup failed, dropping review", err)
		return &models.DispatchOutcome{SkippedReason: SkipRegistryUnavailable}
	}
	if chat.IsNone() {
		log.Errorf("Repository %d is not registered, dropping review", result.RepoID)
		return &models.DispatchOutcome{SkippedReason: SkipRepoNotRegistered}
	}

	outcome := &models.DispatchOutcome{ChatID: chat.UnwrapOr(0)}
	formatter := r.notifier.Formatter()
	info := format.ReviewStartedInfo{
		Repo:      result.Repo,
		Commit:    result.Commit,
		Files:     result.FileCount(),
		Pusher:    result.Pusher,
		Branch:    result.Branch,
		CommitURL: result.CommitURL,
	}

	outcome.StartedSent = r.send(ctx, log, outcome.ChatID, formatter.ReviewStarted(info), "review-started notice")

	// An empty document would only produce a review of the placeholder
	if result.FileCount() == 0 {
		outcome.SkippedReason = SkipNothingToReview
		r.send(ctx, log, outcome.ChatID, formatter.NothingToReview(info), "nothing-to-review notice")
		return outcome
	}

	review, err := r.reviewer.Review(ctx, result.ContentsText())
	if err != nil {
		log.Error("Review engine failed", err)
		outcome.SkippedReason = SkipReviewFailed
		r.send(ctx, log, outcome.ChatID, formatter.ReviewFailed(info), "review-failed notice")
		return outcome
	}
	outcome.Reviewed = true

	outcome.ReviewSent = r.send(ctx, log, outcome.ChatID, formatter.Review(review), "review")
	return outcome
}

// send delivers text and reports whether it was sent. Failures are logged only.
func (r *Relay) send(ctx context.Context, log *logger.Logger, chatID int64, text, what string) bool {
	if err := r.notifier.Send(ctx, chatID, text); err != nil {
		log.Error("Failed to send "+what+" via "+r.notifier.Name(), err)
		return false
	}
	log.Debugf("Sent %s to chat %d", what, chatID)
	return true
}

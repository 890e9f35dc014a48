// Package format renders relay notices and review text for a chat channel.
// Each notifier owns a Formatter; the webhook pipeline never builds markup.
package format

// ReviewStartedInfo describes the push a notice is about
type ReviewStartedInfo struct {
	Repo      string
	Commit    string
	Files     int
	Pusher    string
	Branch    string
	CommitURL string
}

// Formatter renders messages in a channel's markup
type Formatter interface {
	// ReviewStarted announces that a review has been queued
	ReviewStarted(info ReviewStartedInfo) string

	// NothingToReview reports a push without added or modified files
	NothingToReview(info ReviewStartedInfo) string

	// ReviewFailed reports that the review engine could not produce a review
	ReviewFailed(info ReviewStartedInfo) string

	// Review converts the engine's markdown answer into channel markup
	Review(markdown string) string
}

// hasCommitURL reports whether the push carried a usable commit link
func (i ReviewStartedInfo) hasCommitURL() bool {
	return i.CommitURL != "" && i.CommitURL != "#"
}

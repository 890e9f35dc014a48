package relay

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nahidhasan98/review-relay/internal/format"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRegistry struct {
	chats map[int64]int64
	err   error
}

func (m *memoryRegistry) Get(_ context.Context, repoID int64) (fn.Option[int64], error) {
	if m.err != nil {
		return fn.None[int64](), m.err
	}
	if chat, ok := m.chats[repoID]; ok {
		return fn.Some(chat), nil
	}
	return fn.None[int64](), nil
}

func (m *memoryRegistry) Put(_ context.Context, repoID, chatID int64) error {
	m.chats[repoID] = chatID
	return nil
}

func (m *memoryRegistry) List(context.Context) ([]models.RepoChatMapping, error) {
	return nil, nil
}

func (m *memoryRegistry) Close() error { return nil }

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, chatID int64, text string) error {
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return n.err
}

func (n *recordingNotifier) Formatter() format.Formatter { return format.WhatsAppFormatter{} }
func (n *recordingNotifier) Name() string { return "recording" }
func (n *recordingNotifier) Connected() bool { return true }

type countingReviewer struct {
	calls    []string
	response string
	err      error
}

func (r *countingReviewer) Review(_ context.Context, contents string) (string, error) {
	r.calls = append(r.calls, contents)
	return r.response, r.err
}

func queuedResult(files int, contents string) *models.ReviewResult {
	return &models.ReviewResult{
		Status:   models.StatusReviewQueued,
		Repo:     "acme/widgets",
		Commit:   "abcdef1",
		Files:    &files,
		Contents: &contents,
		RepoID:   7,
	}
}

func newTestRelay(reviewer *countingReviewer, notifier *recordingNotifier) *Relay {
	reg := &memoryRegistry{chats: map[int64]int64{7: -100500}}
	return New(reg, notifier, reviewer, logger.Nop())
}

func TestDispatch(t *testing.T) {
	reviewer := &countingReviewer{response: "**LGTM**"}
	notifier := &recordingNotifier{}
	r := newTestRelay(reviewer, notifier)

	outcome := r.Dispatch(context.Background(), queuedResult(1, "--- FILE: x.py ---\nprint(1)\n--- END FILE ---\n"))

	assert.Equal(t, &models.DispatchOutcome{
		ChatID:      -100500,
		StartedSent: true,
		Reviewed:    true,
		ReviewSent:  true,
	}, outcome)
	assert.Equal(t, []string{"--- FILE: x.py ---\nprint(1)\n--- END FILE ---\n"}, reviewer.calls)

	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[0].text, "Code review started for acme/widgets")
	assert.Equal(t, sentMessage{chatID: -100500, text: "*LGTM*"}, notifier.sent[1])
}

func TestDispatchUnregisteredRepository(t *testing.T) {
	reviewer := &countingReviewer{}
	notifier := &recordingNotifier{}
	r := New(&memoryRegistry{chats: map[int64]int64{}}, notifier, reviewer, logger.Nop())

	outcome := r.Dispatch(context.Background(), queuedResult(1, "code"))

	assert.Equal(t, &models.DispatchOutcome{SkippedReason: SkipRepoNotRegistered}, outcome)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, reviewer.calls)
}

func TestDispatchRegistryError(t *testing.T) {
	reviewer := &countingReviewer{}
	notifier := &recordingNotifier{}
	r := New(&memoryRegistry{err: stderrors.New("disk gone")}, notifier, reviewer, logger.Nop())

	outcome := r.Dispatch(context.Background(), queuedResult(1, "code"))

	assert.Equal(t, SkipRegistryUnavailable, outcome.SkippedReason)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, reviewer.calls)
}

func TestDispatchNotifierFailureDoesNotStopReview(t *testing.T) {
	reviewer := &countingReviewer{response: "ok"}
	notifier := &recordingNotifier{err: stderrors.New("telegram down")}
	r := newTestRelay(reviewer, notifier)

	outcome := r.Dispatch(context.Background(), queuedResult(2, "code"))

	assert.False(t, outcome.StartedSent)
	assert.True(t, outcome.Reviewed)
	assert.False(t, outcome.ReviewSent)
	assert.Empty(t, outcome.SkippedReason)
	assert.Len(t, reviewer.calls, 1)
	assert.Len(t, notifier.sent, 2)
}

func TestDispatchNothingToReview(t *testing.T) {
	reviewer := &countingReviewer{}
	notifier := &recordingNotifier{}
	r := newTestRelay(reviewer, notifier)

	outcome := r.Dispatch(context.Background(), queuedResult(0, ""))

	assert.Equal(t, SkipNothingToReview, outcome.SkippedReason)
	assert.False(t, outcome.Reviewed)
	assert.Empty(t, reviewer.calls)
	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[1].text, "Nothing to review")
}

func TestDispatchReviewFailure(t *testing.T) {
	reviewer := &countingReviewer{err: stderrors.New("HTTP 500")}
	notifier := &recordingNotifier{}
	r := newTestRelay(reviewer, notifier)

	outcome := r.Dispatch(context.Background(), queuedResult(1, "code"))

	assert.Equal(t, &models.DispatchOutcome{
		ChatID:        -100500,
		StartedSent:   true,
		SkippedReason: SkipReviewFailed,
	}, outcome)
	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[1].text, "Code review failed")
}

func TestDispatchIgnoresOtherStatuses(t *testing.T) {
	reviewer := &countingReviewer{}
	notifier := &recordingNotifier{}
	r := newTestRelay(reviewer, notifier)

	outcome := r.Dispatch(context.Background(), models.IgnoredResult("ping"))

	assert.Equal(t, SkipNotQueued, outcome.SkippedReason)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, reviewer.calls)
}

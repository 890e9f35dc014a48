package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nahidhasan98/review-relay/internal/errors"
	"github.com/nahidhasan98/review-relay/internal/models"
)

// WhatsApp JID patterns
var (
	// Individual JID pattern: number@s.whatsapp.net
	individualJIDPattern = regexp.MustCompile(`^\d{10,15}@s\.whatsapp\.net$`)

	// Group JID pattern: groupid@g.us
	groupJIDPattern = regexp.MustCompile(`^\d+@g\.us$`)

	extraNewlinePattern = regexp.MustCompile(`\n{3,}`)
)

// JID servers
const (
	userServer  = "@s.whatsapp.net"
	groupServer = "@g.us"
)

// Validator provides validation methods
type Validator struct{}

// New creates a new validator instance
func New() *Validator {
	return &Validator{}
}

// ValidateRegisterRequest validates a registry mapping request
func (v *Validator) ValidateRegisterRequest(req *models.RegisterRequest) *errors.AppError {
	if req == nil {
		return errors.InvalidRequest("Request body is required")
	}

	if req.RepoID <= 0 {
		return errors.ValidationError("'repo_id' must be a positive repository id")
	}

	if req.ChatID == 0 {
		return errors.ValidationError("'chat_id' field is required")
	}

	return nil
}

// ParseRepoID parses a repository id path parameter
func (v *Validator) ParseRepoID(raw string) (int64, *errors.AppError) {
	repoID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || repoID <= 0 {
		return 0, errors.ValidationError("Invalid repository id: must be a positive number")
	}
	return repoID, nil
}

// ChatJID converts a numeric chat id into a WhatsApp JID. Positive ids are
// phone numbers, negative ids are groups (the id is the negated group
// number, the same sign convention Telegram uses for group chats).
func (v *Validator) ChatJID(chatID int64) (string, *errors.AppError) {
	if chatID < 0 {
		jid := strconv.FormatInt(-chatID, 10) + groupServer
		if !groupJIDPattern.MatchString(jid) {
			return "", errors.InvalidJID(jid)
		}
		return jid, nil
	}

	jid := strconv.FormatInt(chatID, 10) + userServer
	if !individualJIDPattern.MatchString(jid) {
		return "", errors.InvalidJID(jid)
	}
	return jid, nil
}

// GroupChatID returns the chat id to register for a group JID
func (v *Validator) GroupChatID(jid string) (int64, bool) {
	number, ok := strings.CutSuffix(strings.TrimSpace(jid), groupServer)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(number, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return -id, true
}

// SanitizeMessage sanitizes a message by removing potential harmful content
func (v *Validator) SanitizeMessage(message string) string {
	message = strings.TrimSpace(message)

	// Remove null bytes
	message = strings.ReplaceAll(message, "\x00", "")

	// Limit consecutive newlines
	return extraNewlinePattern.ReplaceAllString(message, "\n\n")
}

// Page is a validated limit/offset pair
type Page struct {
	Limit  int
	Offset int
}

// ParsePage validates the limit and offset query parameters. A zero Limit
// means no limit.
func (v *Validator) ParsePage(limit, offset string) (Page, *errors.AppError) {
	var page Page

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return page, errors.ValidationError("Invalid limit parameter: must be a number")
		}
		if n < 1 || n > 1000 {
			return page, errors.ValidationError("Invalid limit parameter: must be between 1 and 1000")
		}
		page.Limit = n
	}

	if offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			return page, errors.ValidationError("Invalid offset parameter: must be a number")
		}
		if n < 0 {
			return page, errors.ValidationError("Invalid offset parameter: must be non-negative")
		}
		page.Offset = n
	}

	return page, nil
}

// Apply returns the window of mappings selected by the page
func (p Page) Apply(mappings []models.RepoChatMapping) []models.RepoChatMapping {
	if p.Offset >= len(mappings) {
		return []models.RepoChatMapping{}
	}
	mappings = mappings[p.Offset:]
	if p.Limit > 0 && p.Limit < len(mappings) {
		mappings = mappings[:p.Limit]
	}
	return mappings
}

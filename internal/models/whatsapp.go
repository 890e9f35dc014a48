package models

// GroupInfo represents a WhatsApp group the linked device belongs to.
// ChatID is the value to register for the group (negative for groups).
type GroupInfo struct {
	JID       string `json:"jid"`
	ChatID    int64  `json:"chat_id"`
	Name      string `json:"name"`
	Topic     string `json:"topic,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

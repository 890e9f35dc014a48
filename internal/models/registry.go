package models

// RepoChatMapping associates a GitHub repository id with a chat id
type RepoChatMapping struct {
	RepoID int64 `json:"repo_id"`
	ChatID int64 `json:"chat_id"`
}

// RegisterRequest represents the request payload for adding a mapping
type RegisterRequest struct {
	RepoID int64 `json:"repo_id" validate:"required"`
	ChatID int64 `json:"chat_id" validate:"required"`
}

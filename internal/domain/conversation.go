package domain

import "time"

// ConversationSummary describes the latest state of one conversation as seen
// by a viewer. It is derived on every request.
type ConversationSummary struct {
	UserID      int64       `json:"user_id"`
	Username    string      `json:"username"`
	Avatar      *string     `json:"avatar"`
	LastMessage *string     `json:"last_message"`
	FileURL     *string     `json:"file_url"`
	MessageType MessageKind `json:"message_type"`
	Timestamp   time.Time   `json:"timestamp"`
	IsSender    bool        `json:"is_sender"`
	UnreadCount int         `json:"unread_count"`

	lastID int64
}

// NewConversationSummary builds the summary of the conversation between
// viewer and the owner of profile, given its newest message.
func NewConversationSummary(viewer int64, profile Profile, last Message, unread int) ConversationSummary {
	return ConversationSummary{
		UserID:      profile.ID,
		Username:    profile.Username,
		Avatar:      profile.AvatarURL,
		LastMessage: last.Body.Content,
		FileURL:     last.Body.FileURL,
		MessageType: last.Body.Kind,
		Timestamp:   last.CreatedAt,
		IsSender:    last.SenderID == viewer,
		UnreadCount: unread,
		lastID:      last.ID,
	}
}

// LastMessageID is the identifier of the message the summary was built from.
func (c ConversationSummary) LastMessageID() int64 { return c.lastID }

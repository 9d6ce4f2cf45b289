package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageKind tags the payload a message carries.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindLink  MessageKind = "link"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// ParseKind maps a wire value to a MessageKind. An empty value means text.
func ParseKind(s string) (MessageKind, error) {
	switch k := MessageKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindText, nil
	case KindText, KindLink, KindImage, KindFile:
		return k, nil
	default:
		return "", NewValidationError("message_type", "must be one of text, link, image, file")
	}
}

// IsAttachment reports whether the kind references an uploaded object
// instead of carrying inline content.
func (k MessageKind) IsAttachment() bool {
	return k == KindImage || k == KindFile
}

// Body is the payload of a message. Inline kinds carry Content, attachment
// kinds carry FileURL; never both.
type Body struct {
	Kind    MessageKind
	Content *string
	FileURL *string
}

// NewBody builds a Body and checks that kind and payload agree.
func NewBody(kind MessageKind, content, fileURL *string) (Body, error) {
	b := Body{Kind: kind, Content: content, FileURL: fileURL}
	if err := b.Validate(); err != nil {
		return Body{}, err
	}
	return b, nil
}

func (b Body) Validate() error {
	switch b.Kind {
	case KindText, KindLink:
		if isBlank(b.Content) {
			return NewValidationError("content", "required for "+string(b.Kind)+" messages")
		}
		if b.FileURL != nil {
			return NewValidationError("file_url", "not allowed for "+string(b.Kind)+" messages")
		}
	case KindImage, KindFile:
		if isBlank(b.FileURL) {
			return NewValidationError("file_url", "required for "+string(b.Kind)+" messages")
		}
		if b.Content != nil {
			return NewValidationError("content", "not allowed for "+string(b.Kind)+" messages")
		}
	default:
		return NewValidationError("message_type", "unknown kind "+string(b.Kind))
	}
	return nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Message is a stored direct message. Only IsRead changes after creation.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Body       Body
	CreatedAt  time.Time
	IsRead     bool
}

// Counterpart returns the other participant from viewer's point of view.
func (m *Message) Counterpart(viewer int64) int64 {
	if m.SenderID == viewer {
		return m.ReceiverID
	}
	return m.SenderID
}

// Between reports whether the message belongs to the conversation of a and b.
func (m *Message) Between(a, b int64) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// MessageView is the flat wire shape shared by REST responses and live events.
type MessageView struct {
	ID          int64       `json:"id"`
	SenderID    int64       `json:"sender_id"`
	ReceiverID  int64       `json:"receiver_id"`
	Content     *string     `json:"content"`
	FileURL     *string     `json:"file_url"`
	MessageType MessageKind `json:"message_type"`
	Timestamp   time.Time   `json:"timestamp"`
	IsRead      bool        `json:"is_read"`
}

func (m Message) View() MessageView {
	return MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Body.Content,
		FileURL:     m.Body.FileURL,
		MessageType: m.Body.Kind,
		Timestamp:   m.CreatedAt,
		IsRead:      m.IsRead,
	}
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.View())
}

package ws

import (
	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/service"
)

// Event types - Server → Client
const (
	EventTypeMessage = "message"
	EventTypeError   = "error"
)

// Error codes carried by error events.
const (
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeValidation     = "VALIDATION_ERROR"
	CodeRateLimited    = "RATE_LIMITED"
)

// InboundEvent is the only client → server frame: one outgoing message.
type InboundEvent struct {
	ReceiverID  int64   `json:"receiver_id" validate:"required,gt=0"`
	Content     *string `json:"content" validate:"omitempty,max=4000"`
	FileURL     *string `json:"file_url" validate:"omitempty,url"`
	MessageType string  `json:"message_type" validate:"omitempty,oneof=text link image file"`
}

func (e InboundEvent) SendInput() service.SendInput {
	return service.SendInput{
		ReceiverID:  e.ReceiverID,
		Content:     e.Content,
		FileURL:     e.FileURL,
		MessageType: e.MessageType,
	}
}

// MessageEvent carries a stored message to both participants.
type MessageEvent struct {
	Type string `json:"type"`
	domain.MessageView
}

func NewMessageEvent(msg *domain.Message) MessageEvent {
	return MessageEvent{Type: EventTypeMessage, MessageView: msg.View()}
}

// ErrorEvent tells the sender its last frame was rejected.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: EventTypeError, Code: code, Message: message}
}

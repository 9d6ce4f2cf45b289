package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestNewBody(t *testing.T) {
	tests := []struct {
		name    string
		kind    MessageKind
		content *string
		fileURL *string
		wantErr string
	}{
		{name: "Text", kind: KindText, content: strPtr("hi")},
		{name: "Link", kind: KindLink, content: strPtr("https://example.com")},
		{name: "Image", kind: KindImage, fileURL: strPtr("https://cdn/chat/a.png")},
		{name: "File", kind: KindFile, fileURL: strPtr("https://cdn/chat/a.pdf")},
		{name: "TextMissingContent", kind: KindText, wantErr: "content"},
		{name: "TextBlankContent", kind: KindText, content: strPtr("   "), wantErr: "content"},
		{name: "TextWithFile", kind: KindText, content: strPtr("hi"), fileURL: strPtr("x"), wantErr: "file_url"},
		{name: "ImageMissingURL", kind: KindImage, wantErr: "file_url"},
		{name: "FileWithContent", kind: KindFile, content: strPtr("hi"), fileURL: strPtr("x"), wantErr: "content"},
		{name: "UnknownKind", kind: "video", content: strPtr("hi"), wantErr: "message_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := NewBody(tt.kind, tt.content, tt.fileURL)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewBody() unexpected error: %v", err)
				}
				if body.Kind != tt.kind {
					t.Errorf("Kind = %q, want %q", body.Kind, tt.kind)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("NewBody() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("error does not match ErrValidation")
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageKind
		wantErr bool
	}{
		{in: "", want: KindText},
		{in: "text", want: KindText},
		{in: "IMAGE", want: KindImage},
		{in: " file ", want: KindFile},
		{in: "link", want: KindLink},
		{in: "sticker", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMessage_MarshalJSON(t *testing.T) {
	msg := Message{
		ID:         7,
		SenderID:   1,
		ReceiverID: 2,
		Body:       Body{Kind: KindText, Content: strPtr("hi")},
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":7,"sender_id":1,"receiver_id":2,"content":"hi","file_url":null,"message_type":"text","timestamp":"2024-05-01T10:00:00Z","is_read":false}`
	if string(b) != want {
		t.Errorf("got  %s\nwant %s", b, want)
	}
}

func TestMessage_Counterpart(t *testing.T) {
	msg := Message{SenderID: 1, ReceiverID: 2}
	if got := msg.Counterpart(1); got != 2 {
		t.Errorf("Counterpart(1) = %d, want 2", got)
	}
	if got := msg.Counterpart(2); got != 1 {
		t.Errorf("Counterpart(2) = %d, want 1", got)
	}
	if !msg.Between(2, 1) || msg.Between(1, 3) {
		t.Error("Between mismatch")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection reset")

	upErr := error(&UploadError{Key: "chat/x.png", Err: cause})
	if !errors.Is(upErr, ErrUpload) || !errors.Is(upErr, cause) {
		t.Errorf("UploadError should match ErrUpload and its cause")
	}

	chErr := error(&ChannelError{UserID: 3, Err: cause})
	if !errors.Is(chErr, ErrChannel) || !errors.Is(chErr, cause) {
		t.Errorf("ChannelError should match ErrChannel and its cause")
	}

	utErr := error(&UnsupportedTypeError{Filename: "malware.exe", Extension: ".exe"})
	if !errors.Is(utErr, ErrUnsupportedType) {
		t.Errorf("UnsupportedTypeError should match ErrUnsupportedType")
	}
}

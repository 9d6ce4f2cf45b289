package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/noobsquad/chatcore/internal/auth"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestServeWS_Unauthorized(t *testing.T) {
	h := newHarness(t)
	verifier := auth.NewVerifier("secret")
	srv := httptest.NewServer(ServeWS(h.registry, h.chat, verifier, Options{}, slogt.New(t)))
	defer srv.Close()

	for name, query := range map[string]string{
		"MissingToken": "",
		"BadToken":     "?token=garbage",
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + query)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}

func TestServeWS_EndToEnd(t *testing.T) {
	h := newHarness(t)
	verifier := auth.NewVerifier("secret")
	srv := httptest.NewServer(ServeWS(h.registry, h.chat, verifier, Options{
		SendBuffer:      8,
		MaxMessageBytes: 1 << 16,
		Session:         SessionOptions{StoreTimeout: time.Second},
	}, slogt.New(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial := func(userID int64) *websocket.Conn {
		t.Helper()
		tok, err := verifier.Issue(userID, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + tok
		c, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			t.Fatalf("dial as %d: %v", userID, err)
		}
		return c
	}

	alice := dial(1)
	defer alice.CloseNow()
	bob := dial(2)
	defer bob.CloseNow()

	waitFor(t, func() bool { return h.registry.Len() == 2 })

	err := wsjson.Write(ctx, alice, map[string]any{
		"receiver_id":  2,
		"content":      "hi",
		"message_type": "text",
	})
	if err != nil {
		t.Fatal(err)
	}

	var got MessageEvent
	if err := wsjson.Read(ctx, bob, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != EventTypeMessage || got.SenderID != 1 || got.ReceiverID != 2 ||
		got.Content == nil || *got.Content != "hi" || got.IsRead {
		t.Errorf("bob received %+v", got)
	}

	var echo MessageEvent
	if err := wsjson.Read(ctx, alice, &echo); err != nil {
		t.Fatal(err)
	}
	if echo.ID != got.ID {
		t.Errorf("echo id = %d, want %d", echo.ID, got.ID)
	}

	if err := wsjson.Write(ctx, alice, map[string]any{"content": "no receiver"}); err != nil {
		t.Fatal(err)
	}
	var rejected ErrorEvent
	if err := wsjson.Read(ctx, alice, &rejected); err != nil {
		t.Fatal(err)
	}
	if rejected.Type != EventTypeError || rejected.Code != CodeValidation {
		t.Errorf("alice received %+v, want validation error", rejected)
	}

	alice.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool {
		_, ok := h.registry.Lookup(1)
		return !ok
	})
	if _, ok := h.registry.Lookup(2); !ok {
		t.Error("bob should still be connected")
	}
}

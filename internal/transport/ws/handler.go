package ws

import (
	"log/slog"
	"net/http"

	"github.com/noobsquad/chatcore/pkg/validator"
	"nhooyr.io/websocket"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	ParseUserID(token string) (int64, error)
}

type Options struct {
	Session         SessionOptions
	SendBuffer      int
	MaxMessageBytes int64
	// OriginPatterns restricts cross-origin handshakes. Empty accepts any origin.
	OriginPatterns []string
}

// ServeWS returns an HTTP handler that upgrades to WebSocket and runs a chat
// session for the authenticated user until the connection ends.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(registry *Registry, chat MessageSender, verifier TokenVerifier, opts Options, logger *slog.Logger) http.HandlerFunc {
	v := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		userID, err := verifier.ParseUserID(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns:     opts.OriginPatterns,
			InsecureSkipVerify: len(opts.OriginPatterns) == 0,
		})
		if err != nil {
			logger.Warn("ws: accept error", "user_id", userID, "error", err)
			return
		}
		if opts.MaxMessageBytes > 0 {
			conn.SetReadLimit(opts.MaxMessageBytes)
		}

		c := NewConnection(conn, userID, opts.SendBuffer, logger)
		go c.WritePump()

		sess := NewSession(userID, c, registry, chat, v, opts.Session, logger)
		if err := sess.Run(r.Context()); err != nil {
			logger.Debug("ws: session ended", "user_id", userID, "error", err)
		}
	}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/noobsquad/chatcore/internal/domain"
	"github.com/noobsquad/chatcore/internal/metrics"
	"github.com/noobsquad/chatcore/internal/service"
	"github.com/noobsquad/chatcore/pkg/validator"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Channel is a live duplex connection owned by a session.
type Channel interface {
	Peer
	Read(ctx context.Context) ([]byte, error)
}

// MessageSender validates and persists one outgoing message.
type MessageSender interface {
	Send(ctx context.Context, senderID int64, in service.SendInput) (*domain.Message, error)
}

type SessionOptions struct {
	// MessageRate is the sustained number of messages per second a session
	// may send. Zero disables the limit.
	MessageRate  float64
	MessageBurst int
	StoreTimeout time.Duration
}

// Session runs the receive loop of one connection: every inbound frame is
// persisted and then echoed to both participants.
type Session struct {
	userID   int64
	ch       Channel
	registry *Registry
	chat     MessageSender
	validate *validator.Validator
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger

	state atomic.Int32
}

func NewSession(userID int64, ch Channel, registry *Registry, chat MessageSender, v *validator.Validator, opts SessionOptions, logger *slog.Logger) *Session {
	limit := rate.Inf
	if opts.MessageRate > 0 {
		limit = rate.Limit(opts.MessageRate)
	}
	burst := opts.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return &Session{
		userID:   userID,
		ch:       ch,
		registry: registry,
		chat:     chat,
		validate: v,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  opts.StoreTimeout,
		logger:   logger.With("user_id", userID),
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(st State) { s.state.Store(int32(st)) }

// Run registers the session and processes frames in arrival order until the
// channel closes or a frame cannot be handled. The session is released from
// the registry and its channel closed on every exit path.
func (s *Session) Run(ctx context.Context) (err error) {
	closeCode, closeReason := websocket.StatusNormalClosure, ""

	s.registry.Register(s.userID, s.ch)
	s.setState(StateOpen)

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("ws: session panic", "panic", rec)
			err = fmt.Errorf("session panic: %v", rec)
			closeCode, closeReason = websocket.StatusInternalError, "internal error"
		}
		s.setState(StateClosing)
		s.registry.Release(s.userID, s.ch)
		s.ch.Close(closeCode, closeReason)
		s.setState(StateClosed)
	}()

	for {
		data, rerr := s.ch.Read(ctx)
		if rerr != nil {
			s.setState(StateClosing)
			if isClosure(rerr) {
				s.logger.Debug("ws: client disconnected")
				return nil
			}
			s.logger.Warn("ws: read error", "error", rerr)
			return rerr
		}

		if herr := s.handle(ctx, data); herr != nil {
			s.setState(StateClosing)
			var perr *protocolError
			if errors.As(herr, &perr) {
				closeCode, closeReason = websocket.StatusUnsupportedData, "malformed frame"
			} else {
				closeCode, closeReason = websocket.StatusInternalError, "message not stored"
			}
			s.logger.Warn("ws: closing session", "error", herr)
			return herr
		}
	}
}

// handle processes one frame. A returned error ends the session; rejected
// frames are answered with an error event instead.
func (s *Session) handle(ctx context.Context, data []byte) error {
	var in InboundEvent
	if err := json.Unmarshal(data, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			s.reject(CodeInvalidPayload, "invalid value for "+typeErr.Field, "invalid_payload")
			return nil
		}
		return &protocolError{err: err}
	}

	if !s.limiter.Allow() {
		s.reject(CodeRateLimited, "too many messages, slow down", "rate_limited")
		return nil
	}

	if errs := s.validate.ValidateStruct(in); errs.HasErrors() {
		s.reject(CodeValidation, errs.String(), "validation")
		return nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	msg, err := s.chat.Send(storeCtx, s.userID, in.SendInput())
	cancel()

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		s.reject(CodeValidation, verr.Error(), "validation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist message: %w", err)
	}

	s.registry.Broadcast([]int64{msg.SenderID, msg.ReceiverID}, NewMessageEvent(msg))
	return nil
}

func (s *Session) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// reject answers the sender directly so a replaced session never writes to
// its successor's connection.
func (s *Session) reject(code, message, reason string) {
	metrics.RejectedEvents.WithLabelValues(reason).Inc()

	data, err := json.Marshal(NewErrorEvent(code, message))
	if err != nil {
		return
	}
	if err := s.ch.Push(data); err != nil {
		s.logger.Debug("ws: could not deliver error event", "error", err)
	}
}

type protocolError struct{ err error }

func (e *protocolError) Error() string { return "malformed frame: " + e.err.Error() }
func (e *protocolError) Unwrap() error { return e.err }

func isClosure(err error) bool {
	return websocket.CloseStatus(err) != -1 ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrChannelClosed)
}

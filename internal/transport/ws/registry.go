package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/noobsquad/chatcore/internal/metrics"
	"nhooyr.io/websocket"
)

// StatusSessionReplaced closes a connection whose user connected again.
const StatusSessionReplaced websocket.StatusCode = 4001

// Peer is the registry's view of a live connection. Push must not block.
type Peer interface {
	Push(data []byte) error
	Close(code websocket.StatusCode, reason string)
}

// Registry maps each user to at most one live connection.
type Registry struct {
	mu     sync.RWMutex
	peers  map[int64]Peer
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		peers:  make(map[int64]Peer),
		logger: logger,
	}
}

// Register makes p the connection of userID. A previously registered
// connection is closed asynchronously after the lock is released.
func (r *Registry) Register(userID int64, p Peer) {
	r.mu.Lock()
	prev, had := r.peers[userID]
	r.peers[userID] = p
	n := len(r.peers)
	r.mu.Unlock()

	metrics.ActiveConnections.Set(float64(n))
	r.logger.Info("ws: user connected", "user_id", userID, "total", n)

	if had && prev != p {
		r.logger.Info("ws: replacing previous connection", "user_id", userID)
		go prev.Close(StatusSessionReplaced, "session replaced")
	}
}

// Deregister removes whatever connection userID has.
func (r *Registry) Deregister(userID int64) {
	r.mu.Lock()
	_, had := r.peers[userID]
	delete(r.peers, userID)
	n := len(r.peers)
	r.mu.Unlock()

	if had {
		metrics.ActiveConnections.Set(float64(n))
		r.logger.Info("ws: user disconnected", "user_id", userID, "total", n)
	}
}

// Release removes userID only while p is still its registered connection.
func (r *Registry) Release(userID int64, p Peer) bool {
	r.mu.Lock()
	cur, ok := r.peers[userID]
	if !ok || cur != p {
		r.mu.Unlock()
		return false
	}
	delete(r.peers, userID)
	n := len(r.peers)
	r.mu.Unlock()

	metrics.ActiveConnections.Set(float64(n))
	r.logger.Info("ws: user disconnected", "user_id", userID, "total", n)
	return true
}

func (r *Registry) Lookup(userID int64) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[userID]
	return p, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Send pushes event to userID's connection. Failures are logged and
// reported as false, never returned.
func (r *Registry) Send(userID int64, event any) bool {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("ws: marshal event", "error", err)
		return false
	}
	return r.push(userID, data)
}

// Broadcast encodes event once and sends it to every user in turn.
func (r *Registry) Broadcast(userIDs []int64, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("ws: marshal event", "error", err)
		return
	}
	for _, id := range userIDs {
		r.push(id, data)
	}
}

func (r *Registry) push(userID int64, data []byte) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.peers[userID]
	if !ok {
		metrics.Deliveries.WithLabelValues("offline").Inc()
		return false
	}
	if err := p.Push(data); err != nil {
		metrics.Deliveries.WithLabelValues("dropped").Inc()
		r.logger.Debug("ws: live push failed", "user_id", userID, "error", err)
		return false
	}
	metrics.Deliveries.WithLabelValues("delivered").Inc()
	return true
}

// CloseAll empties the registry and closes every connection.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	peers := r.peers
	r.peers = make(map[int64]Peer)
	r.mu.Unlock()

	metrics.ActiveConnections.Set(0)
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Go(func() { p.Close(websocket.StatusGoingAway, reason) })
	}
	wg.Wait()
	r.logger.Info("ws: closed all connections", "count", len(peers))
}

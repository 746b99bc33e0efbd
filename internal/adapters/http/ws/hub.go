// Package ws serves multiplayer lobbies over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	service "github.com/okian/skyguess/internal/app"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
	"github.com/okian/skyguess/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	genericServerMessage = "The server was unable to process your request"
)

// Service is the lobby side of the game service.
type Service interface {
	CreateLobby(ctx context.Context, playerName, connID string, rules model.GameRules) (service.LobbyState, error)
	JoinLobby(ctx context.Context, lobbyID, playerName, connID string) (service.LobbyState, error)
	LobbyGuess(ctx context.Context, req service.LobbyGuessRequest) (service.LobbyGuessResult, error)
	Disconnect(ctx context.Context, lobbyID, playerName string) error
}

// client is one websocket connection. lobbyID and playerName are guarded
// by Hub.mu.
type client struct {
	id         string
	conn       *websocket.Conn
	send       chan []byte
	lobbyID    string
	playerName string
}

// Hub tracks connections and the lobby each one has joined.
type Hub struct {
	svc      Service
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
	lobbies map[string]map[string]*client
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	messageTimeout time.Duration
	sendBuffer     int

	logger logger.Logger
}

// NewHub creates a hub that serves lobby actions against svc.
func NewHub(svc Service, opts ...Option) *Hub {
	h := &Hub{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:        make(map[string]*client),
		lobbies:        make(map[string]map[string]*client),
		messageTimeout: 15 * time.Second,
		sendBuffer:     32,
		logger:         logger.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("ws")
	h.ctx, h.cancel = context.WithCancel(context.Background())
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, h.sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	metrics.IncWebsocketConnections()
	h.logger.Debug(r.Context(), "client connected",
		logger.String("conn_id", c.id),
		logger.String("remote", conn.RemoteAddr().String()),
	)

	go h.writeLoop(c)
	h.readLoop(c)
}

// Size returns the number of open connections.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close sends a going-away frame to every connection and waits for them to finish.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range h.clients {
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
	}
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.wg.Add(2)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	lobbyID, name := c.lobbyID, c.playerName
	h.leaveLobby(c)
	reattached := h.playerConnected(lobbyID, name)
	close(c.send)
	h.mu.Unlock()

	metrics.DecWebsocketConnections()
	if lobbyID == "" || reattached {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), h.messageTimeout)
	defer cancel()
	if err := h.svc.Disconnect(ctx, lobbyID, name); err != nil {
		h.logger.Debug(ctx, "disconnect not recorded",
			logger.String("lobby_id", lobbyID),
			logger.String("player", name),
			logger.Error(err),
		)
	}
}

// leaveLobby removes c from its lobby. Callers hold h.mu.
func (h *Hub) leaveLobby(c *client) {
	if c.lobbyID == "" {
		return
	}
	members := h.lobbies[c.lobbyID]
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.lobbies, c.lobbyID)
	}
	c.lobbyID, c.playerName = "", ""
}

// playerConnected reports whether name still has a connection in the lobby.
// Callers hold h.mu.
func (h *Hub) playerConnected(lobbyID, name string) bool {
	for _, other := range h.lobbies[lobbyID] {
		if other.playerName == name {
			return true
		}
	}
	return false
}

func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug(h.ctx, "client read failed", logger.String("conn_id", c.id), logger.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.RecordWebsocketMessage("malformed")
			h.reply(c, errorEvent{Event: eventError, Status: http.StatusBadRequest, Message: "malformed message"})
			continue
		}
		h.dispatch(c, msg)
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues v for c alone.
func (h *Hub) reply(c *client, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(h.ctx, "encode websocket event", logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.id] == c {
		h.deliver(c, payload)
	}
}

// broadcast queues v for every connection in the lobby.
func (h *Hub) broadcast(lobbyID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(h.ctx, "encode websocket event", logger.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.lobbies[lobbyID] {
		h.deliver(c, payload)
	}
}

// deliver never blocks: a connection whose buffer is full is closed. Callers
// hold h.mu.
func (h *Hub) deliver(c *client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.logger.Warn(h.ctx, "dropping slow websocket client", logger.String("conn_id", c.id))
		_ = c.conn.Close()
	}
}

func (h *Hub) dispatch(c *client, msg inbound) { //nolint:gocritic // messages travel by value
	ctx, cancel := context.WithTimeout(h.ctx, h.messageTimeout)
	defer cancel()

	switch msg.Action {
	case actionCreateLobby:
		metrics.RecordWebsocketMessage(msg.Action)
		state, err := h.svc.CreateLobby(ctx, msg.PlayerName, c.id, msg.Rules)
		if err != nil {
			h.fail(ctx, c, eventLobbyError, err)
			return
		}
		h.joined(c, state)
	case actionJoinLobby:
		metrics.RecordWebsocketMessage(msg.Action)
		state, err := h.svc.JoinLobby(ctx, msg.LobbyID, msg.PlayerName, c.id)
		if err != nil {
			h.fail(ctx, c, eventLobbyError, err)
			return
		}
		h.joined(c, state)
	case actionHandleGuess:
		metrics.RecordWebsocketMessage(msg.Action)
		h.guess(ctx, c, msg)
	case actionPing:
		metrics.RecordWebsocketMessage(msg.Action)
	default:
		metrics.RecordWebsocketMessage("unknown")
		h.reply(c, errorEvent{Event: eventError, Status: http.StatusBadRequest, Message: "unsupported action"})
	}
}

// joined moves c into the lobby of state, answers it and updates the lobby.
func (h *Hub) joined(c *client, state service.LobbyState) { //nolint:gocritic // state travels by value
	h.mu.Lock()
	if h.clients[c.id] != c {
		h.mu.Unlock()
		return
	}
	h.leaveLobby(c)
	c.lobbyID, c.playerName = state.Lobby.ID, state.Player.PlayerName
	members, ok := h.lobbies[c.lobbyID]
	if !ok {
		members = make(map[string]*client)
		h.lobbies[c.lobbyID] = members
	}
	members[c.id] = c
	h.mu.Unlock()

	h.reply(c, lobbyJoinedEvent{
		Event:      eventLobbyJoined,
		Lobby:      state.Lobby.ID,
		Rules:      state.Lobby.Rules,
		Players:    state.Standings,
		PlayerName: state.Player.PlayerName,
		Score:      state.Player.Points,
	})
	h.broadcast(state.Lobby.ID, lobbyUpdateEvent{Event: eventLobbyUpdate, LobbyData: state.Standings})
}

func (h *Hub) guess(ctx context.Context, c *client, msg inbound) { //nolint:gocritic // messages travel by value
	if msg.Player == nil {
		h.reply(c, errorEvent{Event: eventFlightError, Status: http.StatusBadRequest, Message: "missing player position"})
		return
	}
	// A joined connection always guesses as itself.
	h.mu.RLock()
	lobbyID, name := c.lobbyID, c.playerName
	h.mu.RUnlock()
	if lobbyID == "" {
		lobbyID, name = msg.LobbyID, msg.PlayerName
	}

	res, err := h.svc.LobbyGuess(ctx, service.LobbyGuessRequest{
		LobbyID:     lobbyID,
		PlayerName:  name,
		Player:      *msg.Player,
		Origin:      msg.Origin,
		Destination: msg.Destination,
	})
	if err != nil {
		h.fail(ctx, c, eventFlightError, err)
		return
	}

	h.broadcast(res.Player.LobbyID, lobbyUpdateEvent{Event: eventLobbyUpdate, LobbyData: res.Standings})
	h.reply(c, flightDetailsEvent{
		Event:  eventFlightDetails,
		Status: res.Status,
		Score:  res.Player.Points,
		Points: res.Points,
		Flight: res.Flight,
	})
}

// fail answers c with event for user-facing errors and with a generic
// error event for everything else.
func (h *Hub) fail(ctx context.Context, c *client, event string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		h.reply(c, errorEvent{Event: event, Status: http.StatusBadRequest, Message: err.Error()})
	case errors.Is(err, service.ErrLobbyNotFound):
		h.reply(c, errorEvent{Event: event, Status: http.StatusNotFound, Message: "Lobby does not exist"})
	case errors.Is(err, service.ErrPlayerNotFound):
		h.reply(c, errorEvent{Event: event, Status: http.StatusNotFound, Message: "Player does not exist"})
	case errors.Is(err, model.ErrNoFlightFound):
		h.reply(c, errorEvent{Event: event, Status: http.StatusNotFound, Message: model.ErrNoFlightFound.Error()})
	default:
		h.logger.Error(ctx, "websocket action failed", logger.String("conn_id", c.id), logger.Error(err))
		h.reply(c, errorEvent{Event: eventError, Message: genericServerMessage})
	}
}

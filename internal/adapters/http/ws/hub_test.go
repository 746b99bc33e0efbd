package ws_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/skyguess/internal/adapters/http/ws"
	"github.com/okian/skyguess/internal/adapters/repository"
	service "github.com/okian/skyguess/internal/app"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
)

type disconnect struct{ lobbyID, name string }

type fakeService struct {
	mu          sync.Mutex
	guessErr    error
	guesses     []service.LobbyGuessRequest
	connIDs     []string
	disconnects chan disconnect
}

func newFakeService() *fakeService {
	return &fakeService{disconnects: make(chan disconnect, 8)}
}

func standings(names ...string) []repository.Standing {
	out := make([]repository.Standing, 0, len(names))
	for i, n := range names {
		out = append(out, repository.Standing{
			Rank:          i + 1,
			PlayerSummary: model.PlayerSummary{LobbyID: "ABCD", PlayerName: n},
		})
	}
	return out
}

func (f *fakeService) CreateLobby(_ context.Context, playerName, connID string, rules model.GameRules) (service.LobbyState, error) {
	f.mu.Lock()
	f.connIDs = append(f.connIDs, connID)
	f.mu.Unlock()
	if strings.TrimSpace(playerName) == "" {
		return service.LobbyState{}, service.ErrInvalidName
	}
	return service.LobbyState{
		Lobby:     model.Lobby{ID: "ABCD", Rules: rules},
		Player:    model.PlayerSummary{LobbyID: "ABCD", PlayerName: playerName},
		Standings: standings(playerName),
	}, nil
}

func (f *fakeService) JoinLobby(_ context.Context, lobbyID, playerName, _ string) (service.LobbyState, error) {
	if lobbyID != "ABCD" {
		return service.LobbyState{}, fmt.Errorf("%w: lobby id %q", service.ErrLobbyNotFound, lobbyID)
	}
	return service.LobbyState{
		Lobby:     model.Lobby{ID: "ABCD", Rules: model.GameRules{UseOrigin: true}},
		Player:    model.PlayerSummary{LobbyID: "ABCD", PlayerName: playerName, Points: 40},
		Standings: standings("Ada", playerName),
	}, nil
}

func (f *fakeService) LobbyGuess(_ context.Context, req service.LobbyGuessRequest) (service.LobbyGuessResult, error) { //nolint:gocritic // matches the service signature
	f.mu.Lock()
	f.guesses = append(f.guesses, req)
	err := f.guessErr
	f.mu.Unlock()
	if err != nil {
		return service.LobbyGuessResult{}, err
	}
	return service.LobbyGuessResult{
		GuessOutcome: service.GuessOutcome{
			GuessResult: model.GuessResult{
				Points: model.Points{Origin: 100, Total: 100},
				Flight: model.Flight{ID: "SWR123-LX123-1718000000", Callsign: "SWR123"},
			},
			Status: model.StatusSuccess,
		},
		Player:    model.PlayerSummary{LobbyID: "ABCD", PlayerName: req.PlayerName, Points: 140, GuessCount: 1},
		Standings: standings(req.PlayerName, "Ada"),
	}, nil
}

func (f *fakeService) Disconnect(_ context.Context, lobbyID, playerName string) error {
	f.disconnects <- disconnect{lobbyID: lobbyID, name: playerName}
	return nil
}

func (f *fakeService) setGuessErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guessErr = err
}

func newHubServer(t *testing.T, svc ws.Service) (*ws.Hub, *httptest.Server) {
	t.Helper()
	hub := ws.NewHub(svc, ws.WithLogger(logger.Nop()))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestCreateLobby(t *testing.T) {
	svc := newFakeService()
	hub, srv := newHubServer(t, svc)
	conn := dial(t, srv)

	send(t, conn, `{"action":"create_lobby","player_name":"Ada","rules":{"use_origin":true,"use_destination":false}}`)

	joined := readEvent(t, conn)
	assert.Equal(t, "lobby_joined", joined["event"])
	assert.Equal(t, "ABCD", joined["lobby"])
	assert.Equal(t, "Ada", joined["player_name"])
	assert.Equal(t, 0.0, joined["score"])
	assert.Equal(t, map[string]any{"use_origin": true, "use_destination": false}, joined["rules"])
	require.Len(t, joined["players"], 1)

	update := readEvent(t, conn)
	assert.Equal(t, "lobby_update", update["event"])

	assert.Equal(t, 1, hub.Size())
	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.connIDs, 1)
	assert.Len(t, svc.connIDs[0], 36)
}

func TestGuessIsBroadcastToLobby(t *testing.T) {
	svc := newFakeService()
	_, srv := newHubServer(t, svc)

	ada := dial(t, srv)
	send(t, ada, `{"action":"create_lobby","player_name":"Ada","rules":{"use_origin":true}}`)
	assert.Equal(t, "lobby_joined", readEvent(t, ada)["event"])
	assert.Equal(t, "lobby_update", readEvent(t, ada)["event"])

	grace := dial(t, srv)
	send(t, grace, `{"action":"join_lobby","lobby_id":"ABCD","player_name":"Grace"}`)
	joined := readEvent(t, grace)
	assert.Equal(t, "lobby_joined", joined["event"])
	assert.Equal(t, 40.0, joined["score"])
	assert.Equal(t, "lobby_update", readEvent(t, grace)["event"])
	assert.Equal(t, "lobby_update", readEvent(t, ada)["event"])

	send(t, grace, `{"action":"handle_guess","player":{"lat":47.37,"lon":8.54},"origin":{"lat":46.0,"lon":8.9}}`)

	update := readEvent(t, ada)
	assert.Equal(t, "lobby_update", update["event"])
	rows, ok := update["lobby_data"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "Grace", rows[0].(map[string]any)["player_name"])

	assert.Equal(t, "lobby_update", readEvent(t, grace)["event"])
	details := readEvent(t, grace)
	assert.Equal(t, "flight_details", details["event"])
	assert.Equal(t, "Success", details["status"])
	assert.Equal(t, 140.0, details["score"])
	assert.Equal(t, "SWR123-LX123-1718000000", details["flight"].(map[string]any)["id"])
	assert.Equal(t, 100.0, details["points"].(map[string]any)["total"])
}

func TestGuessUsesJoinedIdentity(t *testing.T) {
	svc := newFakeService()
	_, srv := newHubServer(t, svc)

	ada := dial(t, srv)
	send(t, ada, `{"action":"create_lobby","player_name":"Ada","rules":{"use_origin":true}}`)
	assert.Equal(t, "lobby_joined", readEvent(t, ada)["event"])

	grace := dial(t, srv)
	send(t, grace, `{"action":"join_lobby","lobby_id":"ABCD","player_name":"Grace"}`)
	assert.Equal(t, "lobby_joined", readEvent(t, grace)["event"])
	assert.Equal(t, "lobby_update", readEvent(t, grace)["event"])

	send(t, grace, `{"action":"handle_guess","lobby_id":"WXYZ","player_name":"Ada","player":{"lat":47.37,"lon":8.54},"origin":{"lat":46.0,"lon":8.9}}`)
	assert.Equal(t, "lobby_update", readEvent(t, grace)["event"])
	details := readEvent(t, grace)
	assert.Equal(t, "flight_details", details["event"])

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.guesses, 1)
	assert.Equal(t, "ABCD", svc.guesses[0].LobbyID)
	assert.Equal(t, "Grace", svc.guesses[0].PlayerName)
}

func TestErrorEvents(t *testing.T) {
	svc := newFakeService()
	_, srv := newHubServer(t, svc)
	conn := dial(t, srv)

	tests := []struct {
		name    string
		setup   func()
		msg     string
		event   string
		status  float64
		message string
	}{
		{
			name:    "unknown lobby",
			msg:     `{"action":"join_lobby","lobby_id":"ZZZZ","player_name":"Grace"}`,
			event:   "lobby_error",
			status:  404,
			message: "Lobby does not exist",
		},
		{
			name:    "invalid name",
			msg:     `{"action":"create_lobby","player_name":"  ","rules":{}}`,
			event:   "lobby_error",
			status:  400,
			message: "invalid input",
		},
		{
			name:    "missing player position",
			msg:     `{"action":"handle_guess","lobby_id":"ABCD","player_name":"Ada"}`,
			event:   "flight_error",
			status:  400,
			message: "missing player position",
		},
		{
			name:    "no flight",
			setup:   func() { svc.setGuessErr(model.ErrNoFlightFound) },
			msg:     `{"action":"handle_guess","lobby_id":"ABCD","player_name":"Ada","player":{"lat":0,"lon":0}}`,
			event:   "flight_error",
			status:  404,
			message: "no flights were found in your location",
		},
		{
			name:    "upstream failure",
			setup:   func() { svc.setGuessErr(fmt.Errorf("%w: fr24 list: timeout", model.ErrUpstreamFailure)) },
			msg:     `{"action":"handle_guess","lobby_id":"ABCD","player_name":"Ada","player":{"lat":0,"lon":0}}`,
			event:   "error",
			message: "The server was unable to process your request",
		},
		{
			name:    "malformed json",
			msg:     `{"action":`,
			event:   "error",
			status:  400,
			message: "malformed message",
		},
		{
			name:    "unknown action",
			msg:     `{"action":"launch"}`,
			event:   "error",
			status:  400,
			message: "unsupported action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			send(t, conn, tt.msg)
			ev := readEvent(t, conn)
			assert.Equal(t, tt.event, ev["event"])
			assert.Contains(t, ev["message"], tt.message)
			if tt.status != 0 {
				assert.Equal(t, tt.status, ev["status"])
			} else {
				assert.NotContains(t, ev, "status")
			}
		})
	}
}

func TestPingIsSilent(t *testing.T) {
	_, srv := newHubServer(t, newFakeService())
	conn := dial(t, srv)

	send(t, conn, `{"action":"ping"}`)
	send(t, conn, `{"action":"launch"}`)

	ev := readEvent(t, conn)
	assert.Equal(t, "unsupported action", ev["message"])
}

func TestDisconnectOnClose(t *testing.T) {
	svc := newFakeService()
	hub, srv := newHubServer(t, svc)
	conn := dial(t, srv)

	send(t, conn, `{"action":"create_lobby","player_name":"Ada","rules":{"use_origin":true}}`)
	readEvent(t, conn)
	readEvent(t, conn)
	require.NoError(t, conn.Close())

	select {
	case d := <-svc.disconnects:
		assert.Equal(t, disconnect{lobbyID: "ABCD", name: "Ada"}, d)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect was not reported")
	}
	assert.Eventually(t, func() bool { return hub.Size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClose(t *testing.T) {
	hub, srv := newHubServer(t, newFakeService())
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Size() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	}
	assert.Equal(t, 0, hub.Size())
}

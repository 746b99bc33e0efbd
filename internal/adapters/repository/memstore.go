package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/metrics"
)

// MemoryStore is an in-memory Store. A background sweeper removes lobbies,
// and their players, once they have been idle for longer than the TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	lobbies map[string]model.Lobby
	players map[string]model.Player
	byLobby map[string]map[string]struct{} // lobby id -> player ids
	ttl     time.Duration
	now     func() time.Time

	sweepInterval time.Duration
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore constructs a store and starts its sweeper. The sweeper stops
// when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		lobbies:       make(map[string]model.Lobby),
		players:       make(map[string]model.Player),
		byLobby:       make(map[string]map[string]struct{}),
		ttl:           time.Hour,
		sweepInterval: time.Minute,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startSweeper(ctx)
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep removes idle lobbies and returns how many were removed.
func (s *MemoryStore) sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	expired := 0
	for id, lobby := range s.lobbies {
		if lobby.LastInteraction.After(cutoff) {
			continue
		}
		for pid := range s.byLobby[id] {
			delete(s.players, pid)
		}
		delete(s.byLobby, id)
		delete(s.lobbies, id)
		expired++
	}
	lobbies, players := len(s.lobbies), len(s.players)
	s.mu.Unlock()

	if expired > 0 {
		metrics.RecordLobbiesExpired(expired)
	}
	metrics.UpdateActiveLobbies(lobbies)
	metrics.UpdateActivePlayers(players)
	return expired
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) CreateLobby(_ context.Context, lobby model.Lobby) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lobbies[lobby.ID]; ok {
		return fmt.Errorf("%w: %s", ErrLobbyExists, lobby.ID)
	}
	if lobby.LastInteraction.IsZero() {
		lobby.LastInteraction = s.now()
	}
	if lobby.CreatedAt.IsZero() {
		lobby.CreatedAt = lobby.LastInteraction
	}
	s.lobbies[lobby.ID] = lobby
	s.byLobby[lobby.ID] = make(map[string]struct{})
	metrics.UpdateActiveLobbies(len(s.lobbies))
	return nil
}

func (s *MemoryStore) GetLobby(_ context.Context, lobbyID string) (model.Lobby, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lobby, ok := s.lobbies[lobbyID]
	if !ok {
		return model.Lobby{}, fmt.Errorf("lobby %s: %w", lobbyID, ErrNotFound)
	}
	return lobby, nil
}

func (s *MemoryStore) TouchLobby(_ context.Context, lobbyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.lobbies[lobbyID]
	if !ok {
		return fmt.Errorf("lobby %s: %w", lobbyID, ErrNotFound)
	}
	if at.After(lobby.LastInteraction) {
		lobby.LastInteraction = at
		s.lobbies[lobbyID] = lobby
	}
	return nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, playerID string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[playerID]
	if !ok {
		return model.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return clonePlayer(p), nil
}

func (s *MemoryStore) PutPlayer(_ context.Context, player model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.byLobby[player.LobbyID]
	if !ok {
		return fmt.Errorf("lobby %s: %w", player.LobbyID, ErrNotFound)
	}
	s.players[player.ID] = clonePlayer(player)
	members[player.ID] = struct{}{}
	metrics.UpdateActivePlayers(len(s.players))
	return nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, playerID string, fn func(*model.Player) error) (model.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.players[playerID]
	if !ok {
		return model.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	next := clonePlayer(cur)
	if err := fn(&next); err != nil {
		return model.Player{}, err
	}
	// id and lobby are the index keys
	next.ID, next.LobbyID = cur.ID, cur.LobbyID
	s.players[playerID] = clonePlayer(next)
	return next, nil
}

func (s *MemoryStore) Standings(_ context.Context, lobbyID string) ([]Standing, error) {
	s.mu.RLock()
	members, ok := s.byLobby[lobbyID]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("lobby %s: %w", lobbyID, ErrNotFound)
	}
	out := make([]Standing, 0, len(members))
	for pid := range members {
		out = append(out, Standing{PlayerSummary: s.players[pid].Summary()})
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Standing) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		return strings.Compare(a.PlayerName, b.PlayerName)
	})
	assignRanksWithTies(out)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

// assignRanksWithTies gives equal points the same rank; the next distinct
// score takes the following rank.
func assignRanksWithTies(rows []Standing) {
	rank := 0
	for i := range rows {
		if i == 0 || rows[i].Points != rows[i-1].Points {
			rank++
		}
		rows[i].Rank = rank
	}
}

func clonePlayer(p model.Player) model.Player {
	p.GuessedFlights = slices.Clone(p.GuessedFlights)
	return p
}

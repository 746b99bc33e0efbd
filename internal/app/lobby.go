package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okian/skyguess/internal/adapters/repository"
	"github.com/okian/skyguess/internal/domain/dedupe"
	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
	"github.com/okian/skyguess/pkg/metrics"
)

const (
	lobbyIDLength = 4
	maxNameLength = 20
)

// LobbyState is what a player sees after creating or joining a lobby.
type LobbyState struct {
	Lobby     model.Lobby           `json:"lobby"`
	Player    model.PlayerSummary   `json:"player"`
	Standings []repository.Standing `json:"standings"`
}

// LobbyGuessRequest is a guess made by a lobby member. The lobby's rules apply.
type LobbyGuessRequest struct {
	LobbyID     string        `json:"lobby_id"`
	PlayerName  string        `json:"player_name"`
	Player      geo.Position  `json:"player"`
	Origin      *geo.Position `json:"origin,omitempty"`
	Destination *geo.Position `json:"destination,omitempty"`
}

// LobbyGuessResult is a scored lobby guess plus the state to broadcast.
type LobbyGuessResult struct {
	GuessOutcome
	Player    model.PlayerSummary   `json:"player"`
	Standings []repository.Standing `json:"standings"`
}

// CreateLobby opens a lobby with a fresh id and adds its first player.
func (s *Service) CreateLobby(ctx context.Context, playerName, connID string, rules model.GameRules) (LobbyState, error) {
	store, _, err := s.components()
	if err != nil {
		return LobbyState{}, err
	}
	name, err := sanitizeName(playerName)
	if err != nil {
		return LobbyState{}, err
	}

	now := s.now()
	lobby := model.Lobby{Rules: rules, CreatedAt: now, LastInteraction: now}
	for attempt := 0; ; attempt++ {
		if attempt == s.lobbyIDTries {
			return LobbyState{}, ErrLobbyIDsExhausted
		}
		lobby.ID = s.newLobbyID()
		err = store.CreateLobby(ctx, lobby)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrLobbyExists) {
			return LobbyState{}, fmt.Errorf("create lobby: %w", err)
		}
	}

	player := model.Player{
		ID:              model.PlayerID(name, lobby.ID),
		LobbyID:         lobby.ID,
		Name:            name,
		ConnectionID:    connID,
		GuessedFlights:  []string{},
		LastInteraction: now,
	}
	if err := store.PutPlayer(ctx, player); err != nil {
		return LobbyState{}, fmt.Errorf("create lobby player: %w", err)
	}
	metrics.UpdateActiveLobbies(store.Count(ctx))

	s.logger.Info(ctx, "lobby created",
		logger.String("lobby_id", lobby.ID),
		logger.String("player", name),
		logger.Bool("use_origin", rules.UseOrigin),
		logger.Bool("use_destination", rules.UseDestination),
	)
	return s.lobbyState(ctx, store, lobby, player)
}

// JoinLobby adds a player to an existing lobby. A player that already
// exists under the same name is re-attached to connID.
func (s *Service) JoinLobby(ctx context.Context, lobbyID, playerName, connID string) (LobbyState, error) {
	store, _, err := s.components()
	if err != nil {
		return LobbyState{}, err
	}
	name, err := sanitizeName(playerName)
	if err != nil {
		return LobbyState{}, err
	}
	lobby, err := s.getLobby(ctx, store, lobbyID)
	if err != nil {
		return LobbyState{}, err
	}

	now := s.now()
	id := model.PlayerID(name, lobby.ID)
	player, err := store.UpdatePlayer(ctx, id, func(p *model.Player) error {
		p.ConnectionID = connID
		p.LastInteraction = now
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		player = model.Player{
			ID:              id,
			LobbyID:         lobby.ID,
			Name:            name,
			ConnectionID:    connID,
			GuessedFlights:  []string{},
			LastInteraction: now,
		}
		if err := store.PutPlayer(ctx, player); err != nil {
			return LobbyState{}, fmt.Errorf("join lobby: %w", err)
		}
		s.logger.Info(ctx, "player joined lobby",
			logger.String("lobby_id", lobby.ID),
			logger.String("player", name),
		)
	case err != nil:
		return LobbyState{}, fmt.Errorf("join lobby: %w", err)
	default:
		s.logger.Debug(ctx, "player rejoined lobby",
			logger.String("lobby_id", lobby.ID),
			logger.String("player", name),
		)
	}

	if err := store.TouchLobby(ctx, lobby.ID, now); err != nil {
		return LobbyState{}, s.lobbyErr(err)
	}
	return s.lobbyState(ctx, store, lobby, player)
}

// LobbyGuess scores a guess under the lobby's rules. Points are added only
// the first time a player guesses a given flight.
func (s *Service) LobbyGuess(ctx context.Context, req LobbyGuessRequest) (LobbyGuessResult, error) { //nolint:gocritic // request travels by value
	store, q, err := s.components()
	if err != nil {
		return LobbyGuessResult{}, err
	}
	lobby, err := s.getLobby(ctx, store, req.LobbyID)
	if err != nil {
		return LobbyGuessResult{}, err
	}
	name := strings.TrimSpace(req.PlayerName)
	player, err := store.GetPlayer(ctx, model.PlayerID(name, lobby.ID))
	if err != nil {
		return LobbyGuessResult{}, s.playerErr(err)
	}

	if lobby.Rules.UseOrigin && req.Origin == nil {
		return LobbyGuessResult{}, fmt.Errorf("%w: missing origin airport guess", model.ErrInvalidInput)
	}
	if lobby.Rules.UseDestination && req.Destination == nil {
		return LobbyGuessResult{}, fmt.Errorf("%w: missing destination airport guess", model.ErrInvalidInput)
	}

	res, err := s.MakeGuess(ctx, GuessRequest{
		Player:      req.Player,
		Origin:      req.Origin,
		Destination: req.Destination,
		Rules:       lobby.Rules,
	})
	if err != nil {
		if isExpected(err) {
			s.logger.Debug(ctx, "lobby guess not scored",
				logger.String("lobby_id", lobby.ID),
				logger.String("player", player.Name),
				logger.Error(err),
			)
		}
		return LobbyGuessResult{}, err
	}

	flightID := res.Flight.ID
	key := guessKey(lobby, player.ID, flightID)
	duplicate := player.HasGuessed(flightID) || s.deduper.SeenAndRecord(ctx, key)

	now := s.now()
	updated, err := store.UpdatePlayer(ctx, player.ID, func(p *model.Player) error {
		p.LastInteraction = now
		if duplicate {
			return nil
		}
		if p.HasGuessed(flightID) {
			duplicate = true
			return nil
		}
		p.Points += res.Points.Total
		p.GuessedFlights = append(p.GuessedFlights, flightID)
		return nil
	})
	if err != nil {
		if !duplicate {
			s.deduper.Unrecord(ctx, key)
		}
		return LobbyGuessResult{}, s.playerErr(err)
	}
	if err := store.TouchLobby(ctx, lobby.ID, now); err != nil {
		return LobbyGuessResult{}, s.lobbyErr(err)
	}

	out := GuessOutcome{GuessResult: res, Status: model.StatusSuccess}
	switch {
	case duplicate:
		out.Status = model.StatusAlreadyGuessed
		metrics.RecordDuplicateGuess()
	case !s.scorer.PointsAvailable(res.Flight, lobby.Rules):
		out.Status = model.StatusPointsUnavailable
	}
	metrics.RecordGuess(string(out.Status), res.Points.Total)

	standings, err := store.Standings(ctx, lobby.ID)
	if err != nil {
		return LobbyGuessResult{}, s.lobbyErr(err)
	}

	s.publish(ctx, q, model.GuessEvent{
		LobbyID:    lobby.ID,
		PlayerName: updated.Name,
		FlightID:   flightID,
		Callsign:   res.Flight.Callsign,
		Player:     req.Player,
		Points:     res.Points,
		Status:     out.Status,
	})

	s.logger.Debug(ctx, "lobby guess scored",
		logger.String("lobby_id", lobby.ID),
		logger.String("player", updated.Name),
		logger.String("flight_id", flightID),
		logger.String("status", string(out.Status)),
		logger.Int("points", res.Points.Total),
	)
	return LobbyGuessResult{
		GuessOutcome: out,
		Player:       updated.Summary(),
		Standings:    standings,
	}, nil
}

// Disconnect detaches a player from its connection. The player keeps its
// points and can rejoin under the same name.
func (s *Service) Disconnect(ctx context.Context, lobbyID, playerName string) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	id := model.PlayerID(strings.TrimSpace(playerName), normalizeLobbyID(lobbyID))
	_, err = store.UpdatePlayer(ctx, id, func(p *model.Player) error {
		p.ConnectionID = ""
		return nil
	})
	if err != nil {
		return s.playerErr(err)
	}
	return nil
}

// LobbyPlayers returns the lobby scoreboard.
func (s *Service) LobbyPlayers(ctx context.Context, lobbyID string) ([]repository.Standing, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	lobby, err := s.getLobby(ctx, store, lobbyID)
	if err != nil {
		return nil, err
	}
	standings, err := store.Standings(ctx, lobby.ID)
	if err != nil {
		return nil, s.lobbyErr(err)
	}
	return standings, nil
}

func (s *Service) getLobby(ctx context.Context, store repository.Store, lobbyID string) (model.Lobby, error) {
	id := normalizeLobbyID(lobbyID)
	if !validLobbyID(id) {
		return model.Lobby{}, fmt.Errorf("%w: lobby id %q", ErrLobbyNotFound, lobbyID)
	}
	lobby, err := store.GetLobby(ctx, id)
	if err != nil {
		return model.Lobby{}, s.lobbyErr(err)
	}
	return lobby, nil
}

// guessKey scopes a dedupe key to one lobby instance, so a recreated lobby
// with a recycled id starts with a clean history.
func guessKey(lobby model.Lobby, playerID, flightID string) string { //nolint:gocritic // domain values travel by value
	return dedupe.GuessKey(playerID+"#"+strconv.FormatInt(lobby.CreatedAt.UnixNano(), 10), flightID)
}

func (s *Service) lobbyState(ctx context.Context, store repository.Store, lobby model.Lobby, player model.Player) (LobbyState, error) { //nolint:gocritic // domain values travel by value
	standings, err := store.Standings(ctx, lobby.ID)
	if err != nil {
		return LobbyState{}, s.lobbyErr(err)
	}
	return LobbyState{Lobby: lobby, Player: player.Summary(), Standings: standings}, nil
}

func (s *Service) lobbyErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrLobbyNotFound, err)
	}
	return err
}

func (s *Service) playerErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrPlayerNotFound, err)
	}
	return err
}

// sanitizeName trims a player name and checks its length and alphabet.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '\'' {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

func normalizeLobbyID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func validLobbyID(id string) bool {
	if len(id) != lobbyIDLength {
		return false
	}
	for _, r := range id {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// randomLobbyID returns lobbyIDLength random uppercase letters.
func randomLobbyID() string {
	var b [lobbyIDLength]byte
	for i := range b {
		b[i] = byte('A' + rand.IntN(26)) //nolint:gosec // lobby ids are not secrets
	}
	return string(b[:])
}

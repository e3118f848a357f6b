package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"hotseat/game"
	"hotseat/models"
	"hotseat/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 4
	codeAttempts = 10
)

type RoomService struct {
	store store.Store
	auth  *AuthService
	match *MatchService

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewRoomService(st store.Store, auth *AuthService, match *MatchService, rng *rand.Rand) *RoomService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RoomService{store: st, auth: auth, match: match, rng: rng}
}

type CreateRoomRequest struct {
	Settings *models.Settings `json:"settings"`
}

type CreateRoomResponse struct {
	Room    *models.Room `json:"room"`
	HostKey string       `json:"host_key"`
	Token   string       `json:"token"`
}

type HostLoginRequest struct {
	HostKey string `json:"host_key" binding:"required"`
}

type JoinRoomRequest struct {
	Name      string `json:"name" binding:"required,max=32"`
	Emoji     string `json:"emoji" binding:"max=16"`
	RejoinKey string `json:"rejoin_key"`
}

// JoinRoomResponse carries the rejoin key only on the first join. The seat
// can be reclaimed later only by presenting it.
type JoinRoomResponse struct {
	Player    *models.Player `json:"player"`
	Token     string         `json:"token"`
	RejoinKey string         `json:"rejoin_key,omitempty"`
	Rejoined  bool           `json:"rejoined"`
}

func (s *RoomService) generateCode() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[s.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode makes join codes case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom opens a lobby and returns the host key once; only its hash is
// stored.
func (s *RoomService) CreateRoom(ctx context.Context, req *CreateRoomRequest) (*CreateRoomResponse, error) {
	settings := models.DefaultSettings()
	if req != nil && req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	hostKey := uuid.NewString()
	hash, err := HashSecret(hostKey)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:             uuid.NewString(),
		HostKeyHash:    hash,
		Phase:          game.PhaseLobby,
		PhaseStartedAt: time.Now(),
		Settings:       settings,
	}
	for attempt := 0; ; attempt++ {
		room.Code = s.generateCode()
		err = s.store.CreateRoom(ctx, room)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrDuplicate) || attempt+1 >= codeAttempts {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
	}

	token, err := s.auth.IssueToken(room.ID, "", RoleHost)
	if err != nil {
		return nil, err
	}
	log.Printf("[RoomService] room %s: created with code %s", room.ID, room.Code)
	return &CreateRoomResponse{Room: room, HostKey: hostKey, Token: token}, nil
}

func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return s.store.GetRoomByCode(ctx, NormalizeCode(code))
}

// AuthenticateHost issues a new host token for the holder of the host key,
// so the shared screen can reconnect.
func (s *RoomService) AuthenticateHost(ctx context.Context, code, hostKey string) (string, *models.Room, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return "", nil, err
	}
	if !CheckSecret(room.HostKeyHash, hostKey) {
		return "", nil, fmt.Errorf("%w: wrong host key", game.ErrUnauthorized)
	}
	token, err := s.auth.IssueToken(room.ID, "", RoleHost)
	if err != nil {
		return "", nil, err
	}
	return token, room, nil
}

// JoinRoom seats a new player in a lobby. Joining with a name already in
// the room reclaims that seat in any phase, but only with the seat's rejoin
// key; otherwise the name is taken.
func (s *RoomService) JoinRoom(ctx context.Context, code string, req *JoinRoomRequest) (*JoinRoomResponse, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", game.ErrInvalidSettings)
	}

	player, err := s.store.GetPlayerByName(ctx, room.ID, name)
	switch {
	case err == nil:
		if req.RejoinKey == "" || !CheckSecret(player.RejoinKeyHash, req.RejoinKey) {
			return nil, game.ErrNameTaken
		}
		if err := s.store.SetPlayerConnected(ctx, player.ID, true); err != nil {
			return nil, err
		}
		player.Connected = true
		return s.seat(ctx, room, player, "")
	case !errors.Is(err, game.ErrNotFound):
		return nil, err
	}

	if room.Phase != game.PhaseLobby {
		return nil, fmt.Errorf("join in %s: %w", room.Phase, game.ErrInvalidPhase)
	}
	rejoinKey := uuid.NewString()
	hash, err := HashSecret(rejoinKey)
	if err != nil {
		return nil, err
	}
	player = &models.Player{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		Name:          name,
		Emoji:         req.Emoji,
		RejoinKeyHash: hash,
		Connected:     true,
		JoinedAt:      time.Now(),
	}
	if err := s.store.CreatePlayer(ctx, player); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, game.ErrNameTaken
		}
		return nil, err
	}
	return s.seat(ctx, room, player, rejoinKey)
}

// seat issues the player's token. An empty rejoinKey marks a rejoin.
func (s *RoomService) seat(ctx context.Context, room *models.Room, player *models.Player, rejoinKey string) (*JoinRoomResponse, error) {
	token, err := s.auth.IssueToken(room.ID, player.ID, RolePlayer)
	if err != nil {
		return nil, err
	}
	rejoined := rejoinKey == ""
	action := "joined"
	if rejoined {
		action = "rejoined"
	}
	s.match.Announce(ctx, room.ID, EventPlayerUpdate, gin.H{"action": action, "player": player})
	return &JoinRoomResponse{Player: player, Token: token, RejoinKey: rejoinKey, Rejoined: rejoined}, nil
}

// lobbyPlayer loads a player of a room that is still in LOBBY.
func (s *RoomService) lobbyPlayer(ctx context.Context, roomID, playerID string) (*models.Player, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player.RoomID != room.ID {
		return nil, fmt.Errorf("player %s in room %s: %w", playerID, roomID, game.ErrNotFound)
	}
	if room.Phase != game.PhaseLobby {
		return nil, fmt.Errorf("lobby action in %s: %w", room.Phase, game.ErrInvalidPhase)
	}
	return player, nil
}

func (s *RoomService) SetReady(ctx context.Context, roomID, playerID string, ready bool) (*models.Player, error) {
	player, err := s.lobbyPlayer(ctx, roomID, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetPlayerReady(ctx, playerID, ready); err != nil {
		return nil, err
	}
	player.Ready = ready
	s.match.Announce(ctx, roomID, EventPlayerUpdate, gin.H{"action": "ready", "player": player})
	return player, nil
}

// RemovePlayer is the host's way to clear a seat before the match starts.
func (s *RoomService) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	player, err := s.lobbyPlayer(ctx, roomID, playerID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlayer(ctx, playerID); err != nil {
		return err
	}
	s.match.Announce(ctx, roomID, EventPlayerUpdate, gin.H{"action": "left", "player": player})
	return nil
}

// SetConnected tracks socket presence. It never changes the match.
func (s *RoomService) SetConnected(ctx context.Context, roomID, playerID string, connected bool) error {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}
	if player.RoomID != roomID {
		return fmt.Errorf("player %s in room %s: %w", playerID, roomID, game.ErrNotFound)
	}
	if err := s.store.SetPlayerConnected(ctx, playerID, connected); err != nil {
		return err
	}
	player.Connected = connected
	action := "connected"
	if !connected {
		action = "disconnected"
	}
	s.match.Announce(ctx, roomID, EventPlayerUpdate, gin.H{"action": action, "player": player})
	return nil
}

// ValidateAccess checks that a token still maps to a seat in room. Removed
// players keep a valid signature but lose access.
func (s *RoomService) ValidateAccess(ctx context.Context, room *models.Room, claims *Claims) error {
	if claims.RoomID != room.ID {
		return fmt.Errorf("%w: token is for another room", game.ErrUnauthorized)
	}
	if claims.Role == RoleHost {
		return nil
	}
	player, err := s.store.GetPlayer(ctx, claims.PlayerID)
	if err != nil {
		return fmt.Errorf("%w: %v", game.ErrUnauthorized, err)
	}
	if player.RoomID != room.ID {
		return fmt.Errorf("%w: player %s not in room %s", game.ErrUnauthorized, claims.PlayerID, room.ID)
	}
	return nil
}

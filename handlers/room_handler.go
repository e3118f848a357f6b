package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"hotseat/game"
	"hotseat/middleware"
	"hotseat/models"
	"hotseat/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	rooms *services.RoomService
	match *services.MatchService
}

func NewRoomHandler(rooms *services.RoomService, match *services.MatchService) *RoomHandler {
	return &RoomHandler{rooms: rooms, match: match}
}

// authorizedRoom loads the room named by the :code parameter and checks the
// caller's token belongs to it.
func authorizedRoom(c *gin.Context, rooms *services.RoomService) (*models.Room, *services.Claims, bool) {
	room, err := rooms.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	claims := middleware.Claims(c)
	if claims == nil || claims.RoomID != room.ID {
		respondError(c, fmt.Errorf("%w: token is for another room", game.ErrUnauthorized))
		return nil, nil, false
	}
	return room, claims, true
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req services.CreateRoomRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.rooms.CreateRoom(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

func (h *RoomHandler) GetRoomState(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	state, err := h.match.RoomState(c.Request.Context(), room.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var req services.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.rooms.JoinRoom(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if res.Rejoined {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

func (h *RoomHandler) HostLogin(c *gin.Context) {
	var req services.HostLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, room, err := h.rooms.AuthenticateHost(c.Request.Context(), c.Param("code"), req.HostKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "room": room})
}

type readyRequest struct {
	Ready *bool `json:"ready" binding:"required"`
}

func (h *RoomHandler) SetReady(c *gin.Context) {
	room, claims, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}
	if claims.Role != services.RolePlayer {
		respondError(c, fmt.Errorf("%w: only players get ready", game.ErrUnauthorized))
		return
	}

	var req readyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	player, err := h.rooms.SetReady(c.Request.Context(), room.ID, claims.PlayerID, *req.Ready)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

func (h *RoomHandler) RemovePlayer(c *gin.Context) {
	room, _, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}

	if err := h.rooms.RemovePlayer(c.Request.Context(), room.ID, c.Param("playerID")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Player removed"})
}

package handlers

import (
	"fmt"
	"net/http"

	"hotseat/game"
	"hotseat/services"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	rooms *services.RoomService
	match *services.MatchService
}

func NewMatchHandler(rooms *services.RoomService, match *services.MatchService) *MatchHandler {
	return &MatchHandler{rooms: rooms, match: match}
}

type startMatchRequest struct {
	HotSeatPlayerID string `json:"hot_seat_player_id"`
}

type submitAnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	ChoiceIndex *int   `json:"choice_index" binding:"required"`
}

type submitVoteRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	Vote       string `json:"vote" binding:"required"`
}

type advanceRequest struct {
	ExpectedPhase string `json:"expected_phase" binding:"required"`
}

type resolveRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
}

func (h *MatchHandler) StartMatch(c *gin.Context) {
	room, _, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}

	var req startMatchRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	t, err := h.match.StartMatch(c.Request.Context(), room.ID, req.HotSeatPlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *MatchHandler) SubmitAnswer(c *gin.Context) {
	room, claims, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}
	if claims.Role != services.RolePlayer {
		respondError(c, game.ErrNotHotSeat)
		return
	}

	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	correct, err := h.match.SubmitAnswer(c.Request.Context(), room.ID, req.QuestionID, claims.PlayerID, *req.ChoiceIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_correct": correct})
}

func (h *MatchHandler) SubmitVote(c *gin.Context) {
	room, claims, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}
	if claims.Role != services.RolePlayer {
		respondError(c, game.ErrNotJudge)
		return
	}

	var req submitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	belief, err := game.ParseBelief(req.Vote)
	if err != nil {
		respondError(c, err)
		return
	}

	correctRead, err := h.match.SubmitVote(c.Request.Context(), room.ID, req.QuestionID, claims.PlayerID, belief)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"correct_read": correctRead})
}

// AdvancePhase lets any client of the room nudge it along when it sees a
// deadline pass. Calls for a phase the room already left are no-ops.
func (h *MatchHandler) AdvancePhase(c *gin.Context) {
	room, _, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}

	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expected, err := game.ParsePhase(req.ExpectedPhase)
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := h.match.AdvancePhase(c.Request.Context(), room.ID, expected)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *MatchHandler) ResolveRound(c *gin.Context) {
	room, _, ok := authorizedRoom(c, h.rooms)
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.match.ResolveRound(c.Request.Context(), room.ID, req.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *MatchHandler) GetRoundResult(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.match.GetRoundResult(c.Request.Context(), room.ID, c.Param("questionID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *MatchHandler) ListRounds(c *gin.Context) {
	room, err := h.rooms.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	rounds, err := h.match.ListRounds(c.Request.Context(), room.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rounds": rounds, "count": len(rounds)})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

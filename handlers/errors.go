package handlers

import (
	"errors"
	"log"
	"net/http"

	"hotseat/game"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrAlreadySubmitted),
		errors.Is(err, game.ErrNoAnswerYet),
		errors.Is(err, game.ErrInvalidPhase),
		errors.Is(err, game.ErrNameTaken),
		errors.Is(err, game.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, game.ErrNotHotSeat),
		errors.Is(err, game.ErrNotJudge),
		errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidChoice),
		errors.Is(err, game.ErrInvalidBelief),
		errors.Is(err, game.ErrUnknownPhase),
		errors.Is(err, game.ErrInvalidSettings):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

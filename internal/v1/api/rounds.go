package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func roundNumberParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid round number"})
		return 0, false
	}
	return n, true
}

func (s *Server) currentRound(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	rnd, err := s.Rounds.GetCurrentRound(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"round_number": rnd.RoundNumber,
		"phase":        rnd.Phase,
		"status":       rnd.Status,
	})
}

func (s *Server) getPair(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	playerID := types.PlayerIDType(c.Query("player_id"))
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "player_id is required"})
		return
	}

	pair, err := s.Rounds.GetPair(c.Request.Context(), roomID, roundNumber, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"opponent_id":           pair.OpponentID,
		"opponent_display_name": pair.OpponentDisplayName,
	})
}

type submitActionRequest struct {
	PlayerID types.PlayerIDType `json:"player_id"`
	Choice   types.Choice       `json:"choice"`
}

func (s *Server) submitAction(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	var req submitActionRequest
	if !bindJSON(c, &req) {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rounds.SubmitAction(c.Request.Context(), roomID, roundNumber, req.PlayerID, req.Choice); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) publishRound(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rounds.PublishRound(c.Request.Context(), roomID, roundNumber); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) skipRound(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rounds.SkipRound(c.Request.Context(), roomID, roundNumber); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getResult(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	playerID := types.PlayerIDType(c.Query("player_id"))
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "player_id is required"})
		return
	}

	result, err := s.Rounds.GetResult(c.Request.Context(), roomID, roundNumber, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"opponent_display_name": result.OpponentDisplayName,
		"your_choice":           result.YourChoice,
		"opponent_choice":       result.OpponentChoice,
		"your_payoff":           result.YourPayoff,
		"opponent_payoff":       result.OpponentPayoff,
	})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func (s *Server) assignIndicators(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Indicators.AssignIndicators(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getIndicator(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	playerID := types.PlayerIDType(c.Query("player_id"))
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "player_id is required"})
		return
	}

	ind, err := s.Indicators.GetIndicator(c.Request.Context(), roomID, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": ind.Symbol})
}

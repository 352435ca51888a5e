package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

type sendMessageRequest struct {
	SenderID types.PlayerIDType `json:"sender_id"`
	Content  string             `json:"content"`
}

func (s *Server) sendMessage(c *gin.Context) {
	roundNumber, ok := roundNumberParam(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Messages.SendMessage(c.Request.Context(), roomID, roundNumber, req.SenderID, req.Content); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getMessage(c *gin.Context) {
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

	msg, err := s.Messages.GetMessage(c.Request.Context(), roomID, roundNumber, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "no message found for this player and round"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": msg.Content, "from_opponent": true})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/store"
	"github.com/classroom-games/chicken-backend/internal/v1/types"
)

func (s *Server) createRoom(c *gin.Context) {
	room, hostPlayerID, err := s.Rooms.CreateRoom(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":        room.ID,
		"code":           room.Code,
		"host_player_id": hostPlayerID,
	})
}

func (s *Server) listRooms(c *gin.Context) {
	filter := store.RoomFilter{Limit: 50}
	if statusParam := c.Query("status"); statusParam != "" {
		status := types.RoomStatus(statusParam)
		filter.Status = &status
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid limit"})
			return
		}
		if limit > 200 {
			limit = 200
		}
		filter.Limit = limit
	}
	if offsetParam := c.Query("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid offset"})
			return
		}
		filter.Offset = offset
	}

	rooms, total, err := s.Rooms.ListRooms(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rooms":  rooms,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (s *Server) getRoomByCode(c *gin.Context) {
	room, playerCount, err := s.Rooms.GetRoomByCode(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room_id":       room.ID,
		"code":          room.Code,
		"status":        room.Status,
		"current_round": room.CurrentRound,
		"player_count":  playerCount,
	})
}

func (s *Server) deleteRoom(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rooms.DeleteRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "room_id": roomID})
}

type joinRequest struct {
	Nickname string `json:"nickname"`
}

func (s *Server) joinRoom(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req) {
		return
	}
	playerID, roomID, displayName, err := s.Rooms.Join(c.Request.Context(), c.Param("room_id"), req.Nickname)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"player_id":    playerID,
		"room_id":      roomID,
		"display_name": displayName,
	})
}

func (s *Server) startGame(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rooms.StartGame(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) nextRound(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	roundNumber, err := s.Rooms.NextRound(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "round_number": roundNumber})
}

func (s *Server) endGame(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	if err := s.Rooms.EndGame(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSummary(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))
	summary, err := s.Summaries.Build(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) getState(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("room_id"))

	var clientVersion int64
	if v := c.Query("version"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid version"})
			return
		}
		clientVersion = parsed
	}

	var playerID *types.PlayerIDType
	if p := c.Query("player_id"); p != "" {
		pid := types.PlayerIDType(p)
		playerID = &pid
	}

	snap, err := s.Snapshots.Build(c.Request.Context(), roomID, clientVersion, playerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Package api wires the domain services onto the HTTP interface described in
// spec.md §6. It is the only package that imports gin among the domain
// packages: RoomManager, RoundManager, MessageService, IndicatorService, and
// SnapshotBuilder all depend solely on store.DB and apierr, never on gin.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/classroom-games/chicken-backend/internal/v1/indicator"
	"github.com/classroom-games/chicken-backend/internal/v1/message"
	"github.com/classroom-games/chicken-backend/internal/v1/ratelimit"
	"github.com/classroom-games/chicken-backend/internal/v1/roommgr"
	"github.com/classroom-games/chicken-backend/internal/v1/round"
	"github.com/classroom-games/chicken-backend/internal/v1/snapshot"
	"github.com/classroom-games/chicken-backend/internal/v1/summary"
)

// Server holds every domain service the REST handlers call into.
type Server struct {
	Rooms      *roommgr.Manager
	Rounds     *round.Manager
	Messages   *message.Service
	Indicators *indicator.Service
	Snapshots  *snapshot.Builder
	Summaries  *summary.Builder
}

// RegisterRoutes mounts every endpoint from spec.md §6 under group, applying
// the endpoint-specific rate limiter where the teacher's rate limit policy
// distinguishes one (room creation/join, action submission, messaging).
func (s *Server) RegisterRoutes(group *gin.RouterGroup, rl *ratelimit.RateLimiter) {
	rooms := group.Group("/rooms")
	{
		rooms.POST("", rl.MiddlewareForEndpoint("rooms"), s.createRoom)
		rooms.GET("", s.listRooms)
		rooms.GET("/:room_id", s.getRoomByCode)
		rooms.DELETE("/:room_id", s.deleteRoom)
		rooms.POST("/:room_id/join", rl.MiddlewareForEndpoint("rooms"), s.joinRoom)
		rooms.POST("/:room_id/start", s.startGame)
		rooms.POST("/:room_id/rounds/next", s.nextRound)
		rooms.POST("/:room_id/end", s.endGame)
		rooms.GET("/:room_id/summary", s.getSummary)
		rooms.GET("/:room_id/state", s.getState)
		rooms.GET("/:room_id/rounds/current", s.currentRound)
		rooms.GET("/:room_id/rounds/:n/pair", s.getPair)
		rooms.POST("/:room_id/rounds/:n/action", rl.MiddlewareForEndpoint("actions"), s.submitAction)
		rooms.POST("/:room_id/rounds/:n/publish", s.publishRound)
		rooms.POST("/:room_id/rounds/:n/skip", s.skipRound)
		rooms.GET("/:room_id/rounds/:n/result", s.getResult)
		rooms.POST("/:room_id/rounds/:n/message", rl.MiddlewareForEndpoint("messages"), s.sendMessage)
		rooms.GET("/:room_id/rounds/:n/message", s.getMessage)
		rooms.POST("/:room_id/indicators/assign", s.assignIndicators)
		rooms.GET("/:room_id/indicator", s.getIndicator)
	}
}

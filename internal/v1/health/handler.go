package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/classroom-games/chicken-backend/internal/v1/logging"
	"github.com/classroom-games/chicken-backend/internal/v1/store"
)

// Handler manages health check endpoints.
type Handler struct {
	db          store.DB
	redisClient *redis.Client
}

// NewHandler creates a new health check handler. redisClient may be nil when
// rate limiting runs against the in-memory store instead of Redis.
func NewHandler(db store.DB, redisClient *redis.Client) *Handler {
	return &Handler{db: db, redisClient: redisClient}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint.
// GET /health/live
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles the readiness probe endpoint.
// GET /health/ready
// Returns 200 only if every critical dependency is healthy, 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	dbStatus := h.checkDatabase(ctx)
	checks["database"] = dbStatus
	if dbStatus != "healthy" {
		allHealthy = false
	}

	if h.redisClient != nil {
		redisStatus := h.checkRedis(ctx)
		checks["redis"] = redisStatus
		if redisStatus != "healthy" {
			allHealthy = false
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return "unhealthy"
	}
	if err := h.db.Ping(ctx); err != nil {
		logging.Error(ctx, "database health check failed", zap.Error(err))
		return "unhealthy"
	}
	return "healthy"
}

func (h *Handler) checkRedis(ctx context.Context) string {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		logging.Error(ctx, "redis health check failed", zap.Error(err))
		return "unhealthy"
	}
	return "healthy"
}

// MarshalJSON implements custom JSON marshaling for better formatting.
func (r ReadinessResponse) MarshalJSON() ([]byte, error) {
	type Alias ReadinessResponse
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(&r),
	})
}

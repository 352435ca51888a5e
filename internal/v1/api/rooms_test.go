package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classroom-games/chicken-backend/internal/v1/api"
	"github.com/classroom-games/chicken-backend/internal/v1/config"
	"github.com/classroom-games/chicken-backend/internal/v1/indicator"
	"github.com/classroom-games/chicken-backend/internal/v1/message"
	"github.com/classroom-games/chicken-backend/internal/v1/ratelimit"
	"github.com/classroom-games/chicken-backend/internal/v1/roommgr"
	"github.com/classroom-games/chicken-backend/internal/v1/round"
	"github.com/classroom-games/chicken-backend/internal/v1/snapshot"
	"github.com/classroom-games/chicken-backend/internal/v1/store/memstore"
	"github.com/classroom-games/chicken-backend/internal/v1/summary"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		RateLimitAPIGlobal:   "1000-M",
		RateLimitAPIRooms:    "1000-M",
		RateLimitAPIActions:  "1000-M",
		RateLimitAPIMessages: "1000-M",
	}
	rl, err := ratelimit.NewRateLimiter(cfg, nil)
	require.NoError(t, err)

	db := memstore.New()
	srv := &api.Server{
		Rooms:      roommgr.New(db),
		Rounds:     round.New(db),
		Messages:   message.New(db),
		Indicators: indicator.New(db),
		Snapshots:  snapshot.New(db),
		Summaries:  summary.New(db),
	}

	r := gin.New()
	srv.RegisterRoutes(r.Group("/api"), rl)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRoomAndJoin(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		RoomID       string `json:"room_id"`
		Code         string `json:"code"`
		HostPlayerID string `json:"host_player_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Code)

	w = doJSON(t, r, http.MethodPost, "/api/rooms/"+created.Code+"/join", map[string]string{"nickname": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var joined struct {
		PlayerID    string `json:"player_id"`
		DisplayName string `json:"display_name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	require.Equal(t, "Alice", joined.DisplayName)
}

func TestJoinRoom_InvalidNicknameReturns400(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/rooms", nil)
	var created struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPost, "/api/rooms/"+created.Code+"/join", map[string]string{"nickname": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "detail")
}

func TestGetRoomByCode_UnknownCodeReturns404(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/rooms/ZZZZZZ", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRooms_EmptyInitially(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Total)
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jokebattles/backend/internal/arena"
	"github.com/jokebattles/backend/internal/session"
)

const streamHeartbeatInterval = 25 * time.Second

var errMissingArenaService = errors.New("arena service dependency required")

// ArenaService is the surface the HTTP layer needs from the vote gateway.
type ArenaService interface {
	RequestBatch(ctx context.Context, topic string) (arena.BatchIssue, error)
	CastVote(ctx context.Context, token session.Token, displayIndex int) (arena.VoteOutcome, error)
	Scores(ctx context.Context) ([]arena.LeaderboardEntry, error)
}

type Dependencies struct {
	ArenaService ArenaService
	Realtime     *ScoreDispatcher
	Logger       *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.ArenaService == nil {
		return nil, errMissingArenaService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		arenaService: deps.ArenaService,
		realtime:     deps.Realtime,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.POST("/generate-jokes", handler.handleGenerateJokes)
	api.POST("/vote", handler.handleVote)
	api.GET("/scores", handler.handleScores)
	api.GET("/scores/stream", handler.handleScoresStream)

	return router, nil
}

type httpHandler struct {
	arenaService ArenaService
	realtime     *ScoreDispatcher
	logger       *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// generateRequestPayload carries the topic. Older clients also send a
// client-minted session_id; it is accepted but never trusted as a key.
type generateRequestPayload struct {
	Topic     string `json:"topic"`
	SessionID string `json:"session_id"`
}

type generateResponsePayload struct {
	SessionID string           `json:"session_id"`
	Jokes     []arena.JokeView `json:"jokes"`
}

func (h *httpHandler) handleGenerateJokes(c *gin.Context) {
	var request generateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	issue, err := h.arenaService.RequestBatch(c.Request.Context(), request.Topic)
	if err != nil {
		h.writeArenaError(c, err)
		return
	}

	c.JSON(http.StatusOK, generateResponsePayload{
		SessionID: string(issue.Token),
		Jokes:     issue.Jokes,
	})
}

type voteRequestPayload struct {
	SessionID string `json:"session_id"`
	JokeID    *int   `json:"joke_id"`
}

type voteResponsePayload struct {
	Model  string              `json:"model"`
	Icon   string              `json:"icon"`
	Scores []scoreEntryPayload `json:"scores"`
}

type scoreEntryPayload struct {
	Model string `json:"model"`
	Votes int64  `json:"votes"`
	Icon  string `json:"icon"`
}

func (h *httpHandler) handleVote(c *gin.Context) {
	var request voteRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.JokeID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, err := session.ParseToken(request.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	outcome, err := h.arenaService.CastVote(c.Request.Context(), token, *request.JokeID)
	if err != nil {
		h.writeArenaError(c, err)
		return
	}

	c.JSON(http.StatusOK, voteResponsePayload{
		Model:  outcome.Generator.String(),
		Icon:   outcome.Generator.Icon(),
		Scores: scoreEntries(outcome.Scores),
	})
}

func (h *httpHandler) handleScores(c *gin.Context) {
	entries, err := h.arenaService.Scores(c.Request.Context())
	if err != nil {
		h.writeArenaError(c, err)
		return
	}
	c.JSON(http.StatusOK, scoreEntries(entries))
}

func (h *httpHandler) handleScoresStream(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "realtime_unavailable"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	stream, cleanup := h.realtime.Subscribe(c.Request.Context())
	defer cleanup()

	// Every new subscriber gets the current standings before any deltas.
	if entries, err := h.arenaService.Scores(c.Request.Context()); err == nil {
		h.writeStreamEvent(c, RealtimeEventScoresChanged, scoreEntries(entries))
	} else {
		h.logger.Warn("failed to load initial leaderboard for stream", zap.Error(err))
	}

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case message, ok := <-stream:
			if !ok {
				return
			}
			h.writeStreamEvent(c, message.EventType, scoreEntries(message.Entries))
		case tick := <-heartbeat.C:
			h.writeStreamEvent(c, realtimeEventHeartbeat, gin.H{"ts": tick.UTC().Unix()})
		}
	}
}

func (h *httpHandler) writeStreamEvent(c *gin.Context, eventType string, payload any) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode stream payload", zap.Error(err))
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventType, encoded)
	c.Writer.Flush()
}

func (h *httpHandler) writeArenaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, arena.ErrGenerationUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation_unavailable"})
	case errors.Is(err, arena.ErrUnknownSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_session"})
	case errors.Is(err, arena.ErrInvalidSelection):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_selection"})
	case errors.Is(err, arena.ErrDuplicateVote):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_vote"})
	default:
		h.logger.Error("arena operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func scoreEntries(entries []arena.LeaderboardEntry) []scoreEntryPayload {
	payload := make([]scoreEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, scoreEntryPayload{
			Model: entry.Generator.String(),
			Votes: entry.Votes,
			Icon:  entry.Generator.Icon(),
		})
	}
	return payload
}

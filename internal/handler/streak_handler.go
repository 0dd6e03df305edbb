package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitrack/internal/model"
	"habitrack/internal/streak"
	"habitrack/pkg/logger"
)

type StreakService interface {
	ListCompletions(ctx context.Context, owner, habitID string, w streak.Window) ([]model.RangeRow, error)
	Scoreboard(ctx context.Context, owner string) ([]model.ScoreRow, error)
	RecordCompletion(ctx context.Context, owner, habitID string, completedOn time.Time) (model.Completion, error)
	DeleteCompletionsInRange(ctx context.Context, owner, habitID string, w streak.Window) (int64, error)
	Location() *time.Location
}

type StreakHandler struct {
	svc    StreakService
	logger *zap.Logger
}

func NewStreakHandler(svc StreakService, logger *zap.Logger) *StreakHandler {
	return &StreakHandler{svc: svc, logger: logger}
}

// ListCompletions GET /api/:uid/streaks?startDate&endDate[&hid]
func (h *StreakHandler) ListCompletions(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	owner := c.Param("uid")

	w, err := streak.ParseWindow(c.Query("startDate"), c.Query("endDate"), h.svc.Location())
	if err != nil {
		respondError(c, log, "ListCompletions", err)
		return
	}

	rows, err := h.svc.ListCompletions(ctx, owner, c.Query("hid"), w)
	if err != nil {
		respondError(c, log, "ListCompletions", err)
		return
	}

	log.Info("ListCompletions: success",
		zap.String("owner_id", owner),
		zap.Int("habit_count", len(rows)),
	)
	c.JSON(http.StatusOK, rows)
}

// Scoreboard GET /api/:uid/streaks/scoreboard
func (h *StreakHandler) Scoreboard(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	owner := c.Param("uid")

	rows, err := h.svc.Scoreboard(ctx, owner)
	if err != nil {
		respondError(c, log, "Scoreboard", err)
		return
	}

	log.Info("Scoreboard: success",
		zap.String("owner_id", owner),
		zap.Int("habit_count", len(rows)),
	)
	c.JSON(http.StatusOK, rows)
}

type recordCompletionRequest struct {
	HabitID     string `json:"hid"`
	CompletedOn string `json:"completed_on"`
}

// RecordCompletion POST /api/:uid/streaks
func (h *StreakHandler) RecordCompletion(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	owner := c.Param("uid")

	var req recordCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("RecordCompletion: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	completedOn, err := streak.ParseInstant("completed_on", req.CompletedOn, h.svc.Location())
	if err != nil {
		respondError(c, log, "RecordCompletion", err)
		return
	}

	completion, err := h.svc.RecordCompletion(ctx, owner, req.HabitID, completedOn)
	if err != nil {
		respondError(c, log, "RecordCompletion", err)
		return
	}

	c.JSON(http.StatusCreated, completion)
}

// DeleteCompletions DELETE /api/:uid/streaks/:hid?startDate&endDate
func (h *StreakHandler) DeleteCompletions(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)
	owner := c.Param("uid")
	habitID := c.Param("hid")

	w, err := streak.ParseWindow(c.Query("startDate"), c.Query("endDate"), h.svc.Location())
	if err != nil {
		respondError(c, log, "DeleteCompletions", err)
		return
	}

	n, err := h.svc.DeleteCompletionsInRange(ctx, owner, habitID, w)
	if err != nil {
		respondError(c, log, "DeleteCompletions", err)
		return
	}
	if n == 0 {
		log.Info("DeleteCompletions: nothing deleted",
			zap.String("owner_id", owner),
			zap.String("habit_id", habitID),
		)
		c.JSON(http.StatusConflict, gin.H{"error": "no completions in range", "deleted": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

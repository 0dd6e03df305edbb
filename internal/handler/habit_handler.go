package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habitrack/internal/model"
	"habitrack/pkg/logger"
)

type HabitService interface {
	Create(ctx context.Context, owner, title string) (model.Habit, error)
	Get(ctx context.Context, owner, id string) (model.Habit, error)
	List(ctx context.Context, owner string) ([]model.Habit, error)
	Rename(ctx context.Context, owner, id, title string) (model.Habit, error)
	Delete(ctx context.Context, owner, id string) (int64, error)
}

type HabitHandler struct {
	svc    HabitService
	logger *zap.Logger
}

func NewHabitHandler(svc HabitService, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{svc: svc, logger: logger}
}

func (h *HabitHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	habits, err := h.svc.List(ctx, c.Param("uid"))
	if err != nil {
		respondError(c, logger.WithTrace(ctx, h.logger), "ListHabits", err)
		return
	}
	c.JSON(http.StatusOK, habits)
}

func (h *HabitHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	habit, err := h.svc.Get(ctx, c.Param("uid"), c.Param("id"))
	if err != nil {
		respondError(c, logger.WithTrace(ctx, h.logger), "GetHabit", err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

type habitRequest struct {
	Title string `json:"title"`
}

func (h *HabitHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("CreateHabit: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.svc.Create(ctx, c.Param("uid"), req.Title)
	if err != nil {
		respondError(c, log, "CreateHabit", err)
		return
	}
	c.JSON(http.StatusCreated, habit)
}

func (h *HabitHandler) Rename(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("RenameHabit: invalid body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.svc.Rename(ctx, c.Param("uid"), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, log, "RenameHabit", err)
		return
	}
	c.JSON(http.StatusOK, habit)
}

// Delete removes the habit and every completion recorded for it.
func (h *HabitHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	purged, err := h.svc.Delete(ctx, c.Param("uid"), c.Param("id"))
	if err != nil {
		respondError(c, logger.WithTrace(ctx, h.logger), "DeleteHabit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "purged_completions": purged})
}

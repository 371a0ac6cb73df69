package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyboard-server/internal/model"
	"storyboard-server/internal/session"
)

// Handler wires the session manager into the HTTP API.
type Handler struct {
	logger  *zap.Logger
	manager *session.Manager
	hub     *Hub
}

// New creates the HTTP handler.
func New(logger *zap.Logger, manager *session.Manager, hub *Hub) *Handler {
	return &Handler{logger: logger, manager: manager, hub: hub}
}

// RegisterRoutes attaches all API routes to the engine.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/sessions", h.createSession)

		s := api.Group("/sessions/:id")
		{
			s.GET("", h.getSession)
			s.DELETE("", h.deleteSession)
			s.PUT("/song", h.updateSong)
			s.PUT("/lyrics", h.updateLyrics)
			s.PUT("/custom-prompt", h.updateCustomPrompt)
			s.PUT("/video-config", h.updateVideoConfig)
			s.POST("/lyrics/lookup", h.lookupLyrics)
			s.POST("/storyboard", h.generateStoryboard)
			s.POST("/videos/:slot", h.generateVideo)
			s.POST("/reset", h.resetSession)
		}
	}

	router.GET("/ws/sessions/:id", h.serveWS)
}

type songRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

type lyricsRequest struct {
	Text string `json:"text"`
}

type customPromptRequest struct {
	Prompt string `json:"prompt"`
}

type videoConfigRequest struct {
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
}

type generateVideoRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) createSession(c *gin.Context) {
	id := h.manager.Create()
	ctrl, err := h.manager.Get(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "state": ctrl.Snapshot()})
}

func (h *Handler) getSession(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.manager.Remove(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) updateSong(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req songRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctrl.UpdateIdentity(model.SongIdentity{Title: req.Title, Artist: req.Artist})
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) updateLyrics(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req lyricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctrl.SetLyrics(req.Text)
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) updateCustomPrompt(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req customPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctrl.SetCustomPrompt(req.Prompt)
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) updateVideoConfig(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req videoConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AspectRatio != "" {
		if err := ctrl.SetAspectRatio(model.AspectRatio(req.AspectRatio)); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if req.Resolution != "" {
		if err := ctrl.SetResolution(model.Resolution(req.Resolution)); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *Handler) lookupLyrics(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := ctrl.LookupLyrics(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

func (h *Handler) generateStoryboard(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := ctrl.GenerateStoryboard(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

func (h *Handler) generateVideo(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	slot := model.VideoSlot(c.Param("slot"))

	// The body is optional; an absent or empty prompt falls back to the
	// stored prompt for the slot.
	var req generateVideoRequest
	_ = c.ShouldBindJSON(&req)
	prompt := req.Prompt
	if prompt == "" {
		snap := ctrl.Snapshot()
		if slot == model.VideoSlotCustom {
			prompt = snap.CustomVideoPrompt
		} else {
			prompt = snap.OverallVideoPrompt
		}
	}

	if err := ctrl.GenerateVideo(slot, prompt); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, ctrl.Snapshot())
}

func (h *Handler) resetSession(c *gin.Context) {
	ctrl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctrl.Reset()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// respondError maps domain errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrTaskBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

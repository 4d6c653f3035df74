package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/engine"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/scout/sources"
	"github.com/pressroomhq/pressroom-backend/internal/workbench"
)

type StoryHandler struct {
	log       *logger.Logger
	workbench workbench.Service
	engine    engine.Service
}

func NewStoryHandler(log *logger.Logger, workbenchSvc workbench.Service, engineSvc engine.Service) *StoryHandler {
	return &StoryHandler{
		log:       log.With("handler", "StoryHandler"),
		workbench: workbenchSvc,
		engine:    engineSvc,
	}
}

func (h *StoryHandler) Create(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req workbench.CreateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	view, err := h.workbench.Create(c.Request.Context(), orgID, req)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *StoryHandler) List(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.workbench.List(c.Request.Context(), orgID, types.StoryStatus(c.Query("status")))
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"stories": list})
}

func (h *StoryHandler) Get(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	view, err := h.workbench.Get(c.Request.Context(), orgID, storyID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, view)
}

func (h *StoryHandler) Update(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	var req workbench.UpdateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	story, err := h.workbench.Update(c.Request.Context(), orgID, storyID, req)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, story)
}

func (h *StoryHandler) Delete(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	if err := h.workbench.Delete(c.Request.Context(), orgID, storyID); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": storyID})
}

type addSignalRequest struct {
	SignalID    uuid.UUID `json:"signal_id" binding:"required"`
	EditorNotes string    `json:"editor_notes"`
}

func (h *StoryHandler) AddSignal(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	var req addSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	attached, err := h.workbench.AddSignal(c.Request.Context(), orgID, storyID, req.SignalID, req.EditorNotes)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, attached)
}

func (h *StoryHandler) RemoveSignal(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "signal_id")
	if !ok {
		return
	}
	if err := h.workbench.RemoveSignal(c.Request.Context(), orgID, storyID, signalID); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"detached": signalID})
}

type signalNotesRequest struct {
	EditorNotes string `json:"editor_notes"`
}

func (h *StoryHandler) UpdateSignalNotes(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "signal_id")
	if !ok {
		return
	}
	var req signalNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.workbench.UpdateSignalNotes(c.Request.Context(), orgID, storyID, signalID, req.EditorNotes); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"updated": signalID})
}

type discoverRequest struct {
	Mode string `json:"mode"`
}

func (h *StoryHandler) Discover(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.workbench.Discover(c.Request.Context(), orgID, storyID, req.Mode)
	if err != nil {
		h.log.Error("discover failed", "story_id", storyID, "mode", req.Mode, "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *StoryHandler) AcceptCandidate(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	var candidate sources.Candidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	attached, err := h.workbench.AcceptCandidate(c.Request.Context(), orgID, storyID, &candidate)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, attached)
}

type storyGenerateRequest struct {
	Channels []string `json:"channels"`
	PostAs   string   `json:"post_as"`
}

func (h *StoryHandler) Generate(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	storyID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	var req storyGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	channels := make([]types.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channel, err := types.ParseChannel(raw)
		if err != nil {
			RespondMapped(c, err)
			return
		}
		channels = append(channels, channel)
	}
	result, err := h.engine.Generate(c.Request.Context(), engine.GenerateRequest{
		OrgID:    orgID,
		StoryID:  &storyID,
		Channels: channels,
		Author:   req.PostAs,
	})
	if err != nil {
		h.log.Error("story generation failed", "story_id", storyID, "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, result)
}

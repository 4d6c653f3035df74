package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	contentrepo "github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/engine"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/publish"
	"github.com/pressroomhq/pressroom-backend/internal/queue"
)

type ContentHandler struct {
	log       *logger.Logger
	queue     queue.Service
	engine    engine.Service
	publisher publish.Service
}

func NewContentHandler(log *logger.Logger, queueSvc queue.Service, engineSvc engine.Service, publisher publish.Service) *ContentHandler {
	return &ContentHandler{
		log:       log.With("handler", "ContentHandler"),
		queue:     queueSvc,
		engine:    engineSvc,
		publisher: publisher,
	}
}

func (h *ContentHandler) List(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	filter := contentrepo.ListFilter{
		Status: types.ContentStatus(c.Query("status")),
		Limit:  100,
	}
	if raw := c.Query("channel"); raw != "" {
		channel, err := types.ParseChannel(raw)
		if err != nil {
			RespondMapped(c, err)
			return
		}
		filter.Channel = channel
	}
	if raw := c.Query("story_id"); raw != "" {
		storyID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		filter.StoryID = &storyID
	}
	list, err := h.queue.List(c.Request.Context(), orgID, filter)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"content": list})
}

func (h *ContentHandler) Get(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	row, err := h.queue.Get(c.Request.Context(), orgID, contentID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, row)
}

type contentActionRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *ContentHandler) Action(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	var req contentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var (
		row *types.Content
		err error
	)
	switch req.Action {
	case "approve":
		row, err = h.queue.Approve(c.Request.Context(), orgID, contentID)
	case "spike":
		row, err = h.queue.Spike(c.Request.Context(), orgID, contentID)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_action", nil)
		return
	}
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, row)
}

type contentEditRequest struct {
	Headline *string `json:"headline"`
	Body     *string `json:"body"`
}

func (h *ContentHandler) Edit(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	var req contentEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	row, err := h.queue.Edit(c.Request.Context(), orgID, contentID, queue.EditRequest{
		Headline: req.Headline,
		Body:     req.Body,
	})
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, row)
}

type regenerateRequest struct {
	Feedback string `json:"feedback"`
}

func (h *ContentHandler) Regenerate(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	row, err := h.engine.Regenerate(c.Request.Context(), orgID, contentID, req.Feedback)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, row)
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

func (h *ContentHandler) Schedule(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	row, err := h.queue.Schedule(c.Request.Context(), orgID, contentID, req.ScheduledAt)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, row)
}

func (h *ContentHandler) Publish(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	attempt, err := h.publisher.Publish(c.Request.Context(), orgID, contentID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, attempt)
}

func (h *ContentHandler) Delete(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contentID, ok := pathUUID(c, "cid")
	if !ok {
		return
	}
	if err := h.queue.Delete(c.Request.Context(), orgID, contentID); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": contentID})
}

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
	"github.com/pressroomhq/pressroom-backend/internal/scout"
)

type PipelineHandler struct {
	log    *logger.Logger
	scout  scout.Service
	engine engine.Service
}

func NewPipelineHandler(log *logger.Logger, scoutSvc scout.Service, engineSvc engine.Service) *PipelineHandler {
	return &PipelineHandler{
		log:    log.With("handler", "PipelineHandler"),
		scout:  scoutSvc,
		engine: engineSvc,
	}
}

// Scout runs every configured source adapter for the org and reports what
// landed on the wire.
func (h *PipelineHandler) Scout(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.scout.Run(c.Request.Context(), orgID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, result)
}

type generateRequest struct {
	StoryID   *uuid.UUID  `json:"story_id"`
	SignalIDs []uuid.UUID `json:"signal_ids"`
	Channels  []string    `json:"channels"`
	PostAs    string      `json:"post_as"`
}

func (req *generateRequest) parseChannels() ([]types.Channel, error) {
	channels := make([]types.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channel, err := types.ParseChannel(raw)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

func (h *PipelineHandler) Generate(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	channels, err := req.parseChannels()
	if err != nil {
		RespondMapped(c, err)
		return
	}
	result, err := h.engine.Generate(c.Request.Context(), engine.GenerateRequest{
		OrgID:     orgID,
		StoryID:   req.StoryID,
		SignalIDs: req.SignalIDs,
		Channels:  channels,
		Author:    req.PostAs,
	})
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, result)
}

// Run chains a scout sweep into generation: whatever fresh signals the sweep
// lands become the generation batch. An empty sweep short-circuits without
// touching the engine.
func (h *PipelineHandler) Run(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	channels, err := req.parseChannels()
	if err != nil {
		RespondMapped(c, err)
		return
	}

	scoutResult, err := h.scout.Run(c.Request.Context(), orgID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	if len(scoutResult.Signals) == 0 {
		RespondOK(c, gin.H{"scout": scoutResult, "generation": nil})
		return
	}

	signalIDs := make([]uuid.UUID, 0, len(scoutResult.Signals))
	for _, sig := range scoutResult.Signals {
		signalIDs = append(signalIDs, sig.ID)
	}
	genResult, err := h.engine.Generate(c.Request.Context(), engine.GenerateRequest{
		OrgID:     orgID,
		SignalIDs: signalIDs,
		Channels:  channels,
		Author:    req.PostAs,
	})
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"scout": scoutResult, "generation": genResult})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	repossignals "github.com/pressroomhq/pressroom-backend/internal/data/repos/signals"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/engine"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type SignalHandler struct {
	log        *logger.Logger
	signalRepo repos.SignalRepo
	engine     engine.Service
}

func NewSignalHandler(log *logger.Logger, signalRepo repos.SignalRepo, engineSvc engine.Service) *SignalHandler {
	return &SignalHandler{
		log:        log.With("handler", "SignalHandler"),
		signalRepo: signalRepo,
		engine:     engineSvc,
	}
}

func (h *SignalHandler) List(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	filter := repossignals.ListFilter{Limit: 50}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := c.Query("type"); raw != "" {
		sigType, err := types.ParseSignalType(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_argument", err)
			return
		}
		filter.Type = sigType
	}
	if raw := c.Query("prioritized"); raw != "" {
		prioritized := raw == "true"
		filter.Prioritized = &prioritized
	}

	list, err := h.signalRepo.List(dbctx.New(c.Request.Context()), orgID, filter)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"signals": list})
}

func (h *SignalHandler) Stats(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	stats, err := h.signalRepo.Stats(dbctx.New(c.Request.Context()), orgID, 100)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

func (h *SignalHandler) Get(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	sig, err := h.signalRepo.GetByID(dbctx.New(c.Request.Context()), orgID, signalID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, sig)
}

// Prioritize toggles the priority flag; prioritized signals are weighted
// higher when generation selects material.
func (h *SignalHandler) Prioritize(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	dbc := dbctx.New(c.Request.Context())
	sig, err := h.signalRepo.GetByID(dbc, orgID, signalID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	if err := h.signalRepo.SetPrioritized(dbc, orgID, signalID, !sig.Prioritized); err != nil {
		RespondMapped(c, err)
		return
	}
	sig.Prioritized = !sig.Prioritized
	RespondOK(c, sig)
}

func (h *SignalHandler) DigDeeper(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	sig, err := h.engine.DigDeeper(c.Request.Context(), orgID, signalID)
	if err != nil {
		h.log.Error("dig deeper failed", "signal_id", signalID, "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, sig)
}

func (h *SignalHandler) Delete(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	signalID, ok := pathUUID(c, "sid")
	if !ok {
		return
	}
	if err := h.signalRepo.Delete(dbctx.New(c.Request.Context()), orgID, signalID); err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": signalID})
}

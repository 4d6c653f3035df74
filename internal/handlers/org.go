package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type OrgHandler struct {
	log     *logger.Logger
	orgRepo repos.OrgRepo
}

func NewOrgHandler(log *logger.Logger, orgRepo repos.OrgRepo) *OrgHandler {
	return &OrgHandler{
		log:     log.With("handler", "OrgHandler"),
		orgRepo: orgRepo,
	}
}

type createOrgRequest struct {
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain"`
}

func (h *OrgHandler) Create(c *gin.Context) {
	var req createOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	org, err := h.orgRepo.Create(dbctx.New(c.Request.Context()), &types.Org{
		ID:     uuid.New(),
		Name:   strings.TrimSpace(req.Name),
		Domain: strings.TrimSpace(req.Domain),
	})
	if err != nil {
		h.log.Error("create org failed", "error", err)
		RespondMapped(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

func (h *OrgHandler) List(c *gin.Context) {
	orgList, err := h.orgRepo.List(dbctx.New(c.Request.Context()))
	if err != nil {
		h.log.Error("list orgs failed", "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"orgs": orgList})
}

func (h *OrgHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	org, err := h.orgRepo.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, org)
}

// Delete removes the org and everything it owns: signals, stories, content,
// briefs, voice profile, settings.
func (h *OrgHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.orgRepo.Delete(dbctx.New(c.Request.Context()), id); err != nil {
		h.log.Error("delete org failed", "org_id", id, "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": id})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type SettingsHandler struct {
	log         *logger.Logger
	settingRepo repos.SettingRepo
	voiceRepo   repos.VoiceRepo
}

func NewSettingsHandler(log *logger.Logger, settingRepo repos.SettingRepo, voiceRepo repos.VoiceRepo) *SettingsHandler {
	return &SettingsHandler{
		log:         log.With("handler", "SettingsHandler"),
		settingRepo: settingRepo,
		voiceRepo:   voiceRepo,
	}
}

// Get returns the org's effective settings: account-level values merged with
// org-level overrides.
func (h *SettingsHandler) Get(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	merged, err := h.settingRepo.Resolve(dbctx.New(c.Request.Context()), orgID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"settings": merged})
}

// Put upserts org-level settings; a null value deletes the org override so
// the account-level value shows through again.
func (h *SettingsHandler) Put(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req map[string]*string
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	dbc := dbctx.New(c.Request.Context())
	for key, value := range req {
		var err error
		if value == nil {
			err = h.settingRepo.Delete(dbc, &orgID, key)
		} else {
			err = h.settingRepo.Set(dbc, &orgID, key, *value)
		}
		if err != nil {
			h.log.Error("write setting failed", "org_id", orgID, "key", key, "error", err)
			RespondMapped(c, err)
			return
		}
	}
	merged, err := h.settingRepo.Resolve(dbc, orgID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"settings": merged})
}

func (h *SettingsHandler) GetVoice(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	profile, err := h.voiceRepo.GetByOrg(dbctx.New(c.Request.Context()), orgID)
	if err != nil {
		RespondMapped(c, err)
		return
	}
	if profile == nil {
		RespondOK(c, gin.H{"voice": nil})
		return
	}
	RespondOK(c, gin.H{"voice": profile})
}

func (h *SettingsHandler) PutVoice(c *gin.Context) {
	orgID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var profile types.VoiceProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	profile.OrgID = &orgID
	saved, err := h.voiceRepo.Upsert(dbctx.New(c.Request.Context()), &profile)
	if err != nil {
		h.log.Error("upsert voice failed", "org_id", orgID, "error", err)
		RespondMapped(c, err)
		return
	}
	RespondOK(c, gin.H{"voice": saved})
}

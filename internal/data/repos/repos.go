package repos

import (
	"gorm.io/gorm"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/orgs"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/signals"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/stories"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type OrgRepo = orgs.OrgRepo
type SettingRepo = orgs.SettingRepo
type VoiceRepo = orgs.VoiceRepo

type SignalRepo = signals.SignalRepo

type StoryRepo = stories.StoryRepo

type ContentRepo = content.ContentRepo
type BriefRepo = content.BriefRepo

func NewOrgRepo(db *gorm.DB, baseLog *logger.Logger) OrgRepo { return orgs.NewOrgRepo(db, baseLog) }
func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return orgs.NewSettingRepo(db, baseLog)
}
func NewVoiceRepo(db *gorm.DB, baseLog *logger.Logger) VoiceRepo {
	return orgs.NewVoiceRepo(db, baseLog)
}

func NewSignalRepo(db *gorm.DB, baseLog *logger.Logger) SignalRepo {
	return signals.NewSignalRepo(db, baseLog)
}

func NewStoryRepo(db *gorm.DB, baseLog *logger.Logger) StoryRepo {
	return stories.NewStoryRepo(db, baseLog)
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return content.NewContentRepo(db, baseLog)
}
func NewBriefRepo(db *gorm.DB, baseLog *logger.Logger) BriefRepo {
	return content.NewBriefRepo(db, baseLog)
}

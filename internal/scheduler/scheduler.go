// Package scheduler runs the background tick: publishing content whose
// scheduled time has passed, and running the full scout-to-generate pipeline
// for orgs that opted into automatic runs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	"github.com/pressroomhq/pressroom-backend/internal/engine"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/publish"
	"github.com/pressroomhq/pressroom-backend/internal/scout"
)

const autoRunKey = "scheduler.auto_run"

type Scheduler struct {
	log         *logger.Logger
	interval    time.Duration
	orgRepo     repos.OrgRepo
	settingRepo repos.SettingRepo
	publisher   publish.Service
	scout       scout.Service
	engine      engine.Service
}

func New(
	baseLog *logger.Logger,
	interval time.Duration,
	orgRepo repos.OrgRepo,
	settingRepo repos.SettingRepo,
	publisher publish.Service,
	scoutSvc scout.Service,
	engineSvc engine.Service,
) *Scheduler {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scheduler{
		log:         baseLog.With("component", "Scheduler"),
		interval:    interval,
		orgRepo:     orgRepo,
		settingRepo: settingRepo,
		publisher:   publisher,
		scout:       scoutSvc,
		engine:      engineSvc,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.log.Info("scheduler started", "interval", s.interval.String())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Tick is one scheduler pass. Publishing runs before auto-runs so freshly
// generated drafts never publish in the same pass they were created.
func (s *Scheduler) Tick(ctx context.Context) {
	s.publishDue(ctx)
	s.autoRun(ctx)
}

func (s *Scheduler) publishDue(ctx context.Context) {
	attempts, err := s.publisher.PublishDue(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("publish sweep failed", "error", err.Error())
		return
	}
	for _, attempt := range attempts {
		if attempt.Published {
			s.log.Info("scheduled publish", "content_id", attempt.ContentID, "channel", attempt.Channel)
		} else {
			s.log.Warn("scheduled publish failed, will retry next tick", "content_id", attempt.ContentID, "channel", attempt.Channel, "error", attempt.Error)
		}
	}
}

func (s *Scheduler) autoRun(ctx context.Context) {
	orgList, err := s.orgRepo.List(dbctx.New(ctx))
	if err != nil {
		s.log.Error("list orgs failed", "error", err.Error())
		return
	}
	for _, org := range orgList {
		if err := s.runOrg(ctx, org.ID); err != nil {
			s.log.Error("auto run failed", "org_id", org.ID, "error", err.Error())
		}
	}
}

// runOrg isolates one org's pipeline: a panic or error here never stops the
// sweep over the remaining orgs.
func (s *Scheduler) runOrg(ctx context.Context, orgID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	settings, err := s.settingRepo.Resolve(dbctx.New(ctx), orgID)
	if err != nil {
		return err
	}
	if settings[autoRunKey] != "true" {
		return nil
	}

	run, err := s.scout.Run(ctx, orgID)
	if err != nil {
		return fmt.Errorf("scout: %w", err)
	}
	if len(run.Signals) == 0 {
		s.log.Info("auto run found nothing new", "org_id", orgID, "raw", run.RawCount, "duplicates", run.Duplicates)
		return nil
	}

	ids := make([]uuid.UUID, len(run.Signals))
	for i, sig := range run.Signals {
		ids[i] = sig.ID
	}
	result, err := s.engine.Generate(ctx, engine.GenerateRequest{OrgID: orgID, SignalIDs: ids})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	s.log.Info("auto run complete", "org_id", orgID, "signals", len(ids), "drafts", len(result.Content), "failures", len(result.Failures))
	return nil
}

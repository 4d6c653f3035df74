// Package engine turns a curated signal set into channel-specific drafts.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/extract"
	"github.com/pressroomhq/pressroom-backend/internal/humanize"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/anthropic"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

// GenerateRequest is one generation batch: a story or an ad-hoc signal set,
// fanned out across the requested channels.
type GenerateRequest struct {
	OrgID     uuid.UUID
	StoryID   *uuid.UUID
	SignalIDs []uuid.UUID
	Channels  []types.Channel
	// Author is the "post as" persona; empty or "company" means the company
	// account voice.
	Author string
}

// ChannelFailure reports a channel that was requested but produced no draft.
type ChannelFailure struct {
	Channel types.Channel `json:"channel"`
	Error   string        `json:"error"`
}

type GenerateResult struct {
	Content  []*types.Content `json:"content"`
	Failures []ChannelFailure `json:"failures,omitempty"`
}

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// Regenerate re-runs one draft's channel with optional editor feedback,
	// replacing headline/body in place. Id, channel, and provenance persist.
	Regenerate(ctx context.Context, orgID, contentID uuid.UUID, feedback string) (*types.Content, error)
	// DigDeeper fetches a signal's source page, extracts the article, and
	// appends an LLM-summarized deep-dive section to the signal body.
	DigDeeper(ctx context.Context, orgID, signalID uuid.UUID) (*types.Signal, error)
}

type service struct {
	log         *logger.Logger
	signalRepo  repos.SignalRepo
	storyRepo   repos.StoryRepo
	contentRepo repos.ContentRepo
	briefRepo   repos.BriefRepo
	voiceRepo   repos.VoiceRepo
	llm         anthropic.Client
	humanizer   humanize.Transformer
	extractor   extract.Extractor
}

func NewService(
	baseLog *logger.Logger,
	signalRepo repos.SignalRepo,
	storyRepo repos.StoryRepo,
	contentRepo repos.ContentRepo,
	briefRepo repos.BriefRepo,
	voiceRepo repos.VoiceRepo,
	llm anthropic.Client,
	humanizer humanize.Transformer,
	extractor extract.Extractor,
) Service {
	return &service{
		log:         baseLog.With("service", "EngineService"),
		signalRepo:  signalRepo,
		storyRepo:   storyRepo,
		contentRepo: contentRepo,
		briefRepo:   briefRepo,
		voiceRepo:   voiceRepo,
		llm:         llm,
		humanizer:   humanizer,
		extractor:   extractor,
	}
}

var defaultChannels = []types.Channel{
	types.ChannelLinkedIn,
	types.ChannelXThread,
	types.ChannelReleaseEmail,
	types.ChannelBlog,
}

func (s *service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	// A missing credential is fatal for the whole batch; fail before any
	// signal loading or story state changes.
	if !s.llm.Configured() {
		return nil, fmt.Errorf("generate: %w: text-completion credentials missing", pkgerrors.ErrNotConfigured)
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = defaultChannels
	}
	for _, ch := range channels {
		if _, err := types.ParseChannel(string(ch)); err != nil {
			return nil, fmt.Errorf("generate: %w: %v", pkgerrors.ErrInvalidArgument, err)
		}
	}

	sigs, storyAngle, err := s.resolveSignals(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("generate: %w: no signals to generate from", pkgerrors.ErrInvalidArgument)
	}

	channelsRan := false
	if req.StoryID != nil {
		// guarded entry: only one batch may hold `generating` at a time, so
		// a concurrent Generate on the same story loses the race here
		moved, err := s.storyRepo.UpdateStatusIf(dbctx.New(ctx), *req.StoryID, types.StoryStatusDraft, types.StoryStatusGenerating)
		if err != nil {
			return nil, err
		}
		if !moved {
			moved, err = s.storyRepo.UpdateStatusIf(dbctx.New(ctx), *req.StoryID, types.StoryStatusComplete, types.StoryStatusGenerating)
			if err != nil {
				return nil, err
			}
		}
		if !moved {
			return nil, fmt.Errorf("generate: %w: story already has a generation batch in flight", pkgerrors.ErrInvalidTransition)
		}
		// once the fan-out runs, every requested channel reaches a terminal
		// outcome, so the story is complete; an error before that reverts
		// the story to draft
		defer func() {
			status := types.StoryStatusComplete
			if !channelsRan {
				status = types.StoryStatusDraft
			}
			settled, err := s.storyRepo.UpdateStatusIf(dbctx.New(context.WithoutCancel(ctx)), *req.StoryID, types.StoryStatusGenerating, status)
			if err != nil {
				s.log.Error("story status update failed", "story_id", *req.StoryID, "error", err.Error())
			} else if !settled {
				s.log.Warn("story left generating by another writer", "story_id", *req.StoryID)
			}
		}()
	}

	brief, err := s.synthesizeBrief(ctx, sigs, storyAngle)
	if err != nil {
		return nil, fmt.Errorf("generate: brief synthesis: %w", err)
	}
	briefID := s.persistBrief(ctx, req.OrgID, brief)
	voice, err := s.voiceRepo.GetByOrg(dbctx.New(ctx), req.OrgID)
	if err != nil {
		return nil, err
	}
	memory := s.loadMemory(ctx, req.OrgID, channels)
	provenance, err := marshalUUIDs(brief.SignalIDs)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := &GenerateResult{}

	// Channel fan-out deliberately ignores caller cancellation for writes:
	// a draft that finished generating is persisted even if the caller left.
	channelsRan = true
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(4)
	for _, channel := range channels {
		channel := channel
		g.Go(func() error {
			draft, err := s.generateChannel(gctx, brief, sigs, channel, voice, memory[channel], req.Author, "")
			if err != nil {
				s.log.Warn("channel generation failed", "channel", channel, "error", err.Error())
				mu.Lock()
				result.Failures = append(result.Failures, ChannelFailure{Channel: channel, Error: err.Error()})
				mu.Unlock()
				return nil
			}

			row := &types.Content{
				ID:              uuid.New(),
				OrgID:           &req.OrgID,
				StoryID:         req.StoryID,
				BriefID:         briefID,
				Channel:         channel,
				Status:          types.ContentStatusQueued,
				Headline:        draft.headline,
				Body:            draft.body,
				BodyRaw:         draft.bodyRaw,
				Humanized:       draft.humanized,
				Author:          authorOrDefault(req.Author),
				SourceSignalIDs: provenance,
			}
			if _, err := s.contentRepo.Create(dbctx.New(gctx), []*types.Content{row}); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, ChannelFailure{Channel: channel, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			if err := s.signalRepo.RecordUsage(dbctx.New(gctx), brief.SignalIDs); err != nil {
				s.log.Warn("record usage failed", "channel", channel, "error", err.Error())
			}

			mu.Lock()
			result.Content = append(result.Content, row)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("generation batch finished",
		"org_id", req.OrgID,
		"channels", len(channels),
		"succeeded", len(result.Content),
		"failed", len(result.Failures),
	)
	return result, nil
}

func (s *service) Regenerate(ctx context.Context, orgID, contentID uuid.UUID, feedback string) (*types.Content, error) {
	if !s.llm.Configured() {
		return nil, fmt.Errorf("regenerate: %w: text-completion credentials missing", pkgerrors.ErrNotConfigured)
	}

	row, err := s.contentRepo.GetByID(dbctx.New(ctx), orgID, contentID)
	if err != nil {
		return nil, err
	}
	if row.Status != types.ContentStatusQueued {
		return nil, fmt.Errorf("regenerate: %w: content is %s", pkgerrors.ErrInvalidTransition, row.Status)
	}

	sigs, err := s.signalRepo.GetByIDs(dbctx.New(ctx), unmarshalUUIDs(row.SourceSignalIDs))
	if err != nil {
		return nil, err
	}

	brief := s.briefFor(ctx, orgID, row, sigs)
	voice, err := s.voiceRepo.GetByOrg(dbctx.New(ctx), orgID)
	if err != nil {
		return nil, err
	}

	draft, err := s.generateChannel(ctx, brief, sigs, row.Channel, voice, nil, row.Author, feedback)
	if err != nil {
		return nil, err
	}

	ok, err := s.contentRepo.UpdateFieldsIfStatus(dbctx.New(ctx), orgID, contentID, types.ContentStatusQueued, map[string]interface{}{
		"headline":  draft.headline,
		"body":      draft.body,
		"body_raw":  draft.bodyRaw,
		"humanized": draft.humanized,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("regenerate: %w: content left the queue mid-regeneration", pkgerrors.ErrInvalidTransition)
	}
	return s.contentRepo.GetByID(dbctx.New(ctx), orgID, contentID)
}

// briefFor reloads the batch brief for a regeneration, falling back to a
// fresh synthesis when the original brief row is gone.
func (s *service) briefFor(ctx context.Context, orgID uuid.UUID, row *types.Content, sigs []*types.Signal) *Brief {
	if row.BriefID != nil {
		stored, err := s.briefRepo.GetByID(dbctx.New(ctx), orgID, *row.BriefID)
		if err == nil {
			return &Brief{Summary: stored.Summary, Angle: stored.Angle, SignalIDs: unmarshalUUIDs(stored.SignalIDs)}
		}
	}
	brief, err := s.synthesizeBrief(ctx, sigs, "")
	if err != nil {
		s.log.Warn("brief resynthesis failed, regenerating from signals only", "error", err.Error())
		return &Brief{Summary: signalContext(sigs, 500), SignalIDs: unmarshalUUIDs(row.SourceSignalIDs)}
	}
	return brief
}

// resolveSignals loads the batch's signal set: a story's attachments in
// display order, or an ad-hoc id list. Every signal must belong to the org.
func (s *service) resolveSignals(ctx context.Context, req GenerateRequest) ([]*types.Signal, string, error) {
	if req.StoryID != nil {
		story, err := s.storyRepo.GetByID(dbctx.New(ctx), req.OrgID, *req.StoryID)
		if err != nil {
			return nil, "", err
		}
		attachments, err := s.storyRepo.ListAttachments(dbctx.New(ctx), story.ID)
		if err != nil {
			return nil, "", err
		}
		sigs := make([]*types.Signal, 0, len(attachments))
		for _, a := range attachments {
			sig := *a.Signal
			if note := strings.TrimSpace(a.StorySignal.EditorNotes); note != "" {
				sig.Body = sig.Body + "\nEditor note: " + note
			}
			sigs = append(sigs, &sig)
		}
		angle := story.Angle
		if notes := strings.TrimSpace(story.EditorialNotes); notes != "" {
			if angle != "" {
				angle += ". "
			}
			angle += notes
		}
		return sigs, angle, nil
	}

	sigs, err := s.signalRepo.GetByIDs(dbctx.New(ctx), req.SignalIDs)
	if err != nil {
		return nil, "", err
	}
	for _, sig := range sigs {
		if sig.OrgID == nil || *sig.OrgID != req.OrgID {
			return nil, "", fmt.Errorf("generate: %w: signal %s is not in this org", pkgerrors.ErrInvalidArgument, sig.ID)
		}
	}
	return sigs, "", nil
}

type draft struct {
	headline  string
	body      string
	bodyRaw   string
	humanized bool
}

// generateChannel runs one completion with a single retry on transient
// failure, then the humanize pass. Humanize failures are not fatal: the raw
// draft is kept and flagged for manual retry.
func (s *service) generateChannel(
	ctx context.Context,
	brief *Brief,
	sigs []*types.Signal,
	channel types.Channel,
	voice *types.VoiceProfile,
	memory *channelMemory,
	author string,
	feedback string,
) (*draft, error) {
	system, err := buildSystemPrompt(channel, voice, author)
	if err != nil {
		return nil, err
	}

	var user strings.Builder
	user.WriteString("Daily brief:\n")
	user.WriteString(brief.Summary)
	user.WriteString("\n\nKey signals:\n")
	capped := sigs
	if len(capped) > 5 {
		capped = capped[:5]
	}
	user.WriteString(signalContext(capped, 300))
	if block := memory.render(); block != "" {
		user.WriteString("\n\nContent memory (learn from past approvals/rejections):\n")
		user.WriteString(block)
	}
	if feedback != "" {
		user.WriteString("\n\nEditor feedback on the previous draft (follow it):\n")
		user.WriteString(feedback)
	}
	user.WriteString("\n\nGenerate the content now.")

	body, err := s.llm.GenerateText(ctx, system, user.String())
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		body, err = s.llm.GenerateText(ctx, system, user.String())
		if err != nil {
			return nil, err
		}
	}

	d := &draft{
		headline: headlineFor(channel, body),
		bodyRaw:  body,
	}
	humanized, err := s.humanizer.Humanize(ctx, body, voice)
	if err != nil {
		s.log.Warn("humanize failed, keeping raw draft", "channel", channel, "error", err.Error())
		d.body = body
		d.humanized = false
		return d, nil
	}
	d.body = humanized
	d.humanized = true
	return d, nil
}

// clip truncates to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isFatal(err error) bool {
	return errors.Is(err, pkgerrors.ErrNotConfigured) || errors.Is(err, pkgerrors.ErrInvalidArgument)
}

func headlineFor(channel types.Channel, body string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	first = clip(strings.Trim(first, "#\"* "), 200)
	prefix := channelPrompts[channel].headlinePrefix
	if prefix == "" {
		prefix = strings.ToUpper(string(channel))
	}
	return prefix + "  " + first
}

func authorOrDefault(author string) string {
	if author == "" {
		return "company"
	}
	return author
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalUUIDs(raw datatypes.JSON) []uuid.UUID {
	if len(raw) == 0 {
		return nil
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err != nil {
		return nil
	}
	var out []uuid.UUID
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	contentrepo "github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/signals"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos/stories"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/humanize"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
	pkgerrors "github.com/pressroomhq/pressroom-backend/internal/pkg/errors"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type fakeLLM struct {
	mu         sync.Mutex
	configured bool
	calls      int
	// completions whose system prompt contains this marker always fail,
	// which exercises the retry and per-channel failure paths
	failSystemContaining string
	failAlways           bool
}

func (f *fakeLLM) Configured() bool { return f.configured }

func (f *fakeLLM) GenerateText(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failSystemContaining != "" && strings.Contains(system, f.failSystemContaining) {
		return "", errors.New("upstream timeout")
	}
	if f.failAlways {
		return "", errors.New("upstream timeout")
	}
	if strings.Contains(system, "wire editor") {
		return "SUMMARY: A release happened.\nANGLE: Ship small, ship often.\nTOP SIGNALS:\n1. the release", nil
	}
	return "A headline line\n\nWe shipped a robust new queue.", nil
}

func (f *fakeLLM) GenerateTextFast(ctx context.Context, system, user string) (string, error) {
	return f.GenerateText(ctx, system, user)
}

type fakeSignalRepo struct {
	signals.SignalRepo
	mu    sync.Mutex
	rows  map[uuid.UUID]*types.Signal
	usage map[uuid.UUID]int
	spike map[uuid.UUID]int
}

func newFakeSignalRepo(rows ...*types.Signal) *fakeSignalRepo {
	m := map[uuid.UUID]*types.Signal{}
	for _, r := range rows {
		m[r.ID] = r
	}
	return &fakeSignalRepo{rows: m, usage: map[uuid.UUID]int{}, spike: map[uuid.UUID]int{}}
}

func (f *fakeSignalRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Signal
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSignalRepo) RecordUsage(_ dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.usage[id]++
	}
	return nil
}

func (f *fakeSignalRepo) RecordSpike(_ dbctx.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.spike[id]++
	}
	return nil
}

type fakeStoryRepo struct {
	stories.StoryRepo
	mu          sync.Mutex
	story       *types.Story
	attachments []*stories.Attachment
	statuses    []types.StoryStatus
}

func (f *fakeStoryRepo) GetByID(_ dbctx.Context, orgID, id uuid.UUID) (*types.Story, error) {
	if f.story == nil || f.story.ID != id || f.story.OrgID == nil || *f.story.OrgID != orgID {
		return nil, pkgerrors.ErrNotFound
	}
	return f.story, nil
}

func (f *fakeStoryRepo) ListAttachments(_ dbctx.Context, storyID uuid.UUID) ([]*stories.Attachment, error) {
	return f.attachments, nil
}

func (f *fakeStoryRepo) UpdateStatusIf(_ dbctx.Context, id uuid.UUID, from, to types.StoryStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.story == nil || f.story.ID != id || f.story.Status != from {
		return false, nil
	}
	f.story.Status = to
	f.statuses = append(f.statuses, to)
	return true, nil
}

type fakeContentRepo struct {
	contentrepo.ContentRepo
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Content
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{rows: map[uuid.UUID]*types.Content{}}
}

func (f *fakeContentRepo) Create(_ dbctx.Context, items []*types.Content) ([]*types.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		copied := *item
		f.rows[item.ID] = &copied
	}
	return items, nil
}

func (f *fakeContentRepo) GetByID(_ dbctx.Context, orgID, id uuid.UUID) (*types.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return nil, pkgerrors.ErrNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeContentRepo) List(_ dbctx.Context, orgID uuid.UUID, filter contentrepo.ListFilter) ([]*types.Content, error) {
	return nil, nil
}

func (f *fakeContentRepo) UpdateFieldsIfStatus(_ dbctx.Context, orgID, id uuid.UUID, required types.ContentStatus, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID || row.Status != required {
		return false, nil
	}
	if v, ok := updates["headline"]; ok {
		row.Headline = v.(string)
	}
	if v, ok := updates["body"]; ok {
		row.Body = v.(string)
	}
	if v, ok := updates["body_raw"]; ok {
		row.BodyRaw = v.(string)
	}
	if v, ok := updates["humanized"]; ok {
		row.Humanized = v.(bool)
	}
	return true, nil
}

type fakeBriefRepo struct {
	contentrepo.BriefRepo
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Brief
}

func newFakeBriefRepo() *fakeBriefRepo {
	return &fakeBriefRepo{rows: map[uuid.UUID]*types.Brief{}}
}

func (f *fakeBriefRepo) Create(_ dbctx.Context, brief *types.Brief) (*types.Brief, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[brief.ID] = brief
	return brief, nil
}

func (f *fakeBriefRepo) GetByID(_ dbctx.Context, orgID, id uuid.UUID) (*types.Brief, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.OrgID == nil || *row.OrgID != orgID {
		return nil, pkgerrors.ErrNotFound
	}
	return row, nil
}

type fakeVoiceRepo struct {
	profile *types.VoiceProfile
}

func (f *fakeVoiceRepo) GetByOrg(_ dbctx.Context, orgID uuid.UUID) (*types.VoiceProfile, error) {
	return f.profile, nil
}

func (f *fakeVoiceRepo) Upsert(_ dbctx.Context, profile *types.VoiceProfile) (*types.VoiceProfile, error) {
	f.profile = profile
	return profile, nil
}

type fixture struct {
	svc         *service
	llm         *fakeLLM
	signalRepo  *fakeSignalRepo
	storyRepo   *fakeStoryRepo
	contentRepo *fakeContentRepo
	briefRepo   *fakeBriefRepo
	orgID       uuid.UUID
	signals     []*types.Signal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)

	orgID := uuid.New()
	sigA := &types.Signal{ID: uuid.New(), OrgID: &orgID, Type: types.SignalTypeGitHubRelease, Title: "v2.0 shipped", Body: "big release"}
	sigB := &types.Signal{ID: uuid.New(), OrgID: &orgID, Type: types.SignalTypeHackerNews, Title: "HN thread", Body: "discussion"}

	f := &fixture{
		llm:         &fakeLLM{configured: true},
		signalRepo:  newFakeSignalRepo(sigA, sigB),
		storyRepo:   &fakeStoryRepo{},
		contentRepo: newFakeContentRepo(),
		briefRepo:   newFakeBriefRepo(),
		orgID:       orgID,
		signals:     []*types.Signal{sigA, sigB},
	}
	f.svc = &service{
		log:         log,
		signalRepo:  f.signalRepo,
		storyRepo:   f.storyRepo,
		contentRepo: f.contentRepo,
		briefRepo:   f.briefRepo,
		voiceRepo:   &fakeVoiceRepo{},
		llm:         f.llm,
		humanizer:   humanize.NewTransformer(log),
	}
	return f
}

func (f *fixture) signalIDs() []uuid.UUID {
	out := make([]uuid.UUID, len(f.signals))
	for i, s := range f.signals {
		out[i] = s.ID
	}
	return out
}

func TestGenerateNotConfiguredShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.llm.configured = false

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: f.signalIDs(),
		Channels:  []types.Channel{types.ChannelLinkedIn},
	})
	require.ErrorIs(t, err, pkgerrors.ErrNotConfigured)
	assert.Zero(t, f.llm.calls, "no completion calls without credentials")
}

func TestGeneratePerChannelDrafts(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: f.signalIDs(),
		Channels:  []types.Channel{types.ChannelLinkedIn, types.ChannelBlog},
	})
	require.NoError(t, err)

	require.Len(t, result.Content, 2)
	assert.Empty(t, result.Failures)
	seen := map[types.Channel]bool{}
	for _, row := range result.Content {
		seen[row.Channel] = true
		assert.Equal(t, types.ContentStatusQueued, row.Status)
		assert.True(t, row.Humanized)
		assert.Equal(t, f.orgID, *row.OrgID)
		assert.ElementsMatch(t, f.signalIDs(), unmarshalUUIDs(row.SourceSignalIDs))
		assert.NotContains(t, row.Body, "robust", "humanizer must run before persistence")
		assert.Contains(t, row.BodyRaw, "robust")
	}
	assert.True(t, seen[types.ChannelLinkedIn] && seen[types.ChannelBlog])

	// one usage tick per signal per draft
	for _, id := range f.signalIDs() {
		assert.Equal(t, 2, f.signalRepo.usage[id])
	}
}

func TestGenerateOneFailingChannel(t *testing.T) {
	f := newFixture(t)
	f.llm.failSystemContaining = "blog post draft"

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: f.signalIDs(),
		Channels:  []types.Channel{types.ChannelLinkedIn, types.ChannelBlog},
	})
	require.NoError(t, err)

	require.Len(t, result.Content, 1)
	assert.Equal(t, types.ChannelLinkedIn, result.Content[0].Channel)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, types.ChannelBlog, result.Failures[0].Channel)
	assert.NotEmpty(t, result.Failures[0].Error)

	// no partial blog row persisted
	f.contentRepo.mu.Lock()
	defer f.contentRepo.mu.Unlock()
	for _, row := range f.contentRepo.rows {
		assert.NotEqual(t, types.ChannelBlog, row.Channel)
	}
}

func TestGenerateUnknownChannelRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: f.signalIDs(),
		Channels:  []types.Channel{"tiktok"},
	})
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
}

func TestGenerateRejectsForeignSignals(t *testing.T) {
	f := newFixture(t)
	otherOrg := uuid.New()
	foreign := &types.Signal{ID: uuid.New(), OrgID: &otherOrg, Type: types.SignalTypeRSS, Title: "not yours"}
	f.signalRepo.rows[foreign.ID] = foreign

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: []uuid.UUID{foreign.ID},
		Channels:  []types.Channel{types.ChannelLinkedIn},
	})
	require.ErrorIs(t, err, pkgerrors.ErrInvalidArgument)
}

func TestGenerateFromStoryMarksComplete(t *testing.T) {
	f := newFixture(t)
	story := &types.Story{ID: uuid.New(), OrgID: &f.orgID, Title: "launch week", Angle: "we ship", Status: types.StoryStatusDraft}
	f.storyRepo.story = story
	f.storyRepo.attachments = []*stories.Attachment{
		{StorySignal: &types.StorySignal{StoryID: story.ID, SignalID: f.signals[0].ID, EditorNotes: "lead with this"}, Signal: f.signals[0]},
	}

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:    f.orgID,
		StoryID:  &story.ID,
		Channels: []types.Channel{types.ChannelLinkedIn},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	require.Equal(t, []types.StoryStatus{types.StoryStatusGenerating, types.StoryStatusComplete}, f.storyRepo.statuses)
	assert.Equal(t, story.ID, *result.Content[0].StoryID)
}

func TestGenerateRejectsStoryAlreadyGenerating(t *testing.T) {
	f := newFixture(t)
	story := &types.Story{ID: uuid.New(), OrgID: &f.orgID, Title: "launch week", Status: types.StoryStatusGenerating}
	f.storyRepo.story = story
	f.storyRepo.attachments = []*stories.Attachment{
		{StorySignal: &types.StorySignal{StoryID: story.ID, SignalID: f.signals[0].ID}, Signal: f.signals[0]},
	}

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:    f.orgID,
		StoryID:  &story.ID,
		Channels: []types.Channel{types.ChannelLinkedIn},
	})
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)

	// the in-flight batch still owns the status; the loser wrote nothing
	assert.Empty(t, f.storyRepo.statuses)
	assert.Equal(t, types.StoryStatusGenerating, story.Status)
	assert.Empty(t, f.contentRepo.rows)
}

func TestGenerateFromCompleteStoryRunsAgain(t *testing.T) {
	f := newFixture(t)
	story := &types.Story{ID: uuid.New(), OrgID: &f.orgID, Title: "launch week", Status: types.StoryStatusComplete}
	f.storyRepo.story = story
	f.storyRepo.attachments = []*stories.Attachment{
		{StorySignal: &types.StorySignal{StoryID: story.ID, SignalID: f.signals[0].ID}, Signal: f.signals[0]},
	}

	result, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:    f.orgID,
		StoryID:  &story.ID,
		Channels: []types.Channel{types.ChannelLinkedIn},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	require.Equal(t, []types.StoryStatus{types.StoryStatusGenerating, types.StoryStatusComplete}, f.storyRepo.statuses)
}

func TestGenerateBriefFailureRevertsStoryToDraft(t *testing.T) {
	f := newFixture(t)
	f.llm.failSystemContaining = "wire editor"
	story := &types.Story{ID: uuid.New(), OrgID: &f.orgID, Title: "launch week", Status: types.StoryStatusDraft}
	f.storyRepo.story = story
	f.storyRepo.attachments = []*stories.Attachment{
		{StorySignal: &types.StorySignal{StoryID: story.ID, SignalID: f.signals[0].ID}, Signal: f.signals[0]},
	}

	_, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:    f.orgID,
		StoryID:  &story.ID,
		Channels: []types.Channel{types.ChannelLinkedIn},
	})
	require.Error(t, err)

	require.Equal(t, []types.StoryStatus{types.StoryStatusGenerating, types.StoryStatusDraft}, f.storyRepo.statuses)
}

func TestRegeneratePreservesIdentity(t *testing.T) {
	f := newFixture(t)

	generated, err := f.svc.Generate(context.Background(), GenerateRequest{
		OrgID:     f.orgID,
		SignalIDs: f.signalIDs(),
		Channels:  []types.Channel{types.ChannelLinkedIn},
	})
	require.NoError(t, err)
	original := generated.Content[0]

	regenerated, err := f.svc.Regenerate(context.Background(), f.orgID, original.ID, "make it shorter")
	require.NoError(t, err)

	assert.Equal(t, original.ID, regenerated.ID)
	assert.Equal(t, original.Channel, regenerated.Channel)
	assert.Equal(t, original.SourceSignalIDs, regenerated.SourceSignalIDs)
	assert.Equal(t, types.ContentStatusQueued, regenerated.Status)
}

func TestRegenerateRejectsNonQueued(t *testing.T) {
	f := newFixture(t)
	row := &types.Content{
		ID:              uuid.New(),
		OrgID:           &f.orgID,
		Channel:         types.ChannelLinkedIn,
		Status:          types.ContentStatusApproved,
		Body:            "approved already",
		SourceSignalIDs: datatypes.JSON([]byte(`[]`)),
	}
	f.contentRepo.rows[row.ID] = row

	_, err := f.svc.Regenerate(context.Background(), f.orgID, row.ID, "")
	require.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestRegenerateNotFoundIsDistinct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Regenerate(context.Background(), f.orgID, uuid.New(), "")
	require.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.NotErrorIs(t, err, pkgerrors.ErrInvalidTransition)
}

func TestClipNeverSplitsRunes(t *testing.T) {
	short := "plain ascii"
	assert.Equal(t, short, clip(short, 200))

	// "é" is two bytes, so an odd limit lands mid-rune
	accented := strings.Repeat("é", 120)
	got := clip(accented, 101)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 100, len(got))

	emoji := strings.Repeat("🚀", 10)
	for limit := 1; limit <= len(emoji); limit++ {
		assert.True(t, utf8.ValidString(clip(emoji, limit)), "limit %d", limit)
	}
}

func TestHeadlineForKeepsMultibyteTitleValid(t *testing.T) {
	body := strings.Repeat("日本語のタイトル", 20) + "\n\nrest of the post"
	headline := headlineFor(types.ChannelLinkedIn, body)
	assert.True(t, utf8.ValidString(headline))
}

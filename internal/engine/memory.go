package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos/content"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
)

const (
	memoryExamplesPerVerdict = 3
	recentTopicsWindow       = 21 * 24 * time.Hour
	recentTopicsLimit        = 10
)

// channelMemory feeds past editorial verdicts back into the prompt: approved
// drafts as positive examples, spiked ones as anti-patterns, recent topics to
// avoid repeating.
type channelMemory struct {
	approved     []string
	spiked       []string
	recentTopics []string
}

func (m *channelMemory) render() string {
	if m == nil {
		return ""
	}
	var parts []string
	if len(m.approved) > 0 {
		parts = append(parts, "PREVIOUSLY APPROVED (write MORE like these):")
		for _, h := range m.approved {
			parts = append(parts, "  - "+h)
		}
	}
	if len(m.spiked) > 0 {
		parts = append(parts, "PREVIOUSLY SPIKED (write LESS like these):")
		for _, h := range m.spiked {
			parts = append(parts, "  - "+h)
		}
	}
	if len(m.recentTopics) > 0 {
		parts = append(parts, "RECENT TOPICS (avoid repeating):")
		for _, h := range m.recentTopics {
			parts = append(parts, "  - "+h)
		}
	}
	return strings.Join(parts, "\n")
}

// loadMemory is advisory: any failure degrades to memoryless generation.
func (s *service) loadMemory(ctx context.Context, orgID uuid.UUID, channels []types.Channel) map[types.Channel]*channelMemory {
	out := make(map[types.Channel]*channelMemory, len(channels))
	recent := s.recentTopics(ctx, orgID)
	for _, channel := range channels {
		out[channel] = &channelMemory{
			approved:     s.headlinesFor(ctx, orgID, channel, types.ContentStatusApproved),
			spiked:       s.headlinesFor(ctx, orgID, channel, types.ContentStatusSpiked),
			recentTopics: recent,
		}
	}
	return out
}

func (s *service) headlinesFor(ctx context.Context, orgID uuid.UUID, channel types.Channel, status types.ContentStatus) []string {
	rows, err := s.contentRepo.List(dbctx.New(ctx), orgID, content.ListFilter{
		Status:  status,
		Channel: channel,
		Limit:   memoryExamplesPerVerdict,
	})
	if err != nil {
		s.log.Warn("memory lookup failed", "channel", channel, "status", status, "error", err.Error())
		return nil
	}
	var out []string
	for _, row := range rows {
		if row.Headline != "" {
			out = append(out, row.Headline)
		}
	}
	return out
}

func (s *service) recentTopics(ctx context.Context, orgID uuid.UUID) []string {
	rows, err := s.contentRepo.List(dbctx.New(ctx), orgID, content.ListFilter{Limit: 50})
	if err != nil {
		s.log.Warn("recent topics lookup failed", "error", err.Error())
		return nil
	}
	cutoff := time.Now().Add(-recentTopicsWindow)
	var out []string
	for _, row := range rows {
		if row.CreatedAt.Before(cutoff) || row.Headline == "" {
			continue
		}
		out = append(out, row.Headline)
		if len(out) == recentTopicsLimit {
			break
		}
	}
	return out
}

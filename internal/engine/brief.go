package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
)

// Brief is the synthesized context shared by every channel in one batch.
type Brief struct {
	Summary   string
	Angle     string
	SignalIDs []uuid.UUID
}

func signalContext(sigs []*types.Signal, bodyLimit int) string {
	var b strings.Builder
	for i, s := range sigs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		body := clip(s.Body, bodyLimit)
		fmt.Fprintf(&b, "[%s] %s\n%s", s.Type, s.Title, body)
	}
	return b.String()
}

// synthesizeBrief runs the wire-editor pass once per batch. The angle is
// parsed out of the "ANGLE:" line when the model follows the format.
func (s *service) synthesizeBrief(ctx context.Context, sigs []*types.Signal, storyAngle string) (*Brief, error) {
	user := "Today's wire:\n\n" + signalContext(sigs, 500)
	if storyAngle != "" {
		user += "\n\nEditorial angle chosen by the editor: " + storyAngle
	}
	text, err := s.llm.GenerateText(ctx, briefSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	brief := &Brief{Summary: text, Angle: storyAngle}
	if brief.Angle == "" {
		brief.Angle = extractAngle(text)
	}
	for _, sig := range sigs {
		brief.SignalIDs = append(brief.SignalIDs, sig.ID)
	}
	return brief, nil
}

func extractAngle(text string) string {
	_, after, found := strings.Cut(text, "ANGLE:")
	if !found {
		return ""
	}
	line, _, _ := strings.Cut(after, "\n")
	return strings.TrimSpace(line)
}

func (s *service) persistBrief(ctx context.Context, orgID uuid.UUID, brief *Brief) *uuid.UUID {
	ids, err := marshalUUIDs(brief.SignalIDs)
	if err != nil {
		s.log.Warn("marshal brief signal ids failed", "error", err.Error())
		return nil
	}
	row, err := s.briefRepo.Create(dbctx.New(ctx), &types.Brief{
		ID:        uuid.New(),
		OrgID:     &orgID,
		Date:      time.Now().UTC().Format("2006-01-02"),
		Summary:   brief.Summary,
		Angle:     brief.Angle,
		SignalIDs: ids,
	})
	if err != nil {
		// briefs are advisory; generation proceeds without the record
		s.log.Warn("persist brief failed", "org_id", orgID, "error", err.Error())
		return nil
	}
	return &row.ID
}

func marshalUUIDs(ids []uuid.UUID) (datatypes.JSON, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return marshalJSON(strs)
}

package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/pressroomhq/pressroom-backend/internal/domain"
)

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }

func SeedOrg(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Org {
	tb.Helper()
	org := &types.Org{
		ID:   uuid.New(),
		Name: name,
	}
	if err := tx.WithContext(ctx).Create(org).Error; err != nil {
		tb.Fatalf("seed org: %v", err)
	}
	return org
}

func SeedSignal(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, title string) *types.Signal {
	tb.Helper()
	sum := sha256.Sum256([]byte("test|" + title))
	s := &types.Signal{
		ID:          uuid.New(),
		OrgID:       &orgID,
		Type:        types.SignalTypeRSS,
		Source:      "test-feed",
		Title:       title,
		Body:        "body of " + title,
		Fingerprint: hex.EncodeToString(sum[:]),
		Raw:         datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed signal: %v", err)
	}
	return s
}

func SeedStory(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, title string) *types.Story {
	tb.Helper()
	st := &types.Story{
		ID:     uuid.New(),
		OrgID:  &orgID,
		Title:  title,
		Status: types.StoryStatusDraft,
	}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed story: %v", err)
	}
	return st
}

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID, channel types.Channel, status types.ContentStatus) *types.Content {
	tb.Helper()
	c := &types.Content{
		ID:      uuid.New(),
		OrgID:   &orgID,
		Channel: channel,
		Status:  status,
		Body:    "draft body",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return c
}

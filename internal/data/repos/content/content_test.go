package content

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/pressroomhq/pressroom-backend/internal/data/repos/testutil"
	types "github.com/pressroomhq/pressroom-backend/internal/domain"
	"github.com/pressroomhq/pressroom-backend/internal/pkg/dbctx"
)

func TestContentRepoStatusGuards(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewContentRepo(db, testutil.Logger(t))

	org := testutil.SeedOrg(t, dbc.Ctx, tx, "queue-org")
	item := testutil.SeedContent(t, dbc.Ctx, tx, org.ID, types.ChannelLinkedIn, types.ContentStatusQueued)

	now := time.Now()
	moved, err := repo.UpdateStatusIf(dbc, org.ID, item.ID,
		[]types.ContentStatus{types.ContentStatusQueued}, types.ContentStatusApproved,
		map[string]interface{}{"approved_at": now})
	if err != nil || !moved {
		t.Fatalf("queued->approved: moved=%v err=%v", moved, err)
	}

	// second approval finds no queued row
	moved, err = repo.UpdateStatusIf(dbc, org.ID, item.ID,
		[]types.ContentStatus{types.ContentStatusQueued}, types.ContentStatusApproved, nil)
	if err != nil || moved {
		t.Fatalf("double approve: moved=%v err=%v", moved, err)
	}

	// spike only applies to queued or approved
	moved, err = repo.UpdateStatusIf(dbc, org.ID, item.ID,
		[]types.ContentStatus{types.ContentStatusQueued, types.ContentStatusApproved},
		types.ContentStatusSpiked, nil)
	if err != nil || !moved {
		t.Fatalf("approved->spiked: moved=%v err=%v", moved, err)
	}
}

func TestContentRepoStatusGuardIsOrgScoped(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewContentRepo(db, testutil.Logger(t))

	owner := testutil.SeedOrg(t, dbc.Ctx, tx, "owner-org")
	other := testutil.SeedOrg(t, dbc.Ctx, tx, "other-org")
	item := testutil.SeedContent(t, dbc.Ctx, tx, owner.ID, types.ChannelLinkedIn, types.ContentStatusQueued)

	moved, err := repo.UpdateStatusIf(dbc, other.ID, item.ID,
		[]types.ContentStatus{types.ContentStatusQueued}, types.ContentStatusApproved, nil)
	if err != nil || moved {
		t.Fatalf("cross-org approve: moved=%v err=%v", moved, err)
	}

	got, err := repo.GetByID(dbc, owner.ID, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != types.ContentStatusQueued {
		t.Fatalf("status: got %s, want queued", got.Status)
	}
}

func TestContentRepoEditOnlyWhileQueued(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewContentRepo(db, testutil.Logger(t))

	org := testutil.SeedOrg(t, dbc.Ctx, tx, "edit-org")
	item := testutil.SeedContent(t, dbc.Ctx, tx, org.ID, types.ChannelBlog, types.ContentStatusQueued)

	ok, err := repo.UpdateFieldsIfStatus(dbc, org.ID, item.ID, types.ContentStatusQueued,
		map[string]interface{}{"body": "edited body"})
	if err != nil || !ok {
		t.Fatalf("edit queued: ok=%v err=%v", ok, err)
	}

	if _, err := repo.UpdateStatusIf(dbc, org.ID, item.ID,
		[]types.ContentStatus{types.ContentStatusQueued}, types.ContentStatusApproved, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	ok, err = repo.UpdateFieldsIfStatus(dbc, org.ID, item.ID, types.ContentStatusQueued,
		map[string]interface{}{"body": "too late"})
	if err != nil || ok {
		t.Fatalf("edit approved: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, org.ID, item.ID)
	if err != nil || got.Body != "edited body" {
		t.Fatalf("body: err=%v body=%q", err, got.Body)
	}
}

func TestContentRepoDueAndPublishOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewContentRepo(db, testutil.Logger(t))

	org := testutil.SeedOrg(t, dbc.Ctx, tx, "due-org")
	due := testutil.SeedContent(t, dbc.Ctx, tx, org.ID, types.ChannelLinkedIn, types.ContentStatusApproved)
	future := testutil.SeedContent(t, dbc.Ctx, tx, org.ID, types.ChannelLinkedIn, types.ContentStatusApproved)

	past := time.Now().Add(-time.Hour)
	later := time.Now().Add(time.Hour)
	if err := tx.Model(&types.Content{}).Where("id = ?", due.ID).Update("scheduled_at", past).Error; err != nil {
		t.Fatalf("set due: %v", err)
	}
	if err := tx.Model(&types.Content{}).Where("id = ?", future.ID).Update("scheduled_at", later).Error; err != nil {
		t.Fatalf("set future: %v", err)
	}

	rows, err := repo.ListApprovedDue(dbc, time.Now())
	if err != nil {
		t.Fatalf("ListApprovedDue: %v", err)
	}
	found := false
	for _, row := range rows {
		if row.ID == future.ID {
			t.Fatal("future item listed as due")
		}
		if row.ID == due.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("due item not listed")
	}

	result := datatypes.JSON([]byte(`{"channel":"linkedin","ok":true}`))
	ok, err := repo.MarkPublished(dbc, due.ID, time.Now(), result)
	if err != nil || !ok {
		t.Fatalf("MarkPublished: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkPublished(dbc, due.ID, time.Now(), result)
	if err != nil || ok {
		t.Fatalf("second MarkPublished should be a no-op: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, org.ID, due.ID)
	if err != nil || got.Status != types.ContentStatusPublished || got.PublishedAt == nil {
		t.Fatalf("published row: err=%v status=%v publishedAt=%v", err, got.Status, got.PublishedAt)
	}
}

func TestBriefRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.WithTx(context.Background(), tx)
	repo := NewBriefRepo(db, testutil.Logger(t))

	org := testutil.SeedOrg(t, dbc.Ctx, tx, "brief-org")
	brief, err := repo.Create(dbc, &types.Brief{
		OrgID:     &org.ID,
		Date:      "2026-08-31",
		Summary:   "two launches and a milestone",
		Angle:     "momentum",
		SignalIDs: datatypes.JSON([]byte("[]")),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.Latest(dbc, org.ID)
	if err != nil || latest == nil || latest.ID != brief.ID {
		t.Fatalf("Latest: err=%v latest=%+v", err, latest)
	}

	rows, err := repo.List(dbc, org.ID, 5)
	if err != nil || len(rows) != 1 {
		t.Fatalf("List: err=%v len=%d", err, len(rows))
	}
}

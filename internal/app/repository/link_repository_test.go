package repository

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sifan077/LinkRewards/internal/app/model"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every pooled connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.Link{}, &model.Activity{}, &model.TimedTask{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, repo LinkRepository, userID int64, provider model.Provider) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), uuid.New().String(), userID, provider)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	return id
}

func setTimestamps(t *testing.T, db *gorm.DB, id int64, created, updated time.Time) {
	t.Helper()
	if err := db.Model(&model.Link{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"created_at": created,
		"updated_at": updated,
	}).Error; err != nil {
		t.Fatalf("set timestamps: %v", err)
	}
}

func TestLinkRepository_Create(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, uuid.New().String(), 7, model.ProviderShareUS)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	second := mustCreate(t, repo, 7, model.ProviderShareUS)
	if second == id {
		t.Fatalf("expected distinct ids, got %d twice", id)
	}
}

func TestLinkRepository_CreateRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	cases := []struct {
		name     string
		code     string
		userID   int64
		provider model.Provider
	}{
		{"malformed code", "not-a-uuid", 1, model.ProviderShareUS},
		{"uppercase code", "6F9619FF-8B86-D011-B42D-00C04FC964FF", 1, model.ProviderShareUS},
		{"zero user", uuid.New().String(), 0, model.ProviderShareUS},
		{"negative user", uuid.New().String(), -3, model.ProviderShareUS},
		{"empty provider", uuid.New().String(), 1, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tc.code, tc.userID, tc.provider)
			if !errors.Is(err, ErrInvalidLink) {
				t.Fatalf("expected ErrInvalidLink, got %v", err)
			}
		})
	}

	var count int64
	db.Model(&model.Link{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows written, got %d", count)
	}
}

func TestLinkRepository_ReadsHideDeletedAndLocked(t *testing.T) {
	db := newTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()

	visible := mustCreate(t, repo, 1, model.ProviderGyaniLinks)
	deleted := mustCreate(t, repo, 1, model.ProviderGyaniLinks)
	locked := mustCreate(t, repo, 1, model.ProviderGyaniLinks)

	if ok, err := repo.SoftDelete(ctx, deleted); err != nil || !ok {
		t.Fatalf("SoftDelete = %v, %v", ok, err)
	}
	db.Model(&model.Link{}).Where("id = ?", locked).UpdateColumn("locked", true)

	if _, err := repo.GetByID(ctx, visible); err != nil {
		t.Fatalf("expected visible link, got %v", err)
	}
	if _, err := repo.GetByID(ctx, deleted); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected deleted link hidden, got %v", err)
	}
	if _, err := repo.GetByID(ctx, locked); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected locked link hidden, got %v", err)
	}

	var lockedRow model.Link
	db.First(&lockedRow, locked)
	if _, err := repo.GetByCode(ctx, lockedRow.Code); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected locked link hidden by code, got %v", err)
	}

	mine, err := repo.ListByUser(ctx, 1, 50)
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != visible {
		t.Fatalf("expected only the visible link, got %+v", mine)
	}

	// admin listing only hides deleted rows
	all, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 admin rows, got %d", len(all))
	}
	total, err := repo.Count(ctx)
	if err != nil || total != 2 {
		t.Fatalf("Count = %d, %v", total, err)
	}
}

func TestLinkRepository_ListRecentByUserProvider(t *testing.T) {
	db := newTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()
	now := time.Now()

	old := mustCreate(t, repo, 1, model.ProviderShareUS)
	setTimestamps(t, db, old, now.Add(-25*time.Hour), now.Add(-25*time.Hour))
	older := mustCreate(t, repo, 1, model.ProviderShareUS)
	setTimestamps(t, db, older, now.Add(-3*time.Hour), now.Add(-3*time.Hour))
	newer := mustCreate(t, repo, 1, model.ProviderShareUS)
	setTimestamps(t, db, newer, now.Add(-time.Hour), now.Add(-time.Hour))
	mustCreate(t, repo, 1, model.ProviderLinkPays)
	mustCreate(t, repo, 2, model.ProviderShareUS)

	links, err := repo.ListRecentByUserProvider(ctx, 1, model.ProviderShareUS, now.Add(-24*time.Hour), MaxUserListLimit)
	if err != nil {
		t.Fatalf("ListRecentByUserProvider error: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].ID != newer || links[1].ID != older {
		t.Fatalf("expected newest first, got %d then %d", links[0].ID, links[1].ID)
	}
}

func TestLinkRepository_MarkCompletedOnce(t *testing.T) {
	repo := NewLinkRepository(newTestDB(t))
	ctx := context.Background()
	id := mustCreate(t, repo, 1, model.ProviderLinkPays)

	ok, err := repo.MarkCompleted(ctx, id)
	if err != nil || !ok {
		t.Fatalf("first MarkCompleted = %v, %v", ok, err)
	}
	ok, err = repo.MarkCompleted(ctx, id)
	if err != nil || ok {
		t.Fatalf("second MarkCompleted = %v, %v", ok, err)
	}
	if ok, _ := repo.SoftDelete(ctx, id); ok {
		t.Fatal("expected completed link to refuse soft delete")
	}

	link, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !link.Completed || link.Deleted {
		t.Fatalf("unexpected flags: %+v", link)
	}
}

func TestLinkRepository_FlagsNeverRevert(t *testing.T) {
	db := newTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 25; round++ {
		id := mustCreate(t, repo, 1, model.ProviderShareUS)
		var completedOnce, deletedOnce int
		var wasCompleted, wasDeleted bool

		for step := 0; step < 8; step++ {
			var ok bool
			var err error
			if rng.Intn(2) == 0 {
				ok, err = repo.MarkCompleted(ctx, id)
				if ok {
					completedOnce++
				}
			} else {
				ok, err = repo.SoftDelete(ctx, id)
				if ok {
					deletedOnce++
				}
			}
			if err != nil {
				t.Fatalf("round %d step %d: %v", round, step, err)
			}

			var row model.Link
			if err := db.First(&row, id).Error; err != nil {
				t.Fatalf("load row: %v", err)
			}
			if wasCompleted && !row.Completed {
				t.Fatalf("round %d: completed flag reverted", round)
			}
			if wasDeleted && !row.Deleted {
				t.Fatalf("round %d: deleted flag reverted", round)
			}
			if row.Completed && row.Deleted {
				t.Fatalf("round %d: link both completed and deleted", round)
			}
			wasCompleted, wasDeleted = row.Completed, row.Deleted
		}

		if completedOnce+deletedOnce != 1 {
			t.Fatalf("round %d: expected exactly one transition, got %d completed and %d deleted", round, completedOnce, deletedOnce)
		}
	}
}

func TestLinkRepository_Purge(t *testing.T) {
	db := newTestDB(t)
	repo := NewLinkRepository(db)
	ctx := context.Background()
	now := time.Now()

	deletedOld := mustCreate(t, repo, 1, model.ProviderShareUS)
	deletedRecent := mustCreate(t, repo, 1, model.ProviderShareUS)
	completedOld := mustCreate(t, repo, 1, model.ProviderShareUS)
	completedRecent := mustCreate(t, repo, 1, model.ProviderShareUS)
	pendingOld := mustCreate(t, repo, 1, model.ProviderShareUS)

	for _, id := range []int64{deletedOld, deletedRecent} {
		if ok, err := repo.SoftDelete(ctx, id); err != nil || !ok {
			t.Fatalf("SoftDelete(%d) = %v, %v", id, ok, err)
		}
	}
	for _, id := range []int64{completedOld, completedRecent} {
		if ok, err := repo.MarkCompleted(ctx, id); err != nil || !ok {
			t.Fatalf("MarkCompleted(%d) = %v, %v", id, ok, err)
		}
	}

	day := 24 * time.Hour
	setTimestamps(t, db, deletedOld, now.Add(-40*day), now.Add(-8*day))
	setTimestamps(t, db, deletedRecent, now.Add(-40*day), now.Add(-6*day))
	setTimestamps(t, db, completedOld, now.Add(-31*day), now.Add(-31*day))
	setTimestamps(t, db, completedRecent, now.Add(-29*day), now.Add(-29*day))
	setTimestamps(t, db, pendingOld, now.Add(-90*day), now.Add(-90*day))

	n, err := repo.PurgeDeleted(ctx, now.Add(-7*day))
	if err != nil || n != 1 {
		t.Fatalf("PurgeDeleted = %d, %v", n, err)
	}
	n, err = repo.PurgeCompleted(ctx, now.Add(-30*day))
	if err != nil || n != 1 {
		t.Fatalf("PurgeCompleted = %d, %v", n, err)
	}

	var remaining []int64
	db.Model(&model.Link{}).Order("id").Pluck("id", &remaining)
	want := []int64{deletedRecent, completedRecent, pendingOld}
	if len(remaining) != len(want) {
		t.Fatalf("expected %v to remain, got %v", want, remaining)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("expected %v to remain, got %v", want, remaining)
		}
	}

	// nothing left to purge is still a success
	n, err = repo.PurgeDeleted(ctx, now.Add(-7*day))
	if err != nil || n != 0 {
		t.Fatalf("second PurgeDeleted = %d, %v", n, err)
	}
}

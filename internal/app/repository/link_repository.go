package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"gorm.io/gorm"
)

// MaxUserListLimit caps the number of rows returned by user-facing listings.
const MaxUserListLimit = 150

var (
	// ErrLinkNotFound signals that no visible link matches the lookup.
	ErrLinkNotFound = errors.New("link not found")
	// ErrInvalidLink is returned by Create when its arguments are rejected before touching storage.
	ErrInvalidLink = errors.New("invalid link attributes")
)

// LinkRepository defines the data access contract for reward links.
type LinkRepository interface {
	Create(ctx context.Context, code string, userID int64, provider model.Provider) (int64, error)
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	GetByID(ctx context.Context, id int64) (*model.Link, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.Link, error)
	ListRecentByUserProvider(ctx context.Context, userID int64, provider model.Provider, since time.Time, limit int) ([]model.Link, error)
	List(ctx context.Context, limit, offset int) ([]model.Link, error)
	Count(ctx context.Context) (int64, error)
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
	PurgeCompleted(ctx context.Context, before time.Time) (int64, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, code string, userID int64, provider model.Provider) (int64, error) {
	if !model.ValidCode(code) || userID <= 0 || provider == "" {
		return 0, ErrInvalidLink
	}

	link := &model.Link{
		Code:     code,
		UserID:   userID,
		Provider: provider,
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return 0, err
	}
	return link.ID, nil
}

// visible scopes queries to rows a user may see.
func (r *linkRepository) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Where("deleted = ? AND locked = ?", false, false)
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	var link model.Link
	if err := r.visible(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	var link model.Link
	if err := r.visible(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Link, error) {
	if limit <= 0 || limit > MaxUserListLimit {
		limit = MaxUserListLimit
	}

	var result []model.Link
	if err := r.visible(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) ListRecentByUserProvider(ctx context.Context, userID int64, provider model.Provider, since time.Time, limit int) ([]model.Link, error) {
	if limit <= 0 || limit > MaxUserListLimit {
		limit = MaxUserListLimit
	}

	var result []model.Link
	if err := r.visible(ctx).
		Where("user_id = ? AND provider = ? AND created_at >= ?", userID, provider, since).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.Link
	if err := r.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *linkRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("deleted = ?", false).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// MarkCompleted flips a pending link to completed. It reports false when the
// link was already completed, deleted or never existed.
func (r *linkRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ? AND completed = ? AND deleted = ?", id, false, false).
		Updates(map[string]interface{}{
			"completed":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SoftDelete flips a pending link to deleted and stamps updated_at, which the
// purge job uses as the deletion age.
func (r *linkRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Link{}).
		Where("id = ? AND deleted = ? AND completed = ?", id, false, false).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *linkRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("deleted = ? AND updated_at < ?", true, before).
		Delete(&model.Link{})
	return result.RowsAffected, result.Error
}

func (r *linkRepository) PurgeCompleted(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("completed = ? AND deleted = ? AND created_at < ?", true, false, before).
		Delete(&model.Link{})
	return result.RowsAffected, result.Error
}

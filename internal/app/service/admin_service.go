package service

import (
	"context"
	"fmt"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/repository"
	"github.com/sifan077/LinkRewards/internal/app/settings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AdminService defines the operations behind the admin endpoints.
type AdminService interface {
	Settings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, identity Identity, values map[string]any) ([]string, error)
	ListLinks(ctx context.Context, page, perPage int) (*LinkPage, error)
}

// LinkPage is one page of the admin link listing.
type LinkPage struct {
	Links       []model.Link
	CurrentPage int
	PerPage     int
	Total       int64
	TotalPages  int
}

type adminService struct {
	links      repository.LinkRepository
	settings   settings.Service
	activities ActivityRecorder
}

// NewAdminService returns an AdminService backed by the given collaborators.
func NewAdminService(links repository.LinkRepository, settingsSvc settings.Service, activities ActivityRecorder) AdminService {
	return &adminService{links: links, settings: settingsSvc, activities: activities}
}

func (s *adminService) Settings(ctx context.Context) (map[string]string, error) {
	values, err := s.settings.Raw(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return values, nil
}

func (s *adminService) UpdateSettings(ctx context.Context, identity Identity, values map[string]any) ([]string, error) {
	keys, err := s.settings.Update(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	if s.activities != nil {
		// a failed audit write does not undo the update
		_ = s.activities.Record(ctx, newActivity(identity, model.ActivitySettingsUpdated, map[string]any{
			"keys": keys,
		}))
	}
	return keys, nil
}

// ListLinks clamps page to at least 1 and perPage to 1..MaxPageSize.
func (s *adminService) ListLinks(ctx context.Context, page, perPage int) (*LinkPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPageSize
	}
	if perPage > MaxPageSize {
		perPage = MaxPageSize
	}

	total, err := s.links.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count links: %w", err)
	}
	links, err := s.links.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &LinkPage{
		Links:       links,
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
	}, nil
}

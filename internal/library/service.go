package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	ErrInvalidItem     = errors.New("invalid media item")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNotFound        = errors.New("media item not found")
)

// Service enforces the registry invariants: at most one reference
// item, and a raw pool that only ever grows, in arrival order.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetReference stores item as the session's reference video,
// overwriting any previous one.
func (s *Service) SetReference(ctx context.Context, item *MediaItem) error {
	if err := validateItem(item); err != nil {
		return err
	}
	item.Role = RoleReference
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	if err := s.repo.ReplaceReference(ctx, item); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("reference video set", "media_id", item.ID, "name", item.Name)
	}
	return nil
}

// AddRaw appends items to the raw pool as one batch, preserving order.
func (s *Service) AddRaw(ctx context.Context, items []*MediaItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidItem)
	}
	now := time.Now()
	for _, item := range items {
		if err := validateItem(item); err != nil {
			return err
		}
		item.Role = RoleRaw
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
	}

	if err := s.repo.AppendRaw(ctx, items); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("raw videos added", "count", len(items))
	}
	return nil
}

func (s *Service) Reference(ctx context.Context) (*MediaItem, error) {
	return s.repo.Reference(ctx)
}

func (s *Service) RawPool(ctx context.Context) ([]*MediaItem, error) {
	return s.repo.RawPool(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*MediaItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *Service) CountRaw(ctx context.Context) (int, error) {
	return s.repo.CountRaw(ctx)
}

// SetCategory tags a registered item. Categories guide the matching
// step toward footage from the same part of the wedding.
func (s *Service) SetCategory(ctx context.Context, id string, category Category) (*MediaItem, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	if err := s.repo.SetCategory(ctx, id, category); err != nil {
		return nil, ErrNotFound
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("category set", "media_id", id, "category", category)
	}
	return item, nil
}

func (s *Service) CategoryCounts(ctx context.Context) (map[Category]int, error) {
	return s.repo.CategoryCounts(ctx)
}

func validateItem(item *MediaItem) error {
	if item == nil {
		return ErrInvalidItem
	}
	if item.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if item.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidItem)
	}
	if item.Locator == "" {
		return fmt.Errorf("%w: missing locator", ErrInvalidItem)
	}
	if item.Category != "" && !item.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, item.Category)
	}
	return nil
}

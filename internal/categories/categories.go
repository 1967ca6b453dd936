// Package categories creates, reads, updates and deletes the categories of an owner.
package categories

import (
	"context"
	"errors"

	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
	"go.uber.org/zap"
)

// Repository is the category persistence used by the service. Implementations return
// store.ErrNotFound for a missing category and store.ErrStale for a failed version check.
type Repository interface {
	ListCategories(ctx context.Context, ownerId string) ([]model.Category, error)
	FindCategory(ctx context.Context, ownerId string, id int64) (*model.Category, error)
	CategoryExists(ctx context.Context, ownerId string, id int64) (bool, error)
	InsertCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, ownerId string, id int64) (bool, error)
}

// Relationships reads the membership links of a category.
type Relationships interface {
	ContactIds(ctx context.Context, categoryId int64) ([]int64, error)
}

// Service implements the category operations.
type Service struct {
	repo Repository
	rel  Relationships
	log  *zap.SugaredLogger
}

// New returns a Service.
func New(repo Repository, rel Relationships, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, rel: rel, log: log}
}

// ListForOwner returns the categories of the owner in the order they were created. Member ids
// are not loaded.
func (s *Service) ListForOwner(ctx context.Context, ownerId string) ([]model.Category, error) {
	categories, err := s.repo.ListCategories(ctx, ownerId)
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return categories, nil
}

// Get returns the category together with the ids of its member contacts.
func (s *Service) Get(ctx context.Context, ownerId string, id int64) (*model.Category, error) {
	category, err := s.find(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	category.Contacts, err = s.rel.ContactIds(ctx, category.Id)
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return category, nil
}

// Create stores a new category for the owner.
func (s *Service) Create(ctx context.Context, ownerId string, fields model.CategoryFields) (*model.Category, error) {
	fields.Trim()
	if err := model.Validate(&fields); err != nil {
		return nil, err
	}
	category := &model.Category{OwnerId: ownerId, Name: fields.Name, Contacts: []int64{}}
	if err := s.repo.InsertCategory(ctx, category); err != nil {
		return nil, apperr.FatalError(err)
	}
	s.log.Infow("category created", "owner", ownerId, "category", category.Id)
	return category, nil
}

// Update renames the category, provided that the stored version still equals version. The owner
// never changes.
func (s *Service) Update(ctx context.Context, ownerId string, id int64, version int64,
	fields model.CategoryFields) (*model.Category, error) {
	fields.Trim()
	if err := model.Validate(&fields); err != nil {
		return nil, err
	}
	if version <= 0 {
		return nil, apperr.Invalid("version", "is required")
	}
	existing, err := s.find(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}

	category := &model.Category{Id: existing.Id, OwnerId: existing.OwnerId, Name: fields.Name, Version: version}
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		if !errors.Is(err, store.ErrStale) {
			return nil, apperr.FatalError(err)
		}
		exists, err := s.repo.CategoryExists(ctx, ownerId, id)
		if err != nil {
			return nil, apperr.FatalError(err)
		}
		if !exists {
			return nil, apperr.NotFoundf("category not found")
		}
		s.log.Infow("category update conflict", "owner", ownerId, "category", id)
		return nil, apperr.Conflictf("category was changed by someone else")
	}
	s.log.Infow("category updated", "owner", ownerId, "category", id, "version", category.Version)

	category.Contacts, err = s.rel.ContactIds(ctx, category.Id)
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return category, nil
}

// Delete removes the category. Its membership links go with it in the same statement through
// the cascade on the join table, the member contacts are kept.
func (s *Service) Delete(ctx context.Context, ownerId string, id int64) error {
	if _, err := s.find(ctx, ownerId, id); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteCategory(ctx, ownerId, id)
	if err != nil {
		return apperr.FatalError(err)
	}
	if !deleted {
		return apperr.NotFoundf("category not found")
	}
	s.log.Infow("category deleted", "owner", ownerId, "category", id)
	return nil
}

func (s *Service) find(ctx context.Context, ownerId string, id int64) (*model.Category, error) {
	category, err := s.repo.FindCategory(ctx, ownerId, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("category not found")
	}
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return category, nil
}

// Package contacts creates, reads, updates and deletes the contacts of an owner. The owner is
// always passed explicitly and every lookup is restricted to it, so a contact never leaks to
// another owner. Membership links go through the relationship service and uploaded images
// through imagecapture.
package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	"gitlab.com/dirk.krummacker/contacts-service/internal/imagecapture"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
	"go.uber.org/zap"
)

// Repository is the contact persistence used by the service. Implementations return
// store.ErrNotFound for a missing contact and store.ErrStale for a failed version check.
type Repository interface {
	ListContacts(ctx context.Context, ownerId string) ([]model.Contact, error)
	ListContactsInCategory(ctx context.Context, ownerId string, categoryId int64) ([]model.Contact, error)
	SearchContacts(ctx context.Context, ownerId string, query string) ([]model.Contact, error)
	FindContact(ctx context.Context, ownerId string, id int64) (*model.Contact, error)
	ContactExists(ctx context.Context, ownerId string, id int64) (bool, error)
	InsertContact(ctx context.Context, contact *model.Contact) error
	UpdateContact(ctx context.Context, contact *model.Contact) error
	DeleteContact(ctx context.Context, ownerId string, id int64) (bool, error)
}

// Relationships maintains the membership links of a contact.
type Relationships interface {
	Attach(ctx context.Context, ownerId string, contactId int64, categoryIds []int64) error
	Replace(ctx context.Context, ownerId string, contactId int64, categoryIds []int64) error
	CategoryIds(ctx context.Context, contactId int64) ([]int64, error)
}

// Service implements the contact operations.
type Service struct {
	repo Repository
	rel  Relationships
	log  *zap.SugaredLogger
	now  func() time.Time
}

// New returns a Service.
func New(repo Repository, rel Relationships, log *zap.SugaredLogger) *Service {
	return &Service{repo: repo, rel: rel, log: log, now: time.Now}
}

// ListForOwner returns the contacts of the owner ordered by last name and first name. With a
// category filter only members of that category are returned; a category of another owner
// matches nothing. Categories of the returned contacts are not loaded.
func (s *Service) ListForOwner(ctx context.Context, ownerId string, categoryId *int64) ([]model.Contact, error) {
	var contacts []model.Contact
	var err error
	if categoryId != nil {
		contacts, err = s.repo.ListContactsInCategory(ctx, ownerId, *categoryId)
	} else {
		contacts, err = s.repo.ListContacts(ctx, ownerId)
	}
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return contacts, nil
}

// Search returns the contacts of the owner whose full name contains query as given, ignoring
// case. A blank query returns the same list as ListForOwner without a filter.
func (s *Service) Search(ctx context.Context, ownerId string, query string) ([]model.Contact, error) {
	if strings.TrimSpace(query) == "" {
		return s.ListForOwner(ctx, ownerId, nil)
	}
	contacts, err := s.repo.SearchContacts(ctx, ownerId, query)
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return contacts, nil
}

// Get returns the contact together with its category ids.
func (s *Service) Get(ctx context.Context, ownerId string, id int64) (*model.Contact, error) {
	contact, err := s.find(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	contact.Categories, err = s.rel.CategoryIds(ctx, contact.Id)
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return contact, nil
}

// Create stores a new contact for the owner and links it to the categories in categoryIds that
// belong to the owner. If the contact was stored but the links could not be written, the
// contact is returned together with an Association error.
func (s *Service) Create(ctx context.Context, ownerId string, fields model.ContactFields,
	upload *imagecapture.Upload, categoryIds []int64) (*model.Contact, error) {
	fields.Trim()
	if err := model.Validate(&fields); err != nil {
		return nil, err
	}
	contact := &model.Contact{
		OwnerId:   ownerId,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	apply(contact, fields)
	if upload != nil {
		image, err := imagecapture.Capture(*upload)
		if err != nil {
			return nil, err
		}
		contact.ImageBytes = image.Bytes
		contact.ImageType = &image.Type
	}

	if err := s.repo.InsertContact(ctx, contact); err != nil {
		return nil, apperr.FatalError(err)
	}
	s.log.Infow("contact created", "owner", ownerId, "contact", contact.Id)

	contact.Categories = []int64{}
	if len(categoryIds) > 0 {
		if err := s.rel.Attach(ctx, ownerId, contact.Id, categoryIds); err != nil {
			s.log.Errorw("attaching categories failed", "owner", ownerId, "contact", contact.Id, "error", err)
			return contact, apperr.AssociationError(err)
		}
		ids, err := s.rel.CategoryIds(ctx, contact.Id)
		if err != nil {
			return contact, apperr.AssociationError(err)
		}
		contact.Categories = ids
	}
	return contact, nil
}

// Update replaces the fields of the contact, provided that the stored version still equals
// version. Owner and creation time are kept from the stored record, and so is the image unless a
// new upload is given. A nil categoryIds leaves the memberships untouched; any other value,
// including an empty slice, replaces them.
//
// If the contact changed since it was read, the result is a Conflict error, or NotFound if it was
// removed in the meantime.
func (s *Service) Update(ctx context.Context, ownerId string, id int64, version int64,
	fields model.ContactFields, upload *imagecapture.Upload, categoryIds []int64) (*model.Contact, error) {
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

	contact := &model.Contact{
		Id:         existing.Id,
		OwnerId:    existing.OwnerId,
		CreatedAt:  existing.CreatedAt.UTC(),
		ImageBytes: existing.ImageBytes,
		ImageType:  existing.ImageType,
		Version:    version,
	}
	apply(contact, fields)
	if upload != nil {
		image, err := imagecapture.Capture(*upload)
		if err != nil {
			return nil, err
		}
		contact.ImageBytes = image.Bytes
		contact.ImageType = &image.Type
	}

	if err := s.repo.UpdateContact(ctx, contact); err != nil {
		if !errors.Is(err, store.ErrStale) {
			return nil, apperr.FatalError(err)
		}
		return nil, s.staleOutcome(ctx, ownerId, id)
	}
	s.log.Infow("contact updated", "owner", ownerId, "contact", id, "version", contact.Version)

	if categoryIds != nil {
		if err := s.rel.Replace(ctx, ownerId, contact.Id, categoryIds); err != nil {
			s.log.Errorw("replacing categories failed", "owner", ownerId, "contact", id, "error", err)
			return contact, apperr.AssociationError(err)
		}
	}
	ids, err := s.rel.CategoryIds(ctx, contact.Id)
	if err != nil {
		return contact, apperr.AssociationError(err)
	}
	contact.Categories = ids
	return contact, nil
}

// Delete removes the contact and, through the database, its membership links. Deleting a
// contact that does not exist is not an error.
func (s *Service) Delete(ctx context.Context, ownerId string, id int64) error {
	removed, err := s.repo.DeleteContact(ctx, ownerId, id)
	if err != nil {
		return apperr.FatalError(err)
	}
	if removed {
		s.log.Infow("contact deleted", "owner", ownerId, "contact", id)
	}
	return nil
}

func (s *Service) find(ctx context.Context, ownerId string, id int64) (*model.Contact, error) {
	contact, err := s.repo.FindContact(ctx, ownerId, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("contact not found")
	}
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return contact, nil
}

// staleOutcome decides between NotFound and Conflict after a failed version check.
func (s *Service) staleOutcome(ctx context.Context, ownerId string, id int64) error {
	exists, err := s.repo.ContactExists(ctx, ownerId, id)
	if err != nil {
		return apperr.FatalError(err)
	}
	if !exists {
		return apperr.NotFoundf("contact not found")
	}
	s.log.Infow("contact update conflict", "owner", ownerId, "contact", id)
	return apperr.Conflictf("contact was changed by someone else")
}

// apply copies the editable fields onto the contact. The birthday is reduced to its calendar
// date so that it does not drift between time zones.
func apply(contact *model.Contact, fields model.ContactFields) {
	contact.FirstName = fields.FirstName
	contact.LastName = fields.LastName
	contact.Birthday = calendarDate(fields.Birthday)
	contact.Address1 = fields.Address1
	contact.Address2 = fields.Address2
	contact.City = fields.City
	contact.State = fields.State
	contact.ZipCode = fields.ZipCode
	contact.Email = fields.Email
	contact.Phone = fields.Phone
}

// calendarDate returns midnight UTC of the date that t shows in its own location.
func calendarDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &date
}

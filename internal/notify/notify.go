// Package notify resolves contacts and categories into recipient addresses and hands one
// message per address to the mail transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
	"go.uber.org/zap"
)

// Mailer delivers one message to one address.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Directory resolves the recipients. All lookups are scoped to the owner.
type Directory interface {
	FindContact(ctx context.Context, ownerId string, id int64) (*model.Contact, error)
	FindCategory(ctx context.Context, ownerId string, id int64) (*model.Category, error)
	ListContactsInCategory(ctx context.Context, ownerId string, categoryId int64) ([]model.Contact, error)
}

// Result reports a successful dispatch.
type Result struct {
	Recipients int `json:"recipients"`
}

// Dispatcher sends messages to contacts and categories.
type Dispatcher struct {
	dir    Directory
	mailer Mailer
	log    *zap.SugaredLogger
	sends  *prometheus.CounterVec
}

// New returns a Dispatcher. sends counts transport requests by result and may be nil.
func New(dir Directory, mailer Mailer, log *zap.SugaredLogger, sends *prometheus.CounterVec) *Dispatcher {
	return &Dispatcher{dir: dir, mailer: mailer, log: log, sends: sends}
}

// ComposeForContact pre-populates a message to a single contact.
func (d *Dispatcher) ComposeForContact(ctx context.Context, ownerId string, contactId int64) (*model.EmailMessage, error) {
	contact, err := d.contact(ctx, ownerId, contactId)
	if err != nil {
		return nil, err
	}
	return &model.EmailMessage{
		EmailAddress: deref(contact.Email),
		FirstName:    contact.FirstName,
		LastName:     contact.LastName,
	}, nil
}

// ComposeForCategory pre-populates a group message with the addresses of all members.
func (d *Dispatcher) ComposeForCategory(ctx context.Context, ownerId string, categoryId int64) (*model.EmailMessage, error) {
	category, addresses, err := d.members(ctx, ownerId, categoryId)
	if err != nil {
		return nil, err
	}
	return &model.EmailMessage{
		EmailAddress: strings.Join(addresses, ";"),
		EmailSubject: fmt.Sprintf("Group Message: %s", category.Name),
		GroupName:    category.Name,
	}, nil
}

// SendToContact sends one message to the contact. Any transport failure is reported as an IO
// error, nothing is retried.
func (d *Dispatcher) SendToContact(ctx context.Context, ownerId string, contactId int64,
	content model.EmailContent) (*Result, error) {
	if err := model.Validate(&content); err != nil {
		return nil, err
	}
	contact, err := d.contact(ctx, ownerId, contactId)
	if err != nil {
		return nil, err
	}
	if contact.Email == nil {
		return nil, apperr.Invalid("email", "contact has no email address")
	}
	if err := d.send(ctx, *contact.Email, content); err != nil {
		d.log.Warnw("mail to contact failed", "owner", ownerId, "contact", contactId, "error", err)
		return nil, apperr.IOError("failed to send", err)
	}
	d.log.Infow("mail sent to contact", "owner", ownerId, "contact", contactId)
	return &Result{Recipients: 1}, nil
}

// SendToCategory sends one message per member address, in member order. The first failing
// send aborts the remaining ones and the whole dispatch fails.
func (d *Dispatcher) SendToCategory(ctx context.Context, ownerId string, categoryId int64,
	content model.EmailContent) (*Result, error) {
	if err := model.Validate(&content); err != nil {
		return nil, err
	}
	_, addresses, err := d.members(ctx, ownerId, categoryId)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, apperr.Invalid("email", "category has no member with an email address")
	}
	for i, address := range addresses {
		if err := d.send(ctx, address, content); err != nil {
			d.log.Warnw("group mail failed", "owner", ownerId, "category", categoryId,
				"sent", i, "recipients", len(addresses), "error", err)
			return nil, apperr.IOError("failed to send", err)
		}
	}
	d.log.Infow("group mail sent", "owner", ownerId, "category", categoryId, "recipients", len(addresses))
	return &Result{Recipients: len(addresses)}, nil
}

func (d *Dispatcher) send(ctx context.Context, address string, content model.EmailContent) error {
	err := d.mailer.Send(ctx, address, content.Subject, content.Body)
	if d.sends != nil {
		result := "sent"
		if err != nil {
			result = "failed"
		}
		d.sends.WithLabelValues(result).Inc()
	}
	return err
}

func (d *Dispatcher) contact(ctx context.Context, ownerId string, id int64) (*model.Contact, error) {
	contact, err := d.dir.FindContact(ctx, ownerId, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("contact not found")
	}
	if err != nil {
		return nil, apperr.FatalError(err)
	}
	return contact, nil
}

// members returns the category and the addresses of its members. Members without an address
// are skipped, duplicates are kept.
func (d *Dispatcher) members(ctx context.Context, ownerId string, id int64) (*model.Category, []string, error) {
	category, err := d.dir.FindCategory(ctx, ownerId, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.NotFoundf("category not found")
	}
	if err != nil {
		return nil, nil, apperr.FatalError(err)
	}
	contacts, err := d.dir.ListContactsInCategory(ctx, ownerId, id)
	if err != nil {
		return nil, nil, apperr.FatalError(err)
	}
	addresses := []string{}
	for _, c := range contacts {
		if c.Email != nil {
			addresses = append(addresses, *c.Email)
		}
	}
	return category, addresses, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

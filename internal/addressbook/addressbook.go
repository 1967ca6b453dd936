// Package addressbook maintains the many-to-many membership links between contacts and
// categories. Lifecycle code never touches the contact_categories table directly.
//
// Replacing the memberships of a contact is done by removing all links and attaching the new
// set inside one transaction, so that no reader sees the links attached before the old ones are
// gone.
package addressbook

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Service is the membership link store.
type Service struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

// New returns a Service on the database.
func New(db *sqlx.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Attach links the contact to each category in categoryIds that belongs to the owner. Ids that do
// not resolve to a category of the owner are skipped, and links that already exist are kept.
func (s *Service) Attach(ctx context.Context, ownerId string, contactId int64, categoryIds []int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return s.attach(ctx, tx, ownerId, contactId, categoryIds)
	})
}

// DetachAll removes every membership link of the contact.
func (s *Service) DetachAll(ctx context.Context, contactId int64) error {
	return detachAll(ctx, s.db, contactId)
}

// Replace makes categoryIds the complete membership set of the contact. An empty set removes all
// links.
func (s *Service) Replace(ctx context.Context, ownerId string, contactId int64, categoryIds []int64) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := detachAll(ctx, tx, contactId); err != nil {
			return err
		}
		return s.attach(ctx, tx, ownerId, contactId, categoryIds)
	})
}

// CategoryIds returns the ids of the categories the contact is a member of, in ascending order.
func (s *Service) CategoryIds(ctx context.Context, contactId int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT category_id FROM contact_categories WHERE contact_id = ? ORDER BY category_id
	`, contactId)
	if err != nil {
		return nil, errors.Wrap(err, "select category ids")
	}
	return ids, nil
}

// ContactIds returns the ids of the member contacts of the category, in ascending order.
func (s *Service) ContactIds(ctx context.Context, categoryId int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT contact_id FROM contact_categories WHERE category_id = ? ORDER BY contact_id
	`, categoryId)
	if err != nil {
		return nil, errors.Wrap(err, "select contact ids")
	}
	return ids, nil
}

func (s *Service) attach(ctx context.Context, tx *sqlx.Tx, ownerId string, contactId int64, categoryIds []int64) error {
	for _, categoryId := range unique(categoryIds) {
		// The select only yields a row if the category exists and belongs to the owner.
		result, err := tx.ExecContext(ctx, `
			INSERT IGNORE INTO contact_categories (contact_id, category_id)
			SELECT ?, id FROM categories WHERE id = ? AND owner_id = ?
		`, contactId, categoryId, ownerId)
		if err != nil {
			return errors.Wrapf(err, "attach category %d", categoryId)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			s.log.Debugw("category not attached", "contact", contactId, "category", categoryId)
		}
	}
	return nil
}

func detachAll(ctx context.Context, exec sqlx.ExecerContext, contactId int64) error {
	_, err := exec.ExecContext(ctx, "DELETE FROM contact_categories WHERE contact_id = ?", contactId)
	return errors.Wrap(err, "detach contact")
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Warnw("rollback failed", "error", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// unique returns ids without duplicates, keeping the first occurrence.
func unique(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

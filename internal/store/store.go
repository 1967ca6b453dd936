// Package store persists contacts and categories in MySQL. Every query is filtered by the owner;
// the database itself does not enforce row level security. Updates are checked against the
// version that the caller read.
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
)

// ErrNotFound is returned if no row matches the id and the owner.
var ErrNotFound = errors.New("record not found")

// ErrStale is returned if an update did not match any row because the record was changed or
// removed since it was read, or because it belongs to another owner.
var ErrStale = errors.New("record changed since it was read")

// contactColumns are the columns of the contacts table in the order used by all selects.
var contactColumns = []string{
	"id", "owner_id", "firstname", "lastname", "birthday", "address1", "address2", "city",
	"state", "zipcode", "email", "phone", "created_at", "image_bytes", "image_type", "version",
}

// contactOrder is the ordering of every contact list.
const contactOrder = "ORDER BY c.lastname, c.firstname, c.id"

// Store is a handle to the database together with its prepared statements.
type Store struct {
	db *sqlx.DB

	// insertContact is a prepared statement for creating a contact.
	insertContact *sqlx.NamedStmt

	// selectContactWhereId is a prepared statement for selecting a contact by id and owner.
	selectContactWhereId *sqlx.Stmt

	// deleteContactWhereId is a prepared statement for deleting a contact by id and owner.
	deleteContactWhereId *sqlx.Stmt

	// insertCategory is a prepared statement for creating a category.
	insertCategory *sqlx.NamedStmt

	// selectCategoryWhereId is a prepared statement for selecting a category by id and owner.
	selectCategoryWhereId *sqlx.Stmt

	// deleteCategoryWhereId is a prepared statement for deleting a category by id and owner.
	deleteCategoryWhereId *sqlx.Stmt
}

// New wraps the database and prepares all statements. The database can be a real database for
// production use or a mock database within unit tests.
func New(ctx context.Context, db *sqlx.DB) (*Store, error) {
	s := &Store{db: db}
	var err error

	// Prepared statements offer a significant speed increase if executed many times.
	s.insertContact, err = db.PrepareNamedContext(ctx, `
		INSERT INTO contacts (owner_id, firstname, lastname, birthday, address1, address2, city,
			state, zipcode, email, phone, created_at, image_bytes, image_type, version)
		VALUES (:owner_id, :firstname, :lastname, :birthday, :address1, :address2, :city,
			:state, :zipcode, :email, :phone, :created_at, :image_bytes, :image_type, 1)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert contact")
	}
	s.selectContactWhereId, err = db.PreparexContext(ctx,
		"SELECT "+columns("c")+" FROM contacts c WHERE c.id = ? AND c.owner_id = ?")
	if err != nil {
		return nil, errors.Wrap(err, "prepare select contact")
	}
	s.deleteContactWhereId, err = db.PreparexContext(ctx, `
		DELETE FROM contacts WHERE id = ? AND owner_id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare delete contact")
	}
	s.insertCategory, err = db.PrepareNamedContext(ctx, `
		INSERT INTO categories (owner_id, name, version) VALUES (:owner_id, :name, 1)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert category")
	}
	s.selectCategoryWhereId, err = db.PreparexContext(ctx, `
		SELECT id, owner_id, name, version FROM categories WHERE id = ? AND owner_id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare select category")
	}
	s.deleteCategoryWhereId, err = db.PreparexContext(ctx, `
		DELETE FROM categories WHERE id = ? AND owner_id = ?
	`)
	if err != nil {
		return nil, errors.Wrap(err, "prepare delete category")
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close releases the prepared statements. The database handle stays open.
func (s *Store) Close() error {
	var first error
	for _, closer := range []interface{ Close() error }{
		s.insertContact, s.selectContactWhereId, s.deleteContactWhereId,
		s.insertCategory, s.selectCategoryWhereId, s.deleteCategoryWhereId,
	} {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// columns returns the contact columns qualified with the table alias.
func columns(alias string) string {
	qualified := make([]string, len(contactColumns))
	for i, col := range contactColumns {
		qualified[i] = alias + "." + col
	}
	return strings.Join(qualified, ", ")
}

// likeEscape is the escape character of search patterns. It is named in the ESCAPE clause, so
// the pattern means the same with or without the NO_BACKSLASH_ESCAPES mode.
const likeEscape = "!"

// likePattern builds a LIKE pattern that matches query anywhere, with the wildcard characters
// of query escaped by likeEscape.
func likePattern(query string) string {
	replacer := strings.NewReplacer(likeEscape, likeEscape+likeEscape, `%`, likeEscape+`%`, `_`, likeEscape+`_`)
	return "%" + replacer.Replace(strings.ToLower(query)) + "%"
}

// rowsAffected returns the number of rows changed by result.
func rowsAffected(result sql.Result, what string) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(err, "rows affected by %s", what)
	}
	return n, nil
}

// ListContacts returns all contacts of the owner ordered by last name and first name.
func (s *Store) ListContacts(ctx context.Context, ownerId string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := s.db.SelectContext(ctx, &contacts,
		"SELECT "+columns("c")+" FROM contacts c WHERE c.owner_id = ? "+contactOrder, ownerId)
	if err != nil {
		return nil, errors.Wrap(err, "select contacts")
	}
	return contacts, nil
}

// ListContactsInCategory returns the contacts of the owner that are members of the category.
// The category itself must belong to the owner, otherwise the result is empty.
func (s *Store) ListContactsInCategory(ctx context.Context, ownerId string, categoryId int64) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := s.db.SelectContext(ctx, &contacts, `
		SELECT `+columns("c")+`
		FROM contacts c
			JOIN contact_categories cc ON cc.contact_id = c.id
			JOIN categories g ON g.id = cc.category_id
		WHERE c.owner_id = ?
			AND g.owner_id = ?
			AND g.id = ?
		`+contactOrder, ownerId, ownerId, categoryId)
	if err != nil {
		return nil, errors.Wrap(err, "select contacts in category")
	}
	return contacts, nil
}

// SearchContacts returns the contacts of the owner whose full name contains the query,
// regardless of case.
func (s *Store) SearchContacts(ctx context.Context, ownerId string, query string) ([]model.Contact, error) {
	contacts := []model.Contact{}
	err := s.db.SelectContext(ctx, &contacts, `
		SELECT `+columns("c")+`
		FROM contacts c
		WHERE c.owner_id = ?
			AND LOWER(CONCAT(c.firstname, ' ', c.lastname)) LIKE ? ESCAPE '`+likeEscape+`'
		`+contactOrder, ownerId, likePattern(query))
	if err != nil {
		return nil, errors.Wrap(err, "search contacts")
	}
	return contacts, nil
}

// FindContact returns the contact with the id if it belongs to the owner.
func (s *Store) FindContact(ctx context.Context, ownerId string, id int64) (*model.Contact, error) {
	var contact model.Contact
	err := s.selectContactWhereId.GetContext(ctx, &contact, id, ownerId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select contact")
	}
	return &contact, nil
}

// ContactExists reports whether a contact with the id belongs to the owner.
func (s *Store) ContactExists(ctx context.Context, ownerId string, id int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM contacts WHERE id = ? AND owner_id = ?", id, ownerId)
	if err != nil {
		return false, errors.Wrap(err, "count contacts")
	}
	return count > 0, nil
}

// InsertContact creates the contact and sets its id and version.
func (s *Store) InsertContact(ctx context.Context, contact *model.Contact) error {
	result, err := s.insertContact.ExecContext(ctx, contact)
	if err != nil {
		return errors.Wrap(err, "insert contact")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "insert contact id")
	}
	contact.Id = id
	contact.Version = 1
	return nil
}

// UpdateContact writes all columns except id and owner if the stored version still equals
// contact.Version. On success the version is incremented. ErrStale is returned if no row
// matched.
func (s *Store) UpdateContact(ctx context.Context, contact *model.Contact) error {
	result, err := s.db.NamedExecContext(ctx, `
		UPDATE contacts
		SET firstname = :firstname,
			lastname = :lastname,
			birthday = :birthday,
			address1 = :address1,
			address2 = :address2,
			city = :city,
			state = :state,
			zipcode = :zipcode,
			email = :email,
			phone = :phone,
			created_at = :created_at,
			image_bytes = :image_bytes,
			image_type = :image_type,
			version = version + 1
		WHERE id = :id AND owner_id = :owner_id AND version = :version
	`, contact)
	if err != nil {
		return errors.Wrap(err, "update contact")
	}
	n, err := rowsAffected(result, "update contact")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	contact.Version++
	return nil
}

// DeleteContact removes the contact if it belongs to the owner. Its membership rows are removed
// by the foreign key cascade. It reports whether a row was removed.
func (s *Store) DeleteContact(ctx context.Context, ownerId string, id int64) (bool, error) {
	result, err := s.deleteContactWhereId.ExecContext(ctx, id, ownerId)
	if err != nil {
		return false, errors.Wrap(err, "delete contact")
	}
	n, err := rowsAffected(result, "delete contact")
	return n > 0, err
}

// ListCategories returns all categories of the owner in insertion order.
func (s *Store) ListCategories(ctx context.Context, ownerId string) ([]model.Category, error) {
	categories := []model.Category{}
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, owner_id, name, version FROM categories WHERE owner_id = ? ORDER BY id
	`, ownerId)
	if err != nil {
		return nil, errors.Wrap(err, "select categories")
	}
	return categories, nil
}

// FindCategory returns the category with the id if it belongs to the owner.
func (s *Store) FindCategory(ctx context.Context, ownerId string, id int64) (*model.Category, error) {
	var category model.Category
	err := s.selectCategoryWhereId.GetContext(ctx, &category, id, ownerId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select category")
	}
	return &category, nil
}

// CategoryExists reports whether a category with the id belongs to the owner.
func (s *Store) CategoryExists(ctx context.Context, ownerId string, id int64) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM categories WHERE id = ? AND owner_id = ?", id, ownerId)
	if err != nil {
		return false, errors.Wrap(err, "count categories")
	}
	return count > 0, nil
}

// InsertCategory creates the category and sets its id and version.
func (s *Store) InsertCategory(ctx context.Context, category *model.Category) error {
	result, err := s.insertCategory.ExecContext(ctx, category)
	if err != nil {
		return errors.Wrap(err, "insert category")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "insert category id")
	}
	category.Id = id
	category.Version = 1
	return nil
}

// UpdateCategory writes the name if the stored version still equals category.Version. On
// success the version is incremented. ErrStale is returned if no row matched.
func (s *Store) UpdateCategory(ctx context.Context, category *model.Category) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, version = version + 1
		WHERE id = ? AND owner_id = ? AND version = ?
	`, category.Name, category.Id, category.OwnerId, category.Version)
	if err != nil {
		return errors.Wrap(err, "update category")
	}
	n, err := rowsAffected(result, "update category")
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	category.Version++
	return nil
}

// DeleteCategory removes the category if it belongs to the owner. The cascade on the join table
// removes its membership links in the same statement, member contacts are not touched. It
// reports whether a row was removed.
func (s *Store) DeleteCategory(ctx context.Context, ownerId string, id int64) (bool, error) {
	result, err := s.deleteCategoryWhereId.ExecContext(ctx, id, ownerId)
	if err != nil {
		return false, errors.Wrap(err, "delete category")
	}
	n, err := rowsAffected(result, "delete category")
	return n > 0, err
}

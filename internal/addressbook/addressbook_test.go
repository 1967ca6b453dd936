package addressbook

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// createService builds the service on a mock database.
func createService(t *testing.T) (*Service, *sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return New(sqlx.NewDb(db, "mysql"), zap.NewNop().Sugar()), db, mock
}

// expectAttach instructs the mock object to expect one conditional insert of a link.
func expectAttach(mock sqlmock.Sqlmock, contactId int64, categoryId int64, owner string, inserted int64) {
	mock.ExpectExec("INSERT IGNORE INTO contact_categories").
		WithArgs(contactId, categoryId, owner).
		WillReturnResult(sqlmock.NewResult(0, inserted))
}

// TestAttach expects one conditional insert per distinct category id inside a transaction. The
// unknown id 99 inserts nothing and is not an error.
func TestAttach(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectBegin()
	expectAttach(mock, 5, 1, "owner-1", 1)
	expectAttach(mock, 5, 99, "owner-1", 0)
	expectAttach(mock, 5, 3, "owner-1", 1)
	mock.ExpectCommit()

	err := s.Attach(context.Background(), "owner-1", 5, []int64{1, 99, 1, 3})
	assert.NoError(t, err)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestAttachEmpty expects an empty transaction.
func TestAttachEmpty(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	assert.NoError(t, s.Attach(context.Background(), "owner-1", 5, nil))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestReplace expects that the old links are removed before the new ones are attached, all in
// one transaction.
func TestReplace(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contact_categories WHERE contact_id = \\?").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	expectAttach(mock, 5, 2, "owner-1", 1)
	expectAttach(mock, 5, 4, "owner-1", 1)
	mock.ExpectCommit()

	assert.NoError(t, s.Replace(context.Background(), "owner-1", 5, []int64{2, 4}))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestReplaceRollsBack expects a rollback if one of the inserts fails.
func TestReplaceRollsBack(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contact_categories WHERE contact_id = \\?").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT IGNORE INTO contact_categories").
		WillReturnError(errors.New("deadlock found"))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), "owner-1", 5, []int64{2})
	assert.Error(t, err)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestDetachAllWithoutLinks is a no-op success.
func TestDetachAllWithoutLinks(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM contact_categories WHERE contact_id = \\?").
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DetachAll(context.Background(), 8))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCategoryIds(t *testing.T) {
	s, db, mock := createService(t)
	defer db.Close()

	mock.ExpectQuery("SELECT category_id FROM contact_categories").
		WithArgs(int64(5)).
		WillReturnRows(mock.NewRows([]string{"category_id"}).AddRow(2).AddRow(4))

	ids, err := s.CategoryIds(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, unique([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, unique(nil))
}

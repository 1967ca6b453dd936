package service

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/contacts-service/internal/addressbook"
	"gitlab.com/dirk.krummacker/contacts-service/internal/categories"
	"gitlab.com/dirk.krummacker/contacts-service/internal/contacts"
	"gitlab.com/dirk.krummacker/contacts-service/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/notify"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
	"go.uber.org/zap"
)

const owner1 = "owner-1"

var contactColumns = []string{
	"id", "owner_id", "firstname", "lastname", "birthday", "address1", "address2", "city",
	"state", "zipcode", "email", "phone", "created_at", "image_bytes", "image_type", "version",
}

var created = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

// recordingMailer remembers every address it was asked to send to and fails for the addresses
// in fail.
type recordingMailer struct {
	sent []string
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	m.sent = append(m.sent, to)
	if m.fail[to] {
		return errors.New("connection refused")
	}
	return nil
}

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// expectPreparedStatements instructs the mock object to expect that several statements are being
// prepared.
func expectPreparedStatements(mock sqlmock.Sqlmock) {
	mock.ExpectPrepare("INSERT INTO contacts")
	mock.ExpectPrepare("SELECT (.+) FROM contacts c WHERE c.id")
	mock.ExpectPrepare("DELETE FROM contacts")
	mock.ExpectPrepare("INSERT INTO categories")
	mock.ExpectPrepare("SELECT (.+) FROM categories WHERE id")
	mock.ExpectPrepare("DELETE FROM categories")
}

// expectSingleContactSelect instructs the mock object to expect that a select statement for a
// single contact will be executed.
func expectSingleContactSelect(mock sqlmock.Sqlmock, id int64, first, last string, email driver.Value,
	image []byte, imageType driver.Value, version int64) {
	rows := mock.NewRows(contactColumns).
		AddRow(id, owner1, first, last, nil, nil, nil, nil, nil, nil, email, nil, created, image, imageType, version)
	mock.ExpectQuery("SELECT (.+) FROM contacts c WHERE c.id").
		WithArgs(id, owner1).
		WillReturnRows(rows)
}

// expectMissingContactSelect instructs the mock object to expect a select statement for a single
// contact that finds nothing.
func expectMissingContactSelect(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery("SELECT (.+) FROM contacts c WHERE c.id").
		WithArgs(id, owner1).
		WillReturnRows(mock.NewRows(contactColumns))
}

// expectSingleCategorySelect instructs the mock object to expect a select statement for a single
// category.
func expectSingleCategorySelect(mock sqlmock.Sqlmock, id int64, name string, version int64) {
	mock.ExpectQuery("SELECT (.+) FROM categories WHERE id").
		WithArgs(id, owner1).
		WillReturnRows(mock.NewRows([]string{"id", "owner_id", "name", "version"}).AddRow(id, owner1, name, version))
}

// initializeContactsService sets up the contacts service with the mock database and returns a
// handle to the gin engine against which requests can be executed.
func initializeContactsService(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, mailer notify.Mailer) *gin.Engine {
	expectPreparedStatements(mock)
	dbx := sqlx.NewDb(db, "mysql")
	s, err := store.New(context.Background(), dbx)
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	book := addressbook.New(dbx, log)
	m := metrics.New()
	if mailer == nil {
		mailer = &recordingMailer{}
	}
	svc := New(contacts.New(s, book, log), categories.New(s, book, log), notify.New(s, mailer, log, m.MailSends),
		m, log, Options{MaxUploadBytes: 1024})
	gin.SetMode(gin.ReleaseMode)
	return svc.Router()
}

// runTest executes the HTTP request with the specified arguments on behalf of owner1 and returns
// the response.
func runTest(router *gin.Engine, method string, url string, body io.Reader) *httptest.ResponseRecorder {
	return runRequest(router, method, url, body, "application/json", owner1)
}

func runRequest(router *gin.Engine, method, url string, body io.Reader, contentType, ownerId string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	if body == nil {
		body = strings.NewReader("")
	}
	request, _ := http.NewRequest(method, url, body)
	request.Header.Set("Content-Type", contentType)
	if ownerId != "" {
		request.Header.Set(OwnerHeader, ownerId)
	}
	router.ServeHTTP(recorder, request)
	return recorder
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMissingOwner expects that a request without owner is rejected before the database is
// touched.
func TestMissingOwner(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	recorder := runRequest(router, "GET", "/contacts", nil, "application/json", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	expectationsMet(t, mock)
}

// TestGetAll executes a GET request for all contacts of the owner. It expects that the JSON for a
// list of contacts is returned.
func TestGetAll(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	rows := mock.NewRows(contactColumns).
		AddRow(1, owner1, "Aaron", "Alpha", nil, nil, nil, nil, nil, nil, nil, "+420 111", created, nil, nil, 1).
		AddRow(2, owner1, "Berta", "Beta", nil, nil, nil, nil, nil, nil, nil, "+420 222", created, nil, nil, 4)
	mock.ExpectQuery("FROM contacts c WHERE c.owner_id = \\?").
		WithArgs(owner1).
		WillReturnRows(rows)

	recorder := runTest(router, "GET", "/contacts", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var contacts []api.ContactResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	require.Len(t, contacts, 2)
	assert.Equal(t, "Aaron Alpha", contacts[0].FullName)
	assert.Equal(t, "+420 111", *contacts[0].Phone)
	assert.Equal(t, model.DefaultImage, contacts[0].Image)
	assert.Equal(t, int64(4), contacts[1].Version)
	expectationsMet(t, mock)
}

// TestGetAllInCategory filters the list by category.
func TestGetAllInCategory(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectQuery("JOIN contact_categories").
		WithArgs(owner1, owner1, int64(7)).
		WillReturnRows(mock.NewRows(contactColumns))

	recorder := runTest(router, "GET", "/contacts?category=7", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]", recorder.Body.String())

	recorder = runTest(router, "GET", "/contacts?category=seven", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	expectationsMet(t, mock)
}

// TestSearch passes the escaped query to the database.
func TestSearch(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectQuery("LIKE \\?").
		WithArgs(owner1, "%muster%").
		WillReturnRows(mock.NewRows(contactColumns))

	recorder := runTest(router, "GET", "/contacts/search?q=Muster", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	expectationsMet(t, mock)
}

// TestGet executes a GET request for a single contact with a valid ID. It expects that the JSON
// for the contact is returned with the image as a data URI and the category ids.
func TestGet(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleContactSelect(mock, 29, "Erika", "Mustermann", "erika@example.com", []byte{1, 2, 3}, "image/png", 3)
	mock.ExpectQuery("SELECT category_id FROM contact_categories").
		WithArgs(int64(29)).
		WillReturnRows(mock.NewRows([]string{"category_id"}).AddRow(4).AddRow(7))

	recorder := runTest(router, "GET", "/contacts/29", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	var contact api.ContactResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	assert.Equal(t, int64(29), contact.Id)
	assert.Equal(t, "erika@example.com", *contact.Email)
	assert.Equal(t, "data:image/png;base64,AQID", contact.Image)
	assert.Equal(t, []int64{4, 7}, contact.CategoryIds)
	assert.Equal(t, created, contact.CreatedAt)
	expectationsMet(t, mock)
}

// TestGetInvalidId expects 404 without a database call for an id that is not a number.
func TestGetInvalidId(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	for _, url := range []string{"/contacts/abc", "/categories/abc", "/contacts/0"} {
		recorder := runTest(router, "GET", url, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code, url)
		assert.JSONEq(t, `{"message": "invalid id parameter"}`, recorder.Body.String())
	}
	expectationsMet(t, mock)
}

// TestGetNotFound expects 404 for a contact that does not belong to the owner.
func TestGetNotFound(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectMissingContactSelect(mock, 30)

	recorder := runTest(router, "GET", "/contacts/30", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.JSONEq(t, `{"message": "contact not found"}`, recorder.Body.String())
	expectationsMet(t, mock)
}

// TestPost creates a contact with a category. It expects the new id and the attached category in
// the response.
func TestPost(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(56, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO contact_categories").
		WithArgs(int64(56), int64(7), owner1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT category_id FROM contact_categories").
		WithArgs(int64(56)).
		WillReturnRows(mock.NewRows([]string{"category_id"}).AddRow(7))

	body := `{"firstname": " Hans ", "lastname": "Wurst", "birthday": "1969-03-02", "state": "ny", "categoryIds": [7]}`
	recorder := runTest(router, "POST", "/contacts", strings.NewReader(body))
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var contact api.ContactResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	assert.Equal(t, int64(56), contact.Id)
	assert.Equal(t, "Hans", contact.FirstName)
	assert.Equal(t, "NY", *contact.State)
	assert.Equal(t, "1969-03-02", contact.Birthday.Format(api.DateLayout))
	assert.Equal(t, int64(1), contact.Version)
	assert.Equal(t, []int64{7}, contact.CategoryIds)
	expectationsMet(t, mock)
}

// TestPostAssociationFailure expects the saved contact in the body of the 500 response when the
// category links could not be written.
func TestPostAssociationFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(57, 1))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT IGNORE INTO contact_categories").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	body := `{"firstname": "Hans", "lastname": "Wurst", "categoryIds": [7]}`
	recorder := runTest(router, "POST", "/contacts", strings.NewReader(body))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response struct {
		Message string              `json:"message"`
		Contact api.ContactResponse `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, int64(57), response.Contact.Id)
	assert.NotContains(t, recorder.Body.String(), "deadlock")
	expectationsMet(t, mock)
}

// TestPostInvalid expects the offending fields in a 400 response.
func TestPostInvalid(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	recorder := runTest(router, "POST", "/contacts", strings.NewReader(`{"lastname": "W", "email": "nope"}`))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var response api.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, map[string]string{
		"firstname": "is required",
		"lastname":  "must be at least 2 characters long",
		"email":     "is not a valid email address",
	}, response.Fields)

	recorder = runTest(router, "POST", "/contacts", strings.NewReader(`{"firstname": `))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	expectationsMet(t, mock)
}

// TestPostTooLarge expects 413 for a body beyond the upload limit.
func TestPostTooLarge(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	body := `{"firstname": "` + strings.Repeat("a", 2048) + `"}`
	recorder := runTest(router, "POST", "/contacts", strings.NewReader(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	expectationsMet(t, mock)
}

// TestPostMultipart creates a contact with an uploaded image.
func TestPostMultipart(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(58, 1))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("contact", `{"firstname": "Hans", "lastname": "Wurst"}`))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="hans.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	recorder := runRequest(router, "POST", "/contacts", &body, writer.FormDataContentType(), owner1)
	assert.Equal(t, http.StatusCreated, recorder.Code)

	var contact api.ContactResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	assert.Equal(t, "data:image/png;base64,AQID", contact.Image)
	expectationsMet(t, mock)
}

// TestPutStale expects 409 when the stored version is newer than the submitted one.
func TestPutStale(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleContactSelect(mock, 29, "Erika", "Mustermann", nil, nil, nil, 3)
	mock.ExpectExec("UPDATE contacts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM contacts").
		WithArgs(int64(29), owner1).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(1))

	body := `{"firstname": "Erika", "lastname": "Musterfrau", "version": 2}`
	recorder := runTest(router, "PUT", "/contacts/29", strings.NewReader(body))
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), `"contact"`)
	expectationsMet(t, mock)
}

// TestPut replaces the fields and the memberships of a contact.
func TestPut(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleContactSelect(mock, 29, "Erika", "Mustermann", nil, nil, nil, 3)
	mock.ExpectExec("UPDATE contacts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contact_categories WHERE contact_id").
		WithArgs(int64(29)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT category_id FROM contact_categories").
		WithArgs(int64(29)).
		WillReturnRows(mock.NewRows([]string{"category_id"}))

	body := `{"firstname": "Erika", "lastname": "Musterfrau", "version": 3, "categoryIds": []}`
	recorder := runTest(router, "PUT", "/contacts/29", strings.NewReader(body))
	assert.Equal(t, http.StatusOK, recorder.Code)

	var contact api.ContactResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contact))
	assert.Equal(t, "Musterfrau", contact.LastName)
	assert.Equal(t, int64(4), contact.Version)
	assert.Empty(t, contact.CategoryIds)
	expectationsMet(t, mock)
}

// TestPutAssociationFailure expects 500 with the updated contact when the categories cannot be replaced.
func TestPutAssociationFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleContactSelect(mock, 29, "Erika", "Mustermann", nil, nil, nil, 3)
	mock.ExpectExec("UPDATE contacts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM contact_categories WHERE contact_id").
		WithArgs(int64(29)).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	body := `{"firstname": "Erika", "lastname": "Musterfrau", "version": 3, "categoryIds": [7]}`
	recorder := runTest(router, "PUT", "/contacts/29", strings.NewReader(body))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response struct {
		Message string              `json:"message"`
		Contact api.ContactResponse `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, int64(29), response.Contact.Id)
	assert.Equal(t, "Musterfrau", response.Contact.LastName)
	assert.Equal(t, int64(4), response.Contact.Version)
	assert.NotContains(t, recorder.Body.String(), "deadlock")
	expectationsMet(t, mock)
}

// TestDeleteCategoryFailure expects 500 when the category row cannot be removed.
func TestDeleteCategoryFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleCategorySelect(mock, 7, "Family", 2)
	mock.ExpectExec("DELETE FROM categories").
		WithArgs(int64(7), owner1).
		WillReturnError(errors.New("lock wait timeout"))

	recorder := runTest(router, "DELETE", "/categories/7", nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	expectationsMet(t, mock)
}

// TestPutWithoutVersion expects 400 before anything is read.
func TestPutWithoutVersion(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	recorder := runTest(router, "PUT", "/contacts/29", strings.NewReader(`{"firstname": "Erika", "lastname": "Musterfrau"}`))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"version": "is required"`)
	expectationsMet(t, mock)
}

// TestDelete expects success even if the contact did not exist.
func TestDelete(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectExec("DELETE FROM contacts").
		WithArgs(int64(56), owner1).
		WillReturnResult(sqlmock.NewResult(0, 0))

	recorder := runTest(router, "DELETE", "/contacts/56", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"message": "contact deleted"}`, recorder.Body.String())
	expectationsMet(t, mock)
}

func TestCreateCategory(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	mock.ExpectExec("INSERT INTO categories").WillReturnResult(sqlmock.NewResult(7, 1))

	recorder := runTest(router, "POST", "/categories", strings.NewReader(`{"name": "Family"}`))
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.JSONEq(t, `{"id": 7, "name": "Family", "version": 1}`, recorder.Body.String())

	recorder = runTest(router, "POST", "/categories", strings.NewReader(`{"name": "  "}`))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	expectationsMet(t, mock)
}

func TestGetCategories(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("FROM categories WHERE owner_id = \\? ORDER BY id").
			WithArgs(owner1).
			WillReturnRows(mock.NewRows([]string{"id", "owner_id", "name", "version"}).
				AddRow(7, owner1, "Family", 1).
				AddRow(9, owner1, "Work", 2))
	}

	recorder := runTest(router, "GET", "/categories", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[{"id": 7, "name": "Family", "version": 1}, {"id": 9, "name": "Work", "version": 2}]`,
		recorder.Body.String())

	recorder = runTest(router, "GET", "/categories/options", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[{"id": 7, "name": "Family"}, {"id": 9, "name": "Work"}]`, recorder.Body.String())
	expectationsMet(t, mock)
}

// TestGetCategory expects the member ids with the category.
func TestGetCategory(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleCategorySelect(mock, 7, "Family", 2)
	mock.ExpectQuery("SELECT contact_id FROM contact_categories").
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"contact_id"}).AddRow(29).AddRow(56))

	recorder := runTest(router, "GET", "/categories/7", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"id": 7, "name": "Family", "version": 2, "contactIds": [29, 56]}`, recorder.Body.String())
	expectationsMet(t, mock)
}

// TestPutCategoryRemoved expects 404 when the category disappeared between read and write.
func TestPutCategoryRemoved(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleCategorySelect(mock, 7, "Family", 2)
	mock.ExpectExec("UPDATE categories").
		WithArgs("Relatives", int64(7), owner1, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM categories").
		WithArgs(int64(7), owner1).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))

	recorder := runTest(router, "PUT", "/categories/7", strings.NewReader(`{"name": "Relatives", "version": 2}`))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	expectationsMet(t, mock)
}

// TestDeleteCategory removes the links before the category.
func TestDeleteCategory(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleCategorySelect(mock, 7, "Family", 2)
	mock.ExpectExec("DELETE FROM categories").
		WithArgs(int64(7), owner1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recorder := runTest(router, "DELETE", "/categories/7", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	expectationsMet(t, mock)
}

func expectMembers(mock sqlmock.Sqlmock, categoryId int64, emails ...string) {
	rows := mock.NewRows(contactColumns)
	for i, email := range emails {
		rows.AddRow(int64(i+1), owner1, "First", "Last", nil, nil, nil, nil, nil, nil, email, nil, created, nil, nil, 1)
	}
	mock.ExpectQuery("JOIN contact_categories").
		WithArgs(owner1, owner1, categoryId).
		WillReturnRows(rows)
}

// TestComposeCategoryEmail expects the joined addresses and the group subject.
func TestComposeCategoryEmail(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	expectSingleCategorySelect(mock, 7, "Family", 1)
	expectMembers(mock, 7, "a@x", "b@x")

	recorder := runTest(router, "GET", "/categories/7/email", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"emailAddress": "a@x;b@x", "emailSubject": "Group Message: Family", "emailBody": "",
		"groupName": "Family"}`, recorder.Body.String())
	expectationsMet(t, mock)
}

// TestSendCategoryEmailFailure expects 502 when one send fails. The remaining members are not
// sent to.
func TestSendCategoryEmailFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	mailer := &recordingMailer{fail: map[string]bool{"b@x": true}}
	router := initializeContactsService(t, db, mock, mailer)

	expectSingleCategorySelect(mock, 7, "Family", 1)
	expectMembers(mock, 7, "a@x", "b@x", "c@x")

	recorder := runTest(router, "POST", "/categories/7/email", strings.NewReader(`{"subject": "Hi", "body": "All"}`))
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Equal(t, []string{"a@x", "b@x"}, mailer.sent)
	assert.NotContains(t, recorder.Body.String(), "connection refused")
	expectationsMet(t, mock)
}

func TestSendContactEmail(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	mailer := &recordingMailer{}
	router := initializeContactsService(t, db, mock, mailer)

	expectSingleContactSelect(mock, 29, "Erika", "Mustermann", "erika@example.com", nil, nil, 1)

	recorder := runTest(router, "POST", "/contacts/29/email", strings.NewReader(`{"subject": "Hi", "body": "You"}`))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"recipients": 1}`, recorder.Body.String())
	assert.Equal(t, []string{"erika@example.com"}, mailer.sent)
	expectationsMet(t, mock)
}

func TestStatesHealthAndMetrics(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	recorder := runRequest(router, "GET", "/states", nil, "", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var states []string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &states))
	assert.Len(t, states, 51)

	recorder = runRequest(router, "GET", "/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = runRequest(router, "GET", "/metrics", nil, "", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `contacts_http_requests_total{method="GET",route="/states",status="200"} 1`)
	expectationsMet(t, mock)
}

// TestRequestId expects a generated request id, or the one the client sent.
func TestRequestId(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	router := initializeContactsService(t, db, mock, nil)

	recorder := runRequest(router, "GET", "/healthz", nil, "", "")
	assert.Len(t, recorder.Header().Get(RequestIdHeader), 36)

	request, _ := http.NewRequest("GET", "/healthz", nil)
	request.Header.Set(RequestIdHeader, "abc-123")
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, "abc-123", recorder.Header().Get(RequestIdHeader))
}

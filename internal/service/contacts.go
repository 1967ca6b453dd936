package service

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	"gitlab.com/dirk.krummacker/contacts-service/internal/imagecapture"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
)

// findContacts responds with the contacts of the owner as JSON, ordered by last name and first
// name. The URL parameter 'category' restricts the list to the members of that category.
//
// REST API calls:
//
//	> curl "http://localhost:8080/contacts" --header "X-Owner-ID: 42"
//	> curl "http://localhost:8080/contacts?category=7" --header "X-Owner-ID: 42"
func (s *Service) findContacts(c *gin.Context) {
	var categoryId *int64
	if param := c.Query("category"); param != "" {
		id, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid category parameter"})
			return
		}
		categoryId = &id
	}
	contacts, err := s.contacts.ListForOwner(c.Request.Context(), ownerOf(c), categoryId)
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	s.respondContacts(c, contacts)
}

// searchContacts responds with the contacts whose full name contains the URL parameter 'q',
// regardless of case.
//
// Example REST API call:
//
//	> curl "http://localhost:8080/contacts/search?q=muster" --header "X-Owner-ID: 42"
func (s *Service) searchContacts(c *gin.Context) {
	contacts, err := s.contacts.Search(c.Request.Context(), ownerOf(c), c.Query("q"))
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	s.respondContacts(c, contacts)
}

// createContact stores the contact specified in the request and responds with the full contact
// including the newly assigned id. The request is either JSON or a multipart form with the JSON
// in the field 'contact' and an optional file 'image'.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/contacts --request "POST" --header "X-Owner-ID: 42" --header "Content-Type: application/json" --data '{"firstname": "Hans", "lastname": "Wurst", "birthday": "1969-03-02", "categoryIds": [7]}'
//	> curl http://localhost:8080/contacts --request "POST" --header "X-Owner-ID: 42" --form 'contact={"firstname": "Hans", "lastname": "Wurst"}' --form "image=@hans.png;type=image/png"
func (s *Service) createContact(c *gin.Context) {
	req, image, ok := s.bindContact(c)
	if !ok {
		return
	}
	defer image.close()

	contact, err := s.contacts.Create(c.Request.Context(), ownerOf(c), fields(req), image.upload, req.CategoryIds)
	if err != nil {
		s.failContact(c, err, contact)
		return
	}
	c.IndentedJSON(http.StatusCreated, s.contactResponse(contact))
}

// findContactByID responds with the contact whose id matches the id parameter of the request URL.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --header "X-Owner-ID: 42"
func (s *Service) findContactByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	contact, err := s.contacts.Get(c.Request.Context(), ownerOf(c), id)
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, s.contactResponse(contact))
}

// updateContactByID replaces the values of the contact whose id matches the id parameter of the
// request URL and responds with the new version of the contact. The request must carry the
// version that was read; a newer stored version is answered with 409.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --request "PUT" --header "X-Owner-ID: 42" --header "Content-Type: application/json" --data '{"firstname": "Hans", "lastname": "Wurst", "phone": "81970", "version": 3}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	req, image, ok := s.bindContact(c)
	if !ok {
		return
	}
	defer image.close()

	contact, err := s.contacts.Update(c.Request.Context(), ownerOf(c), id, req.Version, fields(req),
		image.upload, req.CategoryIds)
	if err != nil {
		s.failContact(c, err, contact)
		return
	}
	c.IndentedJSON(http.StatusOK, s.contactResponse(contact))
}

// deleteContactByID deletes the contact whose id matches the id parameter of the request URL.
// Deleting a contact that does not exist succeeds as well.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --request "DELETE" --header "X-Owner-ID: 42"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	if err := s.contacts.Delete(c.Request.Context(), ownerOf(c), id); err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// uploadedImage is the optional image of a multipart request.
type uploadedImage struct {
	upload *imagecapture.Upload
	file   multipart.File
}

func (u uploadedImage) close() {
	if u.file != nil {
		_ = u.file.Close()
	}
}

// bindContact reads a contact from a JSON or multipart request. The body size is limited.
func (s *Service) bindContact(c *gin.Context) (*api.ContactRequest, uploadedImage, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	var req api.ContactRequest
	var image uploadedImage

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.abortBind(c, err, "invalid JSON")
			return nil, image, false
		}
		return &req, image, true
	}

	if err := c.Request.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.abortBind(c, err, "invalid multipart form")
		return nil, image, false
	}
	if err := json.Unmarshal([]byte(c.PostForm("contact")), &req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON in field contact"})
		return nil, image, false
	}
	file, header, err := c.Request.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return &req, image, true
	}
	if err != nil {
		s.fail(c, apperr.IOError("image upload could not be read", err), "", nil)
		return nil, image, false
	}
	image.file = file
	image.upload = &imagecapture.Upload{Reader: file, ContentType: header.Header.Get("Content-Type")}
	return &req, image, true
}

func (s *Service) abortBind(c *gin.Context, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request too large"})
		return
	}
	if errors.Is(err, io.EOF) {
		message = "missing request body"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": message})
}

// fields converts the request into the editable values of a contact.
func fields(req *api.ContactRequest) model.ContactFields {
	f := model.ContactFields{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address1:  req.Address1,
		Address2:  req.Address2,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if req.Birthday != nil {
		birthday := req.Birthday.Time
		f.Birthday = &birthday
	}
	return f
}

func (s *Service) respondContacts(c *gin.Context, contacts []model.Contact) {
	out := make([]*api.ContactResponse, 0, len(contacts))
	for i := range contacts {
		out = append(out, s.contactResponse(&contacts[i]))
	}
	c.IndentedJSON(http.StatusOK, out)
}

// failContact answers a failed contact write. A contact that was saved anyway goes into the body.
func (s *Service) failContact(c *gin.Context, err error, contact *model.Contact) {
	if contact == nil {
		s.fail(c, err, "", nil)
		return
	}
	s.fail(c, err, "contact", s.contactResponse(contact))
}

// contactResponse converts a stored contact. An image that cannot be rendered is replaced by the
// default image.
func (s *Service) contactResponse(contact *model.Contact) *api.ContactResponse {
	if contact == nil {
		return nil
	}
	image, err := imagecapture.Render(contact.ImageBytes, contact.ImageType)
	if err != nil {
		s.log.Warnw("image not rendered", "contact", contact.Id, "error", err)
		image = model.DefaultImage
	}
	out := &api.ContactResponse{
		Id:          contact.Id,
		FirstName:   contact.FirstName,
		LastName:    contact.LastName,
		FullName:    contact.FullName(),
		Address1:    contact.Address1,
		Address2:    contact.Address2,
		City:        contact.City,
		State:       contact.State,
		ZipCode:     contact.ZipCode,
		Email:       contact.Email,
		Phone:       contact.Phone,
		CreatedAt:   contact.CreatedAt,
		Image:       image,
		Version:     contact.Version,
		CategoryIds: contact.Categories,
	}
	if contact.Birthday != nil {
		out.Birthday = &api.Date{Time: *contact.Birthday}
	}
	return out
}

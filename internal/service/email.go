package service

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/notify"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
)

// composeContactEmail responds with the pre-populated compose form for one contact.
func (s *Service) composeContactEmail(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	form, err := s.dispatch.ComposeForContact(c.Request.Context(), ownerOf(c), id)
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, emailForm(form))
}

// sendContactEmail sends the message in the request to the contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/email --request "POST" --header "X-Owner-ID: 42" --header "Content-Type: application/json" --data '{"subject": "Hello", "body": "<p>How are you?</p>"}'
func (s *Service) sendContactEmail(c *gin.Context) {
	s.send(c, s.dispatch.SendToContact)
}

// composeCategoryEmail responds with the pre-populated compose form for a group message.
func (s *Service) composeCategoryEmail(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	form, err := s.dispatch.ComposeForCategory(c.Request.Context(), ownerOf(c), id)
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, emailForm(form))
}

// sendCategoryEmail sends the message in the request to every member of the category that has
// an email address. If one send fails, the remaining members are not sent to.
func (s *Service) sendCategoryEmail(c *gin.Context) {
	s.send(c, s.dispatch.SendToCategory)
}

// sendFunc is a dispatch operation of notify.Dispatcher.
type sendFunc func(ctx context.Context, ownerId string, id int64, content model.EmailContent) (*notify.Result, error)

func (s *Service) send(c *gin.Context, fn sendFunc) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	var req api.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	result, err := fn(c.Request.Context(), ownerOf(c), id, model.EmailContent{Subject: req.Subject, Body: req.Body})
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, api.SendResult{Recipients: result.Recipients})
}

func emailForm(m *model.EmailMessage) api.EmailForm {
	return api.EmailForm{
		EmailAddress: m.EmailAddress,
		EmailSubject: m.EmailSubject,
		EmailBody:    m.EmailBody,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		GroupName:    m.GroupName,
	}
}

package service

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
)

// fail answers the request according to the kind of err. entity is the record that was saved
// before an Association error occurred and is returned with that error only.
func (s *Service) fail(c *gin.Context, err error, entityName string, entity any) {
	kind := apperr.KindOf(err)
	log := s.log.With("requestId", c.GetString(requestIdKey), "owner", ownerOf(c), "kind", kind.String())
	switch kind {
	case apperr.Validation:
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{
			Message: "invalid input", Fields: apperr.FieldsOf(err)})
	case apperr.NotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, api.ErrorResponse{Message: message(err)})
	case apperr.Conflict:
		c.AbortWithStatusJSON(http.StatusConflict, api.ErrorResponse{Message: message(err)})
	case apperr.Association:
		log.Errorw("saved without memberships", "error", err)
		body := gin.H{"message": "saved, but the categories could not be updated"}
		if entity != nil {
			body[entityName] = entity
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	case apperr.IO:
		log.Warnw("i/o failure", "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, api.ErrorResponse{Message: message(err)})
	default:
		log.Errorw("request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{Message: "internal error"})
	}
}

// message returns the client facing message of err without the wrapped cause.
func message(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return apperr.KindOf(err).String()
}

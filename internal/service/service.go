// Package service is the REST API of the contacts service. Every contact and category route
// requires the X-Owner-ID header that the identity proxy in front of the service sets.
package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/dirk.krummacker/contacts-service/internal/categories"
	"gitlab.com/dirk.krummacker/contacts-service/internal/contacts"
	"gitlab.com/dirk.krummacker/contacts-service/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	"gitlab.com/dirk.krummacker/contacts-service/internal/notify"
	"go.uber.org/zap"
)

// OwnerHeader carries the id of the authenticated user.
const OwnerHeader = "X-Owner-ID"

// RequestIdHeader carries the id of a request. It is generated if the client did not send one.
const RequestIdHeader = "X-Request-ID"

const (
	ownerKey     = "owner"
	requestIdKey = "requestId"
)

// Options are the transport settings of the service.
type Options struct {
	// GinLogging turns the gin request logger on.
	GinLogging bool

	// MaxUploadBytes limits the size of a request body.
	MaxUploadBytes int64
}

// Service serves the REST API.
type Service struct {
	contacts   *contacts.Service
	categories *categories.Service
	dispatch   *notify.Dispatcher
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger
	opts       Options
}

// New returns the REST API on top of the given components.
func New(contactService *contacts.Service, categoryService *categories.Service, dispatch *notify.Dispatcher,
	m *metrics.Metrics, log *zap.SugaredLogger, opts Options) *Service {
	return &Service{
		contacts:   contactService,
		categories: categoryService,
		dispatch:   dispatch,
		metrics:    m,
		log:        log,
		opts:       opts,
	}
}

// Router builds the gin engine and registers all endpoints.
func (s *Service) Router() *gin.Engine {
	var router *gin.Engine
	if s.opts.GinLogging {
		router = gin.Default()
	} else {
		s.log.Info("Turning off HTTP request logging.")
		router = gin.New()
		router.Use(gin.Recovery())
	}
	router.Use(requestId(), s.observe())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	router.GET("/states", func(c *gin.Context) {
		c.IndentedJSON(http.StatusOK, model.States())
	})

	owned := router.Group("/", owner())
	owned.GET("/contacts", s.findContacts)
	owned.GET("/contacts/search", s.searchContacts)
	owned.POST("/contacts", s.createContact)
	owned.GET("/contacts/:id", s.findContactByID)
	owned.PUT("/contacts/:id", s.updateContactByID)
	owned.DELETE("/contacts/:id", s.deleteContactByID)
	owned.GET("/contacts/:id/email", s.composeContactEmail)
	owned.POST("/contacts/:id/email", s.sendContactEmail)

	owned.GET("/categories", s.findCategories)
	owned.GET("/categories/options", s.categoryOptions)
	owned.POST("/categories", s.createCategory)
	owned.GET("/categories/:id", s.findCategoryByID)
	owned.PUT("/categories/:id", s.updateCategoryByID)
	owned.DELETE("/categories/:id", s.deleteCategoryByID)
	owned.GET("/categories/:id/email", s.composeCategoryEmail)
	owned.POST("/categories/:id/email", s.sendCategoryEmail)
	return router
}

// owner rejects requests without an owner and stores the owner in the context.
func owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerId := c.GetHeader(OwnerHeader)
		if ownerId == "" || len(ownerId) > 64 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing owner"})
			return
		}
		c.Set(ownerKey, ownerId)
		c.Next()
	}
}

// requestId makes sure every request and its response carry a request id.
func requestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIdHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIdKey, id)
		c.Header(RequestIdHeader, id)
		c.Next()
	}
}

// observe records count and duration of every request.
func (s *Service) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		s.metrics.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

// ownerOf returns the owner stored by the owner middleware.
func ownerOf(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// parseId reads the id parameter of the request URL. An id that is not a number cannot exist,
// so the response is 404.
func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

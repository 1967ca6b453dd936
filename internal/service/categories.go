package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-service/internal/model"
	api "gitlab.com/dirk.krummacker/contacts-service/pkg/model"
)

// findCategories responds with the categories of the owner in the order they were created.
//
// Example REST API call:
//
//	> curl http://localhost:8080/categories --header "X-Owner-ID: 42"
func (s *Service) findCategories(c *gin.Context) {
	categories, err := s.categories.ListForOwner(c.Request.Context(), ownerOf(c))
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	out := make([]api.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, categoryResponse(&categories[i]))
	}
	c.IndentedJSON(http.StatusOK, out)
}

// categoryOptions responds with id and name of every category of the owner, for selection lists.
func (s *Service) categoryOptions(c *gin.Context) {
	categories, err := s.categories.ListForOwner(c.Request.Context(), ownerOf(c))
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	out := make([]api.Option, 0, len(categories))
	for _, category := range categories {
		out = append(out, api.Option{Id: category.Id, Name: category.Name})
	}
	c.IndentedJSON(http.StatusOK, out)
}

// createCategory stores a new category and responds with it.
//
// Example REST API call:
//
//	> curl http://localhost:8080/categories --request "POST" --header "X-Owner-ID: 42" --header "Content-Type: application/json" --data '{"name": "Family"}'
func (s *Service) createCategory(c *gin.Context) {
	var req api.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	category, err := s.categories.Create(c.Request.Context(), ownerOf(c), model.CategoryFields{Name: req.Name})
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusCreated, categoryResponse(category))
}

// findCategoryByID responds with the category and the ids of its member contacts.
//
// Example REST API call:
//
//	> curl http://localhost:8080/categories/7 --header "X-Owner-ID: 42"
func (s *Service) findCategoryByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	category, err := s.categories.Get(c.Request.Context(), ownerOf(c), id)
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, categoryResponse(category))
}

// updateCategoryByID renames the category. The request must carry the version that was read.
//
// Example REST API call:
//
//	> curl http://localhost:8080/categories/7 --request "PUT" --header "X-Owner-ID: 42" --header "Content-Type: application/json" --data '{"name": "Relatives", "version": 1}'
func (s *Service) updateCategoryByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	var req api.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	category, err := s.categories.Update(c.Request.Context(), ownerOf(c), id, req.Version,
		model.CategoryFields{Name: req.Name})
	if err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, categoryResponse(category))
}

// deleteCategoryByID deletes the category. Its member contacts are kept.
//
// Example REST API call:
//
//	> curl http://localhost:8080/categories/7 --request "DELETE" --header "X-Owner-ID: 42"
func (s *Service) deleteCategoryByID(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	if err := s.categories.Delete(c.Request.Context(), ownerOf(c), id); err != nil {
		s.fail(c, err, "", nil)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "category deleted"})
}

func categoryResponse(category *model.Category) api.CategoryResponse {
	return api.CategoryResponse{
		Id:         category.Id,
		Name:       category.Name,
		Version:    category.Version,
		ContactIds: category.Contacts,
	}
}

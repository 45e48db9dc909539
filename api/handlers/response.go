package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultResultsPerPage = 20

	errMsgBadRequest = "failed to extract request body parameters"
)

type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func writeResponse(c *gin.Context, data interface{}, statusCode int, errors []string) {

	if statusCode == http.StatusNoContent {
		c.JSON(statusCode, nil)
		return

	}

	response := response{
		Data:   data,
		Errors: errors,
	}

	c.JSON(statusCode, response)
}

// abortWithError writes an error envelope and stops the handler chain.
func abortWithError(c *gin.Context, statusCode int, message string) {
	c.Abort()
	writeResponse(c, nil, statusCode, []string{message})
}

// Pagination describes a page of results. The total is not known up front, so a full page
// is taken to mean there may be another one.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

func calculatePagination(page, pageSize, returned int) Pagination {
	return Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		HasNextPage: returned >= pageSize,
		HasPrevPage: page > 1,
	}
}

// PageRequest is embedded by requests that page through results. Page is one based.
type PageRequest struct {
	PerPage int `form:"per_page" validate:"min=0,max=100"`
	Page    int `form:"page" validate:"min=0"`
}

func (r *PageRequest) setDefaults() {
	if r.PerPage == 0 {
		r.PerPage = defaultResultsPerPage
	}

	if r.Page == 0 {
		r.Page = 1
	}
}

// zeroBasedPage is the page index the services expect.
func (r *PageRequest) zeroBasedPage() int {
	return r.Page - 1
}

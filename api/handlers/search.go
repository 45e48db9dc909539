package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/services/search"
	"github.com/meghashyamc/buzee/validation"
)

type SearchRequest struct {
	Query string `form:"query" validate:"required,valid_query,min=1,max=1000"`
	PageRequest
	Filetype  string `form:"filetype" validate:"max=200"`
	DateStart int64  `form:"date_start" validate:"min=0"`
	DateEnd   int64  `form:"date_end" validate:"min=0"`
}

func (r *SearchRequest) dateLimit() *db.DateLimit {
	if r.DateStart == 0 && r.DateEnd == 0 {
		return nil
	}
	return &db.DateLimit{Start: r.DateStart, End: r.DateEnd}
}

type RecentRequest struct {
	PageRequest
	Filetype string `form:"filetype" validate:"max=200"`
}

type SuggestionsRequest struct {
	Query string `form:"query" validate:"required,valid_query,max=1000"`
	Limit int    `form:"limit" validate:"min=0,max=100"`
}

type SearchResponse struct {
	Results     []db.DocumentSearchResult `json:"results"`
	PageDetails Pagination                `json:"page_details"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service *search.Service, validator *validation.Validator) {
	router.GET("/search", handleSearch(service, logger, validator))
	router.GET("/recent", handleRecent(service, logger, validator))
	router.GET("/suggestions", handleSuggestions(service, logger, validator))
	router.GET("/stats", handleStats(service, logger))
}

func handleSearch(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		request.setDefaults()

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate search request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		results, err := service.Search(c.Request.Context(), search.Request{
			Query:     request.Query,
			Page:      request.zeroBasedPage(),
			Limit:     request.PerPage,
			FileTypes: search.ParseFileTypes(request.Filetype),
			DateLimit: request.dateLimit(),
		})
		if err != nil {
			logger.Error("search failed", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		writeResponse(c, SearchResponse{
			Results:     results,
			PageDetails: calculatePagination(request.Page, request.PerPage, len(results)),
		}, http.StatusOK, nil)
	}
}

func handleRecent(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := RecentRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from recent request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		request.setDefaults()

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate recent request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		results, err := service.Recent(c.Request.Context(), search.ParseFileTypes(request.Filetype), request.zeroBasedPage(), request.PerPage)
		if err != nil {
			logger.Error("listing recent documents failed", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		writeResponse(c, SearchResponse{
			Results:     results,
			PageDetails: calculatePagination(request.Page, request.PerPage, len(results)),
		}, http.StatusOK, nil)
	}
}

func handleSuggestions(service *search.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SuggestionsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from suggestions request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate suggestions request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		titles, err := service.Suggestions(c.Request.Context(), request.Query, request.Limit)
		if err != nil {
			logger.Error("suggestions failed", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		if titles == nil {
			titles = []string{}
		}
		writeResponse(c, titles, http.StatusOK, nil)
	}
}

func handleStats(service *search.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := service.Stats(c.Request.Context())
		if err != nil {
			logger.Error("could not count documents", "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if stats == nil {
			stats = []db.FiletypeCount{}
		}
		writeResponse(c, stats, http.StatusOK, nil)
	}
}

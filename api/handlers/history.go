package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/buzee/history"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/validation"
)

type BrowserURI struct {
	Browser string `uri:"browser" json:"browser" validate:"required,valid_browser"`
}

type HistoryRequest struct {
	Query   string `form:"query" validate:"max=1000"`
	Profile string `form:"profile" validate:"max=200"`
	PageRequest
}

func SetupHistory(router *gin.Engine, logger logger.Logger, reader *history.Reader, validator *validation.Validator) {
	router.GET("/history/:browser", handleSearchHistory(reader, logger, validator))
	router.GET("/history/:browser/profiles", handleListProfiles(reader, logger, validator))
}

func bindBrowser(c *gin.Context, logger logger.Logger, validator *validation.Validator) (history.Browser, bool) {
	uri := BrowserURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		logger.Warn("could not extract browser from request path", "err", err.Error())
		abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
		return "", false
	}
	if err := validator.Validate(uri); err != nil {
		logger.Warn("could not validate browser", "err", err.Error())
		abortWithError(c, http.StatusNotAcceptable, err.Error())
		return "", false
	}

	browser, err := history.ParseBrowser(uri.Browser)
	if err != nil {
		abortWithError(c, http.StatusNotAcceptable, err.Error())
		return "", false
	}
	return browser, true
}

// handleSearchHistory always answers 200: read failures are reported in error_view, the way
// the history result is rendered by clients.
func handleSearchHistory(reader *history.Reader, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		browser, ok := bindBrowser(c, logger, validator)
		if !ok {
			return
		}

		request := HistoryRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from history request", "err", err.Error())
			abortWithError(c, http.StatusUnprocessableEntity, errMsgBadRequest)
			return
		}
		request.setDefaults()

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate history request", "err", err.Error())
			abortWithError(c, http.StatusNotAcceptable, err.Error())
			return
		}

		ctx := c.Request.Context()
		var result history.HistoryResult
		switch browser {
		case history.Firefox:
			result = reader.SearchFirefox(ctx, request.Query, request.zeroBasedPage(), request.PerPage)
		case history.Arc:
			result = reader.SearchArc(ctx, request.Profile, request.Query, request.zeroBasedPage(), request.PerPage)
		default:
			result = reader.SearchChrome(ctx, request.Profile, request.Query, request.zeroBasedPage(), request.PerPage)
		}

		writeResponse(c, result, http.StatusOK, nil)
	}
}

func handleListProfiles(reader *history.Reader, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		browser, ok := bindBrowser(c, logger, validator)
		if !ok {
			return
		}

		profiles, err := reader.Profiles(browser)
		if err != nil {
			logger.Error("could not list browser profiles", "browser", string(browser), "err", err.Error())
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if profiles == nil {
			profiles = []history.Profile{}
		}

		writeResponse(c, profiles, http.StatusOK, nil)
	}
}
